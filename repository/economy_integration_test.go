package repository

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"pulp/clock"
	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/services"
	"pulp/events"
	"pulp/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEconomy_WindowRoundTrip drives a window from open to settled against a
// real database and checks every balance against its ledger
func TestEconomy_WindowRoundTrip(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	var balanceEvents atomic.Int64
	bus.Subscribe(events.EventTypeBalanceChanged, func(ctx context.Context, e events.Event) {
		balanceEvents.Add(1)
	})

	clk := clock.NewFixedClock(time.Now().UTC().Truncate(time.Second))
	eco := services.NewEconomy(NewUnitOfWorkFactory(testDB.DB, bus), clk, services.DefaultRules(), services.NewExplicitWindowMatcher())

	ana, err := eco.Ledger.RegisterPlayer(ctx, "ana", 100)
	require.NoError(t, err)
	ben, err := eco.Ledger.RegisterPlayer(ctx, "ben", 100)
	require.NoError(t, err)
	cal, err := eco.Ledger.RegisterPlayer(ctx, "cal", 100)
	require.NoError(t, err)
	require.NoError(t, eco.RoundResults.RegisterParticipants(ctx, 5, []string{"ana", "ben", "cal"}))

	window, err := eco.Windows.OpenWindow(ctx, ana.ID)
	require.NoError(t, err)

	_, err = eco.Windows.OpenWindow(ctx, ben.ID)
	var alreadyOpen *domain.WindowAlreadyOpenError
	require.ErrorAs(t, err, &alreadyOpen)
	assert.Equal(t, window.ID, alreadyOpen.WindowID)
	assert.Equal(t, int64(1800), alreadyOpen.SecondsRemaining)

	podium := entities.Podium{First: "ana", Second: "ben", Third: "cal"}
	_, err = eco.Blessings.PlaceBlessing(ctx, ben.ID, window.ID, podium, 30, 5)
	require.NoError(t, err)

	_, err = eco.Blessings.PlaceBlessing(ctx, ben.ID, window.ID, podium, 30, 5)
	assert.ErrorIs(t, err, domain.ErrDuplicateBlessing)

	_, err = eco.Advantages.PurchaseAdvantage(ctx, cal.ID, "gimme-putt")
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)
	locked, err := eco.Windows.LockExpiredWindows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, locked)

	report := &entities.RoundReport{
		RoundID:   900,
		EventID:   5,
		EventType: entities.EventTypeCasual,
		PlayedAt:  clk.Now(),
		WindowID:  &window.ID,
		Players: []*entities.RoundResult{
			{PlayerName: "ana", Rank: 1, TotalStrokes: 48},
			{PlayerName: "ben", Rank: 2, TotalStrokes: 50},
			{PlayerName: "cal", Rank: 3, TotalStrokes: 51},
		},
	}
	result, err := eco.RoundResults.RecordRound(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, 3, result.PlayersAwarded)
	assert.Equal(t, int64(30), result.TotalAwarded)
	require.NotNil(t, result.SettledWindowID)
	assert.Equal(t, window.ID, *result.SettledWindowID)
	assert.Empty(t, result.SettlementError)

	again, err := eco.RoundResults.RecordRound(ctx, report)
	require.NoError(t, err)
	assert.True(t, again.AwardsSkipped)

	// ana: 100 + 10; ben: 100 - 30 + 60 + 10; cal: 100 - 25 + 10
	want := map[int64]int64{ana.ID: 110, ben.ID: 140, cal.ID: 85}
	ledger := NewTransactionRepository(testDB.DB)
	for id, balance := range want {
		got, err := eco.Ledger.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, balance, got)

		sum, err := ledger.SumByPlayer(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, got, sum, "balance must equal the ledger sum for player %d", id)
	}

	settled, err := NewWindowRepository(testDB.DB).GetByID(ctx, window.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WindowStatusSettled, settled.Status)

	blessings, err := eco.Blessings.GetBlessingsForWindow(ctx, window.ID)
	require.NoError(t, err)
	require.Len(t, blessings, 1)
	assert.Equal(t, entities.BlessingStatusWonPerfect, blessings[0].Status)

	// 3 starting balances, blessing wager, purchase, payout, 3 participation awards
	assert.Eventually(t, func() bool { return balanceEvents.Load() == 9 }, 2*time.Second, 10*time.Millisecond)
}

func TestUnitOfWork_RollbackDiscardsWritesAndEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	var delivered atomic.Int64
	bus.Subscribe(events.EventTypeBalanceChanged, func(ctx context.Context, e events.Event) {
		delivered.Add(1)
	})
	factory := NewUnitOfWorkFactory(testDB.DB, bus)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	player, err := uow.PlayerRepository().Create(ctx, "ghost")
	require.NoError(t, err)
	require.NoError(t, uow.EventBus().Publish(events.BalanceChangedEvent{PlayerID: player.ID, NewBalance: 10}))
	require.NoError(t, uow.Rollback())
	require.NoError(t, uow.Rollback())

	stored, err := NewPlayerRepository(testDB.DB).GetByName(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, stored)

	committed := factory.Create()
	require.NoError(t, committed.Begin(ctx))
	_, err = committed.PlayerRepository().Create(ctx, "real")
	require.NoError(t, err)
	require.NoError(t, committed.EventBus().Publish(events.BalanceChangedEvent{NewBalance: 10}))
	require.NoError(t, committed.Commit())

	assert.Eventually(t, func() bool { return delivered.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return delivered.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}
