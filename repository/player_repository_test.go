package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/services"
	"pulp/events"
	"pulp/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPlayerRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		player, err := repo.Create(ctx, "ana")
		require.NoError(t, err)
		require.NotNil(t, player)

		assert.NotZero(t, player.ID)
		assert.Equal(t, "ana", player.Name)
		assert.Equal(t, int64(0), player.Balance)
		assert.True(t, player.Active)
		assert.False(t, player.CreatedAt.IsZero())
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := repo.Create(ctx, "ben")
		require.NoError(t, err)

		_, err = repo.Create(ctx, "ben")
		assert.ErrorIs(t, err, domain.ErrPlayerAlreadyExists)
	})
}

func TestPlayerRepository_Getters(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPlayerRepository(testDB.DB)
	ctx := context.Background()

	ana := testutil.CreateTestPlayer(t, testDB.DB, "ana", 100)
	testutil.CreateTestPlayer(t, testDB.DB, "ben", 50)

	t.Run("by id", func(t *testing.T) {
		player, err := repo.GetByID(ctx, ana.ID)
		require.NoError(t, err)
		require.NotNil(t, player)
		assert.Equal(t, "ana", player.Name)
		assert.Equal(t, int64(100), player.Balance)
	})

	t.Run("missing id", func(t *testing.T) {
		player, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, player)
	})

	t.Run("by name", func(t *testing.T) {
		player, err := repo.GetByName(ctx, "ben")
		require.NoError(t, err)
		require.NotNil(t, player)
		assert.Equal(t, int64(50), player.Balance)
	})

	t.Run("by names leaves out unknown", func(t *testing.T) {
		players, err := repo.GetByNames(ctx, []string{"ana", "ben", "zed"})
		require.NoError(t, err)
		assert.Len(t, players, 2)
		assert.Contains(t, players, "ana")
		assert.Contains(t, players, "ben")
		assert.NotContains(t, players, "zed")
	})

	t.Run("by no names", func(t *testing.T) {
		players, err := repo.GetByNames(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, players)
	})
}

func TestPlayerRepository_AdjustBalance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPlayerRepository(testDB.DB)
	ctx := context.Background()

	ana := testutil.CreateTestPlayer(t, testDB.DB, "ana", 100)

	t.Run("debit within balance", func(t *testing.T) {
		balance, err := repo.AdjustBalance(ctx, ana.ID, -30)
		require.NoError(t, err)
		assert.Equal(t, int64(70), balance)
	})

	t.Run("credit", func(t *testing.T) {
		balance, err := repo.AdjustBalance(ctx, ana.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(80), balance)
	})

	t.Run("overdraw is refused and leaves balance alone", func(t *testing.T) {
		_, err := repo.AdjustBalance(ctx, ana.ID, -81)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

		player, err := repo.GetByID(ctx, ana.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(80), player.Balance)
	})

	t.Run("draining to zero is allowed", func(t *testing.T) {
		balance, err := repo.AdjustBalance(ctx, ana.ID, -80)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})

	t.Run("missing player", func(t *testing.T) {
		_, err := repo.AdjustBalance(ctx, 999999, 10)
		assert.True(t, domain.IsNotFound(err))
	})
}

// TestPlayerRepository_ConcurrentDebits races more debits than the balance
// covers through the ledger and checks the books still balance
func TestPlayerRepository_ConcurrentDebits(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	const (
		starting = int64(100)
		amount   = int64(15)
		workers  = 20
	)
	ana := testutil.CreateTestPlayer(t, testDB.DB, "ana", starting)
	ledger := services.NewLedgerService(NewUnitOfWorkFactory(testDB.DB, events.NewBus()), services.DefaultRules())

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		refused   atomic.Int64
	)
	unexpected := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Debit(ctx, ana.ID, amount, entities.TransactionTypeAdvantagePurchase, "Concurrent debit", nil)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientBalance):
				refused.Add(1)
			default:
				unexpected <- err
			}
		}()
	}
	wg.Wait()
	close(unexpected)
	for err := range unexpected {
		require.NoError(t, err)
	}

	player, err := NewPlayerRepository(testDB.DB).GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, player.Balance, int64(0))
	assert.Equal(t, starting/amount, succeeded.Load())
	assert.Equal(t, int64(workers)-starting/amount, refused.Load())
	assert.Equal(t, succeeded.Load()*amount, starting-player.Balance)

	sum, err := NewTransactionRepository(testDB.DB).SumByPlayer(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, player.Balance, sum)
}

func TestPlayerRepository_Counters(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPlayerRepository(testDB.DB)
	ctx := context.Background()

	ana := testutil.CreateTestPlayer(t, testDB.DB, "ana", 0)

	require.NoError(t, repo.IncrementSeasonRounds(ctx, ana.ID))
	require.NoError(t, repo.IncrementSeasonRounds(ctx, ana.ID))
	require.NoError(t, repo.IncrementChallengesDeclined(ctx, ana.ID))
	require.NoError(t, repo.Deactivate(ctx, ana.ID))

	player, err := repo.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, player.SeasonRoundsPlayed)
	assert.Equal(t, 1, player.ChallengesDeclined)
	assert.False(t, player.Active)

	assert.True(t, domain.IsNotFound(repo.Deactivate(ctx, 999999)))
}
