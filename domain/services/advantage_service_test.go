package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulp/domain"
	"pulp/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var mulligan = &entities.AdvantageCatalogEntry{
	Key:             "mulligan",
	Name:            "Mulligan",
	PulpCost:        30,
	ExpirationHours: 24,
	Active:          true,
}

func liveMulligan(id int64) *entities.AdvantageInstance {
	return &entities.AdvantageInstance{
		ID:           id,
		PlayerID:     7,
		AdvantageKey: "mulligan",
		PurchasedAt:  testNow.Add(-time.Hour),
		ExpiresAt:    testNow.Add(23 * time.Hour),
	}
}

func (f *serviceFixture) expectExpiryNotice(playerID, balance int64) {
	f.transactions.On("Create", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.PlayerID == playerID && tx.Amount == 0 && tx.BalanceAfter == balance &&
			tx.Type == entities.TransactionTypeAdvantageExpired
	})).Return(nil).Once()
}

func TestNormalizeAdvantageKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mulligan", NormalizeAdvantageKey("Mulligan"))
	assert.Equal(t, "gimme-putt", NormalizeAdvantageKey("  Gimme Putt "))
	assert.Equal(t, "", NormalizeAdvantageKey("   "))
}

func TestAdvantageService_PurchaseAdvantage(t *testing.T) {
	t.Parallel()

	t.Run("debits the price and grants an instance", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 100), nil)
		f.advantages.On("GetCatalogEntry", mock.Anything, "mulligan").Return(mulligan, nil)
		f.advantages.On("ExpireStale", mock.Anything, int64(7), "mulligan", testNow).Return([]*entities.AdvantageInstance{}, nil)
		f.advantages.On("GetLiveInstance", mock.Anything, int64(7), "mulligan").Return(nil, nil)
		f.advantages.On("CreateInstance", mock.Anything, mock.MatchedBy(func(a *entities.AdvantageInstance) bool {
			return a.PlayerID == 7 && a.ExpiresAt.Equal(testNow.Add(24*time.Hour))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*entities.AdvantageInstance).ID = 40
		}).Return(nil)
		f.expectEntry(7, -30, 70, entities.TransactionTypeAdvantagePurchase)

		instance, err := NewAdvantageService(f.factory, f.clock).PurchaseAdvantage(context.Background(), 7, "Mulligan")

		require.NoError(t, err)
		assert.Equal(t, int64(40), instance.ID)
		assert.True(t, instance.IsUsable(testNow))
		f.assertExpectations(t)
	})

	t.Run("one live instance per key", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 70), nil)
		f.advantages.On("GetCatalogEntry", mock.Anything, "mulligan").Return(mulligan, nil)
		f.advantages.On("ExpireStale", mock.Anything, int64(7), "mulligan", testNow).Return([]*entities.AdvantageInstance{}, nil)
		f.advantages.On("GetLiveInstance", mock.Anything, int64(7), "mulligan").Return(liveMulligan(40), nil)

		_, err := NewAdvantageService(f.factory, f.clock).PurchaseAdvantage(context.Background(), 7, "mulligan")

		assert.ErrorIs(t, err, domain.ErrAdvantageAlreadyOwned)
		f.advantages.AssertNotCalled(t, "CreateInstance", mock.Anything, mock.Anything)
	})

	t.Run("lapsed instance is expired with a notice before buying again", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		lapsed := liveMulligan(40)
		lapsed.ExpiresAt = testNow.Add(-time.Minute)
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 70), nil)
		f.advantages.On("GetCatalogEntry", mock.Anything, "mulligan").Return(mulligan, nil)
		f.advantages.On("ExpireStale", mock.Anything, int64(7), "mulligan", testNow).Return([]*entities.AdvantageInstance{lapsed}, nil)
		f.players.On("LockForUpdate", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 70), nil)
		f.expectExpiryNotice(7, 70)
		f.advantages.On("GetLiveInstance", mock.Anything, int64(7), "mulligan").Return(nil, nil)
		f.advantages.On("CreateInstance", mock.Anything, mock.Anything).Return(nil)
		f.expectEntry(7, -30, 40, entities.TransactionTypeAdvantagePurchase)

		_, err := NewAdvantageService(f.factory, f.clock).PurchaseAdvantage(context.Background(), 7, "mulligan")

		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("unknown advantage", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 100), nil)
		f.advantages.On("GetCatalogEntry", mock.Anything, "time-machine").Return(nil, nil)

		_, err := NewAdvantageService(f.factory, f.clock).PurchaseAdvantage(context.Background(), 7, "Time Machine")

		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("cannot afford", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 29), nil)
		f.advantages.On("GetCatalogEntry", mock.Anything, "mulligan").Return(mulligan, nil)
		f.advantages.On("ExpireStale", mock.Anything, int64(7), "mulligan", testNow).Return([]*entities.AdvantageInstance{}, nil)
		f.advantages.On("GetLiveInstance", mock.Anything, int64(7), "mulligan").Return(nil, nil)

		_, err := NewAdvantageService(f.factory, f.clock).PurchaseAdvantage(context.Background(), 7, "mulligan")

		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})
}

func TestAdvantageService_UseAdvantage(t *testing.T) {
	t.Parallel()

	t.Run("marks the instance used and logs the usage", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		meta := map[string]any{"hole": 7}
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 70), nil)
		f.advantages.On("GetLiveInstance", mock.Anything, int64(7), "mulligan").Return(liveMulligan(40), nil)
		f.advantages.On("MarkUsed", mock.Anything, int64(40), int64(900), meta, testNow).Return(nil)
		f.advantages.On("RecordUsage", mock.Anything, mock.MatchedBy(func(u *entities.AdvantageUsage) bool {
			return u.InstanceID == 40 && u.RoundID == 900 && u.AdvantageKey == "mulligan"
		})).Return(nil)

		instance, err := NewAdvantageService(f.factory, f.clock).UseAdvantage(context.Background(), 7, "mulligan", 900, meta)

		require.NoError(t, err)
		require.NotNil(t, instance.UsedAt)
		assert.Equal(t, int64(900), *instance.RoundID)
		f.assertExpectations(t)
	})

	t.Run("expired instance cannot be used", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		lapsed := liveMulligan(40)
		lapsed.ExpiresAt = testNow
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 70), nil)
		f.advantages.On("GetLiveInstance", mock.Anything, int64(7), "mulligan").Return(lapsed, nil)

		_, err := NewAdvantageService(f.factory, f.clock).UseAdvantage(context.Background(), 7, "mulligan", 900, nil)

		assert.ErrorIs(t, err, domain.ErrNoUsableAdvantage)
		f.advantages.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nothing owned", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.players.On("GetByID", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 70), nil)
		f.advantages.On("GetLiveInstance", mock.Anything, int64(7), "mulligan").Return(nil, nil)

		_, err := NewAdvantageService(f.factory, f.clock).UseAdvantage(context.Background(), 7, "mulligan", 900, nil)

		assert.ErrorIs(t, err, domain.ErrNoUsableAdvantage)
	})

	t.Run("round is required", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()

		_, err := NewAdvantageService(f.factory, f.clock).UseAdvantage(context.Background(), 7, "mulligan", 0, nil)

		assert.True(t, domain.IsValidation(err))
	})
}

func TestAdvantageService_ExpireAllAdvantages(t *testing.T) {
	t.Parallel()

	f := newServiceFixture()
	first := liveMulligan(40)
	second := liveMulligan(41)
	second.AdvantageKey = "gimme-putt"
	f.advantages.On("ListPlayersWithExpired", mock.Anything, testNow).Return([]int64{7, 8}, nil)
	f.players.On("LockForUpdate", mock.Anything, int64(7)).Return(activePlayer(7, "eve", 55), nil)
	f.advantages.On("ExpireStale", mock.Anything, int64(7), "", testNow).Return([]*entities.AdvantageInstance{first, second}, nil)
	f.expectExpiryNotice(7, 55)
	f.expectExpiryNotice(7, 55)
	f.players.On("LockForUpdate", mock.Anything, int64(8)).Return(nil, errors.New("lock timeout"))

	count, err := NewAdvantageService(f.factory, f.clock).ExpireAllAdvantages(context.Background())

	assert.Equal(t, 2, count)
	assert.ErrorContains(t, err, "lock timeout")
	f.assertExpectations(t)
}
