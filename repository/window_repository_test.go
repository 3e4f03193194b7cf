package repository

import (
	"context"
	"testing"
	"time"

	"pulp/domain"
	"pulp/domain/entities"
	"pulp/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowRepository_SingleOpenWindow(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWindowRepository(testDB.DB)
	ctx := context.Background()

	ana := testutil.CreateTestPlayer(t, testDB.DB, "ana", 0)
	now := time.Now().UTC().Truncate(time.Second)

	first := &entities.Window{OpenedBy: ana.ID, OpenedAt: now, ClosesAt: now.Add(30 * time.Minute)}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID)
	assert.Equal(t, entities.WindowStatusOpen, first.Status)

	second := &entities.Window{OpenedBy: ana.ID, OpenedAt: now, ClosesAt: now.Add(30 * time.Minute)}
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrWindowAlreadyOpen)

	open, err := repo.GetOpen(ctx)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, first.ID, open.ID)
	assert.True(t, open.ClosesAt.Equal(first.ClosesAt))
}

func TestWindowRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWindowRepository(testDB.DB)
	ctx := context.Background()

	ana := testutil.CreateTestPlayer(t, testDB.DB, "ana", 0)
	openedAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	window := testutil.CreateTestWindow(t, testDB.DB, ana.ID, entities.WindowStatusOpen, openedAt)
	now := openedAt.Add(31 * time.Minute)

	t.Run("not locked before the deadline", func(t *testing.T) {
		locked, err := repo.LockExpired(ctx, openedAt.Add(10*time.Minute), 360*time.Hour)
		require.NoError(t, err)
		assert.Empty(t, locked)
	})

	t.Run("locked after the deadline", func(t *testing.T) {
		locked, err := repo.LockExpired(ctx, now, 360*time.Hour)
		require.NoError(t, err)
		require.Len(t, locked, 1)
		assert.Equal(t, window.ID, locked[0].ID)
		assert.Equal(t, entities.WindowStatusLocked, locked[0].Status)
		require.NotNil(t, locked[0].ExpiresAt)
		assert.True(t, locked[0].ExpiresAt.Equal(now.Add(360*time.Hour)))

		open, err := repo.GetOpen(ctx)
		require.NoError(t, err)
		assert.Nil(t, open)

		latest, err := repo.GetLatestLocked(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, window.ID, latest.ID)
	})

	t.Run("stale only after expiry", func(t *testing.T) {
		stale, err := repo.ListExpiredLocked(ctx, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, stale)

		stale, err = repo.ListExpiredLocked(ctx, now.Add(361*time.Hour))
		require.NoError(t, err)
		assert.Len(t, stale, 1)
	})

	t.Run("settle guarded by status", func(t *testing.T) {
		testutil.CreateTestRound(t, testDB.DB, 900, 5, entities.EventTypeSeason, now, "ana", "ben", "cal")
		roundID := int64(900)

		moved, err := repo.Transition(ctx, window.ID, entities.WindowStatusLocked, entities.WindowStatusSettled, &roundID, now)
		require.NoError(t, err)
		assert.True(t, moved)

		moved, err = repo.Transition(ctx, window.ID, entities.WindowStatusLocked, entities.WindowStatusExpired, nil, now)
		require.NoError(t, err)
		assert.False(t, moved)

		settled, err := repo.GetByID(ctx, window.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.WindowStatusSettled, settled.Status)
		require.NotNil(t, settled.SettledByRoundID)
		assert.Equal(t, roundID, *settled.SettledByRoundID)
		require.NotNil(t, settled.SettledAt)
	})

	t.Run("a new window can open once the old one locked", func(t *testing.T) {
		next := &entities.Window{OpenedBy: ana.ID, OpenedAt: now, ClosesAt: now.Add(30 * time.Minute)}
		require.NoError(t, repo.Create(ctx, next))
	})
}
