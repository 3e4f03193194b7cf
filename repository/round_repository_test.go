package repository

import (
	"context"
	"testing"
	"time"

	"pulp/domain/entities"
	"pulp/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRepository_SaveRoundReplacesResults(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()

	playedAt := time.Now().UTC().Truncate(time.Second)
	round := &entities.Round{ID: 900, EventID: 5, EventType: entities.EventTypeSeason, PlayedAt: playedAt, CompletedAt: playedAt}

	first := []*entities.RoundResult{
		{PlayerName: "ana", Rank: 1, TotalStrokes: 50, Points: 30},
		{PlayerName: "ben", Rank: 2, TotalStrokes: 52, Points: 20},
	}
	require.NoError(t, repo.SaveRound(ctx, round, first))

	corrected := []*entities.RoundResult{
		{PlayerName: "ben", Rank: 1, TotalStrokes: 49, Points: 30},
		{PlayerName: "ana", Rank: 2, TotalStrokes: 50, Points: 20},
		{PlayerName: "cal", Rank: 3, TotalStrokes: 55, Points: 10},
	}
	require.NoError(t, repo.SaveRound(ctx, round, corrected))

	results, err := repo.GetResults(ctx, 900)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "ben", results[0].PlayerName)
	assert.Equal(t, "cal", results[2].PlayerName)

	stored, err := repo.GetRound(ctx, 900)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entities.EventTypeSeason, stored.EventType)

	missing, err := repo.GetRound(ctx, 901)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRoundRepository_SeasonPoints(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()

	start := time.Now().UTC().Add(-72 * time.Hour).Truncate(time.Second)

	t.Run("no season yet", func(t *testing.T) {
		eventID, err := repo.GetLatestSeasonEventID(ctx)
		require.NoError(t, err)
		assert.Nil(t, eventID)
	})

	testutil.CreateTestRound(t, testDB.DB, 1, 5, entities.EventTypeSeason, start, "ana", "ben", "cal")
	testutil.CreateTestRound(t, testDB.DB, 2, 5, entities.EventTypeSeason, start.Add(24*time.Hour), "cal", "ben", "ana")
	testutil.CreateTestRound(t, testDB.DB, 3, 8, entities.EventTypeCasual, start.Add(48*time.Hour), "ben", "ana", "cal")

	t.Run("latest season event ignores casual rounds", func(t *testing.T) {
		eventID, err := repo.GetLatestSeasonEventID(ctx)
		require.NoError(t, err)
		require.NotNil(t, eventID)
		assert.Equal(t, int64(5), *eventID)
	})

	t.Run("points across the event", func(t *testing.T) {
		points, err := repo.GetSeasonPoints(ctx, 5, 0)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"ana": 180, "ben": 180, "cal": 180}, points)
	})

	t.Run("points before a round", func(t *testing.T) {
		points, err := repo.GetSeasonPoints(ctx, 5, 2)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"ana": 100, "ben": 90, "cal": 80}, points)
	})
}

func TestParticipantRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewParticipantRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, 5, []string{"ana", "ben"}))
	require.NoError(t, repo.Register(ctx, 5, []string{"ben", "cal"}))
	require.NoError(t, repo.Register(ctx, 6, []string{"dee"}))

	names, err := repo.GetRegisteredNames(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ana": true, "ben": true, "cal": true}, names)
}

func TestRoundRunRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRunRepository(testDB.DB)
	ctx := context.Background()

	testutil.CreateTestRound(t, testDB.DB, 900, 5, entities.EventTypeSeason, time.Now().UTC(), "ana", "ben", "cal")

	run := &entities.RoundGamificationRun{
		RoundID:          900,
		PlayersAwarded:   3,
		TotalAwarded:     36,
		ExecutionSummary: map[string]any{"unknown_players": []any{"zed"}},
	}
	created, err := repo.Create(ctx, run)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, run.ID)

	again, err := repo.Create(ctx, &entities.RoundGamificationRun{RoundID: 900})
	require.NoError(t, err)
	assert.False(t, again)

	stored, err := repo.GetByRoundID(ctx, 900)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.PlayersAwarded)
	assert.Equal(t, int64(36), stored.TotalAwarded)
	assert.Equal(t, []any{"zed"}, stored.ExecutionSummary["unknown_players"])

	missing, err := repo.GetByRoundID(ctx, 901)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
