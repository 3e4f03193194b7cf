package services

import (
	"context"
	"errors"
	"testing"

	"pulp/domain/entities"
	"pulp/domain/testhelpers"
	"pulp/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seasonRoundResults() []*entities.RoundResult {
	names := []string{"ana", "ben", "cal", "dee", "eve", "zed"}
	results := make([]*entities.RoundResult, len(names))
	for i, name := range names {
		results[i] = &entities.RoundResult{RoundID: 900, PlayerName: name, Rank: i + 1, TotalStrokes: 48 + i, Points: 10 - i}
	}
	return results
}

func roundPlayers() map[string]*entities.Player {
	return map[string]*entities.Player{
		"ana": activePlayer(1, "ana", 0),
		"ben": activePlayer(2, "ben", 0),
		"cal": activePlayer(3, "cal", 0),
		"dee": activePlayer(4, "dee", 0),
		"eve": activePlayer(5, "eve", 0),
	}
}

type settlementFixture struct {
	*serviceFixture
	windowService *testhelpers.MockWindowService
	matcher       *testhelpers.MockWindowMatcher
}

func newSettlementFixture() *settlementFixture {
	return &settlementFixture{
		serviceFixture: newServiceFixture(),
		windowService:  new(testhelpers.MockWindowService),
		matcher:        new(testhelpers.MockWindowMatcher),
	}
}

func (f *settlementFixture) service() *settlementService {
	return NewSettlementService(f.factory, f.windowService, f.matcher, DefaultRules()).(*settlementService)
}

func TestSettlementService_ProcessRoundGamification(t *testing.T) {
	t.Parallel()

	meta := entities.RoundMeta{WindowID: int64Ptr(4), PlayedAt: testNow}

	t.Run("pays participation, upset and DRS awards then settles the window", func(t *testing.T) {
		t.Parallel()
		f := newSettlementFixture()
		f.runs.On("GetByRoundID", mock.Anything, int64(900)).Return(nil, nil)
		f.rounds.On("GetResults", mock.Anything, int64(900)).Return(seasonRoundResults(), nil)
		// table before the round: ben, ana, dee, cal; eve has no points yet
		f.rounds.On("GetSeasonPoints", mock.Anything, int64(5), int64(900)).Return(map[string]int{"ben": 30, "ana": 20, "dee": 15, "cal": 10}, nil)
		f.players.On("GetByNames", mock.Anything, []string{"ana", "ben", "cal", "dee", "eve", "zed"}).Return(roundPlayers(), nil)

		for id := int64(1); id <= 5; id++ {
			f.expectEntry(id, 10, 10, entities.TransactionTypeRoundParticipation)
			f.players.On("IncrementSeasonRounds", mock.Anything, id).Return(nil).Once()
		}
		f.expectEntry(1, 5, 15, entities.TransactionTypeUpsetBonus)
		f.expectEntry(3, 5, 15, entities.TransactionTypeUpsetBonus)
		f.expectEntry(4, 2, 12, entities.TransactionTypeDRSBonus)
		f.expectEntry(5, 4, 14, entities.TransactionTypeDRSBonus)

		f.runs.On("Create", mock.Anything, mock.MatchedBy(func(run *entities.RoundGamificationRun) bool {
			return run.RoundID == 900 && run.PlayersAwarded == 5 && run.TotalAwarded == 66
		})).Return(true, nil)
		f.matcher.On("MatchWindow", mock.Anything, mock.Anything, mock.MatchedBy(func(m entities.RoundMeta) bool {
			return m.RoundID == 900 && *m.WindowID == 4
		})).Return(lockedWindow(4), nil)
		f.windowService.On("SettleWindow", mock.Anything, int64(4), int64(900)).Return(nil)

		result, err := f.service().ProcessRoundGamification(context.Background(), 900, 5, entities.EventTypeSeason, meta)

		require.NoError(t, err)
		assert.False(t, result.AwardsSkipped)
		assert.Equal(t, 5, result.PlayersAwarded)
		assert.Equal(t, int64(66), result.TotalAwarded)
		assert.Equal(t, []string{"zed"}, result.UnknownPlayers)
		require.NotNil(t, result.SettledWindowID)
		assert.Equal(t, int64(4), *result.SettledWindowID)
		assert.Empty(t, result.SettlementError)
		assert.Len(t, f.events.OfType(events.EventTypeRoundProcessed), 1)
		f.assertExpectations(t)
		f.windowService.AssertExpectations(t)
	})

	t.Run("casual rounds pay no upset bonus", func(t *testing.T) {
		t.Parallel()
		f := newSettlementFixture()
		results := seasonRoundResults()[:4]
		f.runs.On("GetByRoundID", mock.Anything, int64(900)).Return(nil, nil)
		f.rounds.On("GetResults", mock.Anything, int64(900)).Return(results, nil)
		f.players.On("GetByNames", mock.Anything, mock.Anything).Return(roundPlayers(), nil)
		for id := int64(1); id <= 4; id++ {
			f.expectEntry(id, 10, 10, entities.TransactionTypeRoundParticipation)
			f.players.On("IncrementSeasonRounds", mock.Anything, id).Return(nil).Once()
		}
		f.expectEntry(4, 2, 12, entities.TransactionTypeDRSBonus)
		f.runs.On("Create", mock.Anything, mock.Anything).Return(true, nil)
		f.matcher.On("MatchWindow", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		result, err := f.service().ProcessRoundGamification(context.Background(), 900, 6, entities.EventTypeCasual, entities.RoundMeta{})

		require.NoError(t, err)
		assert.Equal(t, int64(42), result.TotalAwarded)
		assert.Nil(t, result.SettledWindowID)
		f.rounds.AssertNotCalled(t, "GetSeasonPoints", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("a round already paid is not paid again", func(t *testing.T) {
		t.Parallel()
		f := newSettlementFixture()
		f.runs.On("GetByRoundID", mock.Anything, int64(900)).Return(&entities.RoundGamificationRun{RoundID: 900, PlayersAwarded: 5, TotalAwarded: 66}, nil)
		f.matcher.On("MatchWindow", mock.Anything, mock.Anything, mock.Anything).Return(lockedWindow(4), nil)
		f.windowService.On("SettleWindow", mock.Anything, int64(4), int64(900)).Return(nil)

		result, err := f.service().ProcessRoundGamification(context.Background(), 900, 5, entities.EventTypeSeason, meta)

		require.NoError(t, err)
		assert.True(t, result.AwardsSkipped)
		assert.Equal(t, int64(66), result.TotalAwarded)
		f.players.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
		f.windowService.AssertExpectations(t)
	})

	t.Run("losing the race to a concurrent delivery pays nothing", func(t *testing.T) {
		t.Parallel()
		f := newSettlementFixture()
		results := seasonRoundResults()[:1]
		f.runs.On("GetByRoundID", mock.Anything, int64(900)).Return(nil, nil)
		f.rounds.On("GetResults", mock.Anything, int64(900)).Return(results, nil)
		f.players.On("GetByNames", mock.Anything, mock.Anything).Return(roundPlayers(), nil)
		f.expectEntry(1, 10, 10, entities.TransactionTypeRoundParticipation)
		f.players.On("IncrementSeasonRounds", mock.Anything, int64(1)).Return(nil)
		f.runs.On("Create", mock.Anything, mock.Anything).Return(false, nil)
		f.matcher.On("MatchWindow", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		result, err := f.service().ProcessRoundGamification(context.Background(), 900, 6, entities.EventTypeCasual, entities.RoundMeta{})

		require.NoError(t, err)
		assert.True(t, result.AwardsSkipped)
		assert.Zero(t, result.TotalAwarded)
		f.uow.AssertNotCalled(t, "Commit")
		assert.Empty(t, f.events.OfType(events.EventTypeRoundProcessed))
	})

	t.Run("settlement failure does not fail the round", func(t *testing.T) {
		t.Parallel()
		f := newSettlementFixture()
		f.runs.On("GetByRoundID", mock.Anything, int64(900)).Return(&entities.RoundGamificationRun{RoundID: 900}, nil)
		f.matcher.On("MatchWindow", mock.Anything, mock.Anything, mock.Anything).Return(lockedWindow(4), nil)
		f.windowService.On("SettleWindow", mock.Anything, int64(4), int64(900)).Return(errors.New("2 of 3 blessings failed to resolve"))

		result, err := f.service().ProcessRoundGamification(context.Background(), 900, 5, entities.EventTypeSeason, meta)

		require.NoError(t, err)
		assert.Nil(t, result.SettledWindowID)
		assert.Contains(t, result.SettlementError, "blessings failed")
	})

	t.Run("round without results", func(t *testing.T) {
		t.Parallel()
		f := newSettlementFixture()
		f.runs.On("GetByRoundID", mock.Anything, int64(900)).Return(nil, nil)
		f.rounds.On("GetResults", mock.Anything, int64(900)).Return([]*entities.RoundResult{}, nil)

		_, err := f.service().ProcessRoundGamification(context.Background(), 900, 5, entities.EventTypeSeason, meta)

		require.Error(t, err)
		f.matcher.AssertNotCalled(t, "MatchWindow", mock.Anything, mock.Anything, mock.Anything)
	})
}
