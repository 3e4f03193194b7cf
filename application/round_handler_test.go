package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulp/application/dto"
	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleRound() dto.RoundCompletedDTO {
	windowID := int64(4)
	return dto.RoundCompletedDTO{
		RoundID:   900,
		EventID:   5,
		EventType: " Season ",
		PlayedAt:  time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		WindowID:  &windowID,
		Players: []dto.RoundFinisherDTO{
			{Name: " ana ", Rank: 1, TotalStrokes: 50, Points: 100},
			{Name: "ben", Rank: 2, TotalStrokes: 52, Points: 90},
			{Name: "cal", Rank: 3, TotalStrokes: 55, Points: 80},
		},
	}
}

func TestRoundHandler_HandleRoundCompleted(t *testing.T) {
	ctx := context.Background()

	t.Run("converts payload and records the round", func(t *testing.T) {
		roundResults := new(testhelpers.MockRoundResultsService)
		handler := NewRoundHandler(roundResults)

		settled := int64(4)
		roundResults.On("RecordRound", ctx, mock.MatchedBy(func(r *entities.RoundReport) bool {
			return r.RoundID == 900 &&
				r.EventType == entities.EventTypeSeason &&
				len(r.Players) == 3 &&
				r.Players[0].PlayerName == "ana" &&
				r.Players[0].RoundID == 900 &&
				r.WindowID != nil && *r.WindowID == 4
		})).Return(&entities.RoundGamificationResult{
			RoundID:         900,
			PlayersAwarded:  3,
			TotalAwarded:    30,
			SettledWindowID: &settled,
		}, nil)

		require.NoError(t, handler.HandleRoundCompleted(ctx, sampleRound()))
		roundResults.AssertExpectations(t)
	})

	t.Run("validation failure is dropped", func(t *testing.T) {
		roundResults := new(testhelpers.MockRoundResultsService)
		handler := NewRoundHandler(roundResults)

		roundResults.On("RecordRound", ctx, mock.Anything).
			Return(nil, domain.NewValidationError("players", "at least three finishers are required"))

		assert.NoError(t, handler.HandleRoundCompleted(ctx, sampleRound()))
	})

	t.Run("storage failure is returned for redelivery", func(t *testing.T) {
		roundResults := new(testhelpers.MockRoundResultsService)
		handler := NewRoundHandler(roundResults)

		storageErr := &domain.StorageError{Op: "commit", Err: errors.New("connection reset")}
		roundResults.On("RecordRound", ctx, mock.Anything).Return(nil, storageErr)

		err := handler.HandleRoundCompleted(ctx, sampleRound())
		require.Error(t, err)
		assert.ErrorIs(t, err, storageErr)
	})

	t.Run("settlement error still acks", func(t *testing.T) {
		roundResults := new(testhelpers.MockRoundResultsService)
		handler := NewRoundHandler(roundResults)

		roundResults.On("RecordRound", ctx, mock.Anything).Return(&entities.RoundGamificationResult{
			RoundID:         900,
			PlayersAwarded:  3,
			TotalAwarded:    30,
			SettlementError: "fewer than three finishers",
		}, nil)

		assert.NoError(t, handler.HandleRoundCompleted(ctx, sampleRound()))
	})
}

func TestRoundHandler_HandleParticipantsRegistered(t *testing.T) {
	ctx := context.Background()

	t.Run("registers names", func(t *testing.T) {
		roundResults := new(testhelpers.MockRoundResultsService)
		handler := NewRoundHandler(roundResults)

		roundResults.On("RegisterParticipants", ctx, int64(5), []string{"ana", "ben"}).Return(nil)

		require.NoError(t, handler.HandleParticipantsRegistered(ctx, dto.ParticipantsRegisteredDTO{
			EventID: 5,
			Names:   []string{"ana", "ben"},
		}))
		roundResults.AssertExpectations(t)
	})

	t.Run("unexpected error is returned", func(t *testing.T) {
		roundResults := new(testhelpers.MockRoundResultsService)
		handler := NewRoundHandler(roundResults)

		roundResults.On("RegisterParticipants", ctx, int64(5), mock.Anything).Return(errors.New("boom"))

		assert.Error(t, handler.HandleParticipantsRegistered(ctx, dto.ParticipantsRegisteredDTO{EventID: 5, Names: []string{"ana"}}))
	})
}
