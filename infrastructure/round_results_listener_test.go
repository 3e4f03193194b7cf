package infrastructure

import (
	"context"
	"errors"
	"testing"

	"pulp/application/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRoundHandler struct {
	mock.Mock
}

func (m *mockRoundHandler) HandleRoundCompleted(ctx context.Context, round dto.RoundCompletedDTO) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *mockRoundHandler) HandleParticipantsRegistered(ctx context.Context, participants dto.ParticipantsRegisteredDTO) error {
	args := m.Called(ctx, participants)
	return args.Error(0)
}

type recordingSubscriber struct {
	subjects []string
}

func (s *recordingSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.subjects = append(s.subjects, subject)
	return nil
}

func TestRoundResultsListener_HandleRoundCompleted(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{
		"round_id": 900,
		"event_id": 5,
		"event_type": "season",
		"played_at": "2026-03-01T18:00:00Z",
		"window_id": 4,
		"players": [
			{"name": "ana", "rank": 1, "total_strokes": 50, "points": 100},
			{"name": "ben", "rank": 2, "total_strokes": 52, "points": 90},
			{"name": "cal", "rank": 3, "total_strokes": 55, "points": 80}
		]
	}`)

	t.Run("decodes and delegates", func(t *testing.T) {
		handler := new(mockRoundHandler)
		listener := NewRoundResultsListener(handler)

		handler.On("HandleRoundCompleted", ctx, mock.MatchedBy(func(r dto.RoundCompletedDTO) bool {
			return r.RoundID == 900 && r.EventID == 5 && len(r.Players) == 3 &&
				r.WindowID != nil && *r.WindowID == 4 && r.Players[2].Name == "cal"
		})).Return(nil)

		require.NoError(t, listener.HandleRoundCompleted(ctx, payload))
		handler.AssertExpectations(t)
	})

	t.Run("malformed payload is acked without delegating", func(t *testing.T) {
		handler := new(mockRoundHandler)
		listener := NewRoundResultsListener(handler)

		assert.NoError(t, listener.HandleRoundCompleted(ctx, []byte("{not json")))
		handler.AssertNotCalled(t, "HandleRoundCompleted", mock.Anything, mock.Anything)
	})

	t.Run("handler error asks for redelivery", func(t *testing.T) {
		handler := new(mockRoundHandler)
		listener := NewRoundResultsListener(handler)

		handler.On("HandleRoundCompleted", ctx, mock.Anything).Return(errors.New("database unavailable"))

		assert.Error(t, listener.HandleRoundCompleted(ctx, payload))
	})
}

func TestRoundResultsListener_HandleParticipantsRegistered(t *testing.T) {
	ctx := context.Background()
	handler := new(mockRoundHandler)
	listener := NewRoundResultsListener(handler)

	handler.On("HandleParticipantsRegistered", ctx, dto.ParticipantsRegisteredDTO{
		EventID: 5,
		Names:   []string{"ana", "ben"},
	}).Return(nil)

	require.NoError(t, listener.HandleParticipantsRegistered(ctx, []byte(`{"event_id":5,"names":["ana","ben"]}`)))
	handler.AssertExpectations(t)
}

func TestRoundResultsListener_Start(t *testing.T) {
	subscriber := &recordingSubscriber{}
	listener := NewRoundResultsListener(new(mockRoundHandler))

	require.NoError(t, listener.Start(context.Background(), subscriber, "rounds.completed"))
	assert.Equal(t, []string{"rounds.completed", "rounds.completed.participants"}, subscriber.subjects)
}
