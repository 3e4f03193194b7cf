package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulp/domain"
	"pulp/domain/entities"
	"pulp/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWindowService_OpenWindow(t *testing.T) {
	t.Parallel()

	t.Run("opens a thirty minute window", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.windows.On("LockExpired", mock.Anything, testNow, 15*24*time.Hour).Return([]*entities.Window{}, nil)
		f.players.On("GetByID", mock.Anything, int64(2)).Return(activePlayer(2, "ben", 0), nil)
		f.windows.On("GetOpen", mock.Anything).Return(nil, nil)
		f.windows.On("Create", mock.Anything, mock.MatchedBy(func(w *entities.Window) bool {
			return w.OpenedBy == 2 && w.IsOpen() && w.ClosesAt.Equal(testNow.Add(30*time.Minute))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Window).ID = 8
		}).Return(nil)

		service := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{})
		window, err := service.OpenWindow(context.Background(), 2)

		require.NoError(t, err)
		assert.Equal(t, int64(8), window.ID)

		published := f.events.OfType(events.EventTypeWindowStateChanged)
		require.Len(t, published, 1)
		assert.Equal(t, entities.WindowStatusOpen, published[0].(events.WindowStateChangedEvent).NewStatus)
		f.assertExpectations(t)
	})

	t.Run("reports the seconds left on the open window", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		existing := openWindow(3)
		existing.ClosesAt = testNow.Add(10*time.Minute + 500*time.Millisecond)
		f.windows.On("LockExpired", mock.Anything, mock.Anything, mock.Anything).Return([]*entities.Window{}, nil)
		f.players.On("GetByID", mock.Anything, int64(2)).Return(activePlayer(2, "ben", 0), nil)
		f.windows.On("GetOpen", mock.Anything).Return(existing, nil)

		service := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{})
		_, err := service.OpenWindow(context.Background(), 2)

		var openErr *domain.WindowAlreadyOpenError
		require.ErrorAs(t, err, &openErr)
		assert.Equal(t, int64(3), openErr.WindowID)
		assert.Equal(t, int64(601), openErr.SecondsRemaining)
		assert.ErrorIs(t, err, domain.ErrWindowAlreadyOpen)
		f.windows.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("losing a concurrent open reports the winner", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.windows.On("LockExpired", mock.Anything, mock.Anything, mock.Anything).Return([]*entities.Window{}, nil)
		f.players.On("GetByID", mock.Anything, int64(2)).Return(activePlayer(2, "ben", 0), nil)
		f.windows.On("GetOpen", mock.Anything).Return(nil, nil).Once()
		f.windows.On("Create", mock.Anything, mock.Anything).Return(domain.ErrWindowAlreadyOpen)
		f.windows.On("GetOpen", mock.Anything).Return(openWindow(9), nil).Once()

		service := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{})
		_, err := service.OpenWindow(context.Background(), 2)

		var openErr *domain.WindowAlreadyOpenError
		require.ErrorAs(t, err, &openErr)
		assert.Equal(t, int64(9), openErr.WindowID)
		assert.Equal(t, int64(25*60), openErr.SecondsRemaining)
	})

	t.Run("deactivated player", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.windows.On("LockExpired", mock.Anything, mock.Anything, mock.Anything).Return([]*entities.Window{}, nil)
		f.players.On("GetByID", mock.Anything, int64(2)).Return(&entities.Player{ID: 2, Name: "ben"}, nil)

		_, err := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{}).OpenWindow(context.Background(), 2)

		assert.ErrorIs(t, err, domain.ErrPlayerInactive)
	})
}

func TestWindowService_GetActiveWindow(t *testing.T) {
	t.Parallel()

	t.Run("prefers the open window", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.windows.On("LockExpired", mock.Anything, mock.Anything, mock.Anything).Return([]*entities.Window{}, nil)
		f.windows.On("GetOpen", mock.Anything).Return(openWindow(5), nil)

		active, err := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{}).GetActiveWindow(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(5), active.ID)
		assert.Equal(t, int64(1500), active.SecondsRemaining)
		f.windows.AssertNotCalled(t, "GetLatestLocked", mock.Anything)
	})

	t.Run("falls back to the locked window", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.windows.On("LockExpired", mock.Anything, mock.Anything, mock.Anything).Return([]*entities.Window{}, nil)
		f.windows.On("GetOpen", mock.Anything).Return(nil, nil)
		f.windows.On("GetLatestLocked", mock.Anything).Return(lockedWindow(4), nil)

		active, err := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{}).GetActiveWindow(context.Background())

		require.NoError(t, err)
		assert.Equal(t, entities.WindowStatusLocked, active.Status)
		assert.Zero(t, active.SecondsRemaining)
	})

	t.Run("nothing active", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.windows.On("LockExpired", mock.Anything, mock.Anything, mock.Anything).Return([]*entities.Window{}, nil)
		f.windows.On("GetOpen", mock.Anything).Return(nil, nil)
		f.windows.On("GetLatestLocked", mock.Anything).Return(nil, nil)

		active, err := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{}).GetActiveWindow(context.Background())

		require.NoError(t, err)
		assert.Nil(t, active)
	})
}

func TestWindowService_LockExpiredWindows_RunsCloseRules(t *testing.T) {
	t.Parallel()

	f := newServiceFixture()
	f.windows.On("LockExpired", mock.Anything, testNow, 15*24*time.Hour).Return([]*entities.Window{lockedWindow(6)}, nil)

	var closed []int64
	hooks := WindowHooks{
		OnLocked: []func(ctx context.Context, windowID int64) error{
			func(ctx context.Context, windowID int64) error {
				closed = append(closed, windowID)
				return nil
			},
			func(ctx context.Context, windowID int64) error {
				return errors.New("close rules failed")
			},
		},
	}

	count, err := NewWindowService(f.factory, f.clock, DefaultRules(), hooks).LockExpiredWindows(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []int64{6}, closed)

	published := f.events.OfType(events.EventTypeWindowStateChanged)
	require.Len(t, published, 1)
	event := published[0].(events.WindowStateChangedEvent)
	assert.Equal(t, entities.WindowStatusOpen, event.OldStatus)
	assert.Equal(t, entities.WindowStatusLocked, event.NewStatus)
}

func TestWindowService_ExpireStaleWindows(t *testing.T) {
	t.Parallel()

	f := newServiceFixture()
	f.windows.On("ListExpiredLocked", mock.Anything, testNow).Return([]*entities.Window{lockedWindow(1), lockedWindow(2)}, nil)
	f.windows.On("Transition", mock.Anything, int64(1), entities.WindowStatusLocked, entities.WindowStatusExpired, (*int64)(nil), testNow).Return(true, nil)

	hooks := WindowHooks{
		OnExpire: []func(ctx context.Context, windowID int64) error{
			func(ctx context.Context, windowID int64) error {
				if windowID == 2 {
					return errors.New("refund failed")
				}
				return nil
			},
		},
	}

	count, err := NewWindowService(f.factory, f.clock, DefaultRules(), hooks).ExpireStaleWindows(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	f.windows.AssertNotCalled(t, "Transition", mock.Anything, int64(2), mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestWindowService_SettleWindow(t *testing.T) {
	t.Parallel()

	settleHooks := func(calls *[]int64, fail bool) WindowHooks {
		return WindowHooks{
			OnSettle: []func(ctx context.Context, windowID, roundID int64) error{
				func(ctx context.Context, windowID, roundID int64) error {
					*calls = append(*calls, roundID)
					if fail {
						return errors.New("challenge resolution failed")
					}
					return nil
				},
			},
		}
	}

	t.Run("resolves wagers then marks the window settled", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		var calls []int64
		f.windows.On("GetByID", mock.Anything, int64(4)).Return(lockedWindow(4), nil)
		f.windows.On("Transition", mock.Anything, int64(4), entities.WindowStatusLocked, entities.WindowStatusSettled, int64Ptr(900), testNow).Return(true, nil)

		err := NewWindowService(f.factory, f.clock, DefaultRules(), settleHooks(&calls, false)).SettleWindow(context.Background(), 4, 900)

		require.NoError(t, err)
		assert.Equal(t, []int64{900}, calls)
		require.Len(t, f.events.OfType(events.EventTypeWindowStateChanged), 1)
		f.assertExpectations(t)
	})

	t.Run("hook failure keeps the window locked", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		var calls []int64
		f.windows.On("GetByID", mock.Anything, int64(4)).Return(lockedWindow(4), nil)

		err := NewWindowService(f.factory, f.clock, DefaultRules(), settleHooks(&calls, true)).SettleWindow(context.Background(), 4, 900)

		assert.ErrorContains(t, err, "settlement incomplete")
		f.windows.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("settled window is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		var calls []int64
		settled := lockedWindow(4)
		settled.Status = entities.WindowStatusSettled
		f.windows.On("GetByID", mock.Anything, int64(4)).Return(settled, nil)

		err := NewWindowService(f.factory, f.clock, DefaultRules(), settleHooks(&calls, false)).SettleWindow(context.Background(), 4, 900)

		require.NoError(t, err)
		assert.Empty(t, calls)
	})

	t.Run("open window cannot be settled", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		var calls []int64
		f.windows.On("GetByID", mock.Anything, int64(4)).Return(openWindow(4), nil)

		err := NewWindowService(f.factory, f.clock, DefaultRules(), settleHooks(&calls, false)).SettleWindow(context.Background(), 4, 900)

		assert.True(t, domain.IsBusinessLogic(err))
		assert.Empty(t, calls)
	})

	t.Run("unknown window", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.windows.On("GetByID", mock.Anything, int64(4)).Return(nil, nil)

		err := NewWindowService(f.factory, f.clock, DefaultRules(), WindowHooks{}).SettleWindow(context.Background(), 4, 900)

		assert.True(t, domain.IsNotFound(err))
	})
}
