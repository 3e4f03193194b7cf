package services

import (
	"context"
	"errors"
	"fmt"

	"pulp/clock"
	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/interfaces"
	"pulp/events"

	log "github.com/sirupsen/logrus"
)

// WindowHooks are run by the window service as windows change state. Each
// hook runs in its own units of work after the transition it follows, or
// before the transition it guards.
type WindowHooks struct {
	// OnLocked runs after a window moves open -> locked
	OnLocked []func(ctx context.Context, windowID int64) error
	// OnSettle runs before a window moves locked -> settled; any error keeps it locked
	OnSettle []func(ctx context.Context, windowID, roundID int64) error
	// OnExpire runs before a window moves locked -> expired; any error keeps it locked
	OnExpire []func(ctx context.Context, windowID int64) error
}

type windowService struct {
	uowFactory interfaces.UnitOfWorkFactory
	clock      clock.Clock
	rules      Rules
	hooks      WindowHooks
}

// NewWindowService creates a new window service
func NewWindowService(uowFactory interfaces.UnitOfWorkFactory, clk clock.Clock, rules Rules, hooks WindowHooks) interfaces.WindowService {
	return &windowService{
		uowFactory: uowFactory,
		clock:      clk,
		rules:      rules,
		hooks:      hooks,
	}
}

// OpenWindow opens a new wagering window. A window still open blocks it; a
// window that is locked awaiting its round does not.
func (s *windowService) OpenWindow(ctx context.Context, playerID int64) (*entities.Window, error) {
	// An open window past its deadline should not block a new one
	if _, err := s.LockExpiredWindows(ctx); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if _, err := requireActivePlayer(ctx, uow, playerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	existing, err := uow.WindowRepository().GetOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check open window: %w", err)
	}
	if existing != nil {
		return nil, &domain.WindowAlreadyOpenError{
			WindowID:         existing.ID,
			SecondsRemaining: existing.SecondsRemaining(now),
		}
	}

	window := &entities.Window{
		OpenedBy: playerID,
		OpenedAt: now,
		ClosesAt: now.Add(s.rules.WindowDuration),
		Status:   entities.WindowStatusOpen,
	}
	if err := uow.WindowRepository().Create(ctx, window); err != nil {
		if errors.Is(err, domain.ErrWindowAlreadyOpen) {
			// Lost the race to a concurrent opener
			return nil, s.alreadyOpenError(ctx)
		}
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	publishWindowState(uow, window.ID, "", entities.WindowStatusOpen, nil)

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"windowID": window.ID,
		"openedBy": playerID,
		"closesAt": window.ClosesAt,
	}).Info("Opened wagering window")
	return window, nil
}

// alreadyOpenError describes the window that won a concurrent open
func (s *windowService) alreadyOpenError(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return domain.ErrWindowAlreadyOpen
	}
	defer uow.Rollback()

	winner, err := uow.WindowRepository().GetOpen(ctx)
	if err != nil || winner == nil {
		return domain.ErrWindowAlreadyOpen
	}
	return &domain.WindowAlreadyOpenError{
		WindowID:         winner.ID,
		SecondsRemaining: winner.SecondsRemaining(s.clock.Now()),
	}
}

// GetActiveWindow returns the single open or locked window, or nil. Open
// windows past their deadline are locked first.
func (s *windowService) GetActiveWindow(ctx context.Context) (*entities.ActiveWindow, error) {
	if _, err := s.LockExpiredWindows(ctx); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	window, err := uow.WindowRepository().GetOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open window: %w", err)
	}
	if window == nil {
		window, err = uow.WindowRepository().GetLatestLocked(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get locked window: %w", err)
		}
	}
	return entities.NewActiveWindow(window, s.clock.Now()), nil
}

// LockExpiredWindows moves every open window past its deadline to locked and
// runs the close rules for each. Safe to call with nothing to do.
func (s *windowService) LockExpiredWindows(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	locked, err := uow.WindowRepository().LockExpired(ctx, s.clock.Now(), s.rules.WindowExpiry)
	if err != nil {
		return 0, fmt.Errorf("failed to lock expired windows: %w", err)
	}
	for _, w := range locked {
		publishWindowState(uow, w.ID, entities.WindowStatusOpen, entities.WindowStatusLocked, nil)
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}

	// The lock is committed; close rules ignore the caller's cancellation
	hookCtx := context.WithoutCancel(ctx)
	for _, w := range locked {
		log.WithFields(log.Fields{
			"windowID":  w.ID,
			"expiresAt": w.ExpiresAt,
		}).Info("Locked wagering window")

		for _, hook := range s.hooks.OnLocked {
			if err := hook(hookCtx, w.ID); err != nil {
				log.WithError(err).WithField("windowID", w.ID).Error("Window close rules failed")
			}
		}
	}
	return len(locked), nil
}

// ExpireStaleWindows refunds every locked window whose expiry passed without
// a matching round and marks it expired. A window whose refunds did not all
// succeed stays locked for the next sweep.
func (s *windowService) ExpireStaleWindows(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	stale, err := uow.WindowRepository().ListExpiredLocked(ctx, s.clock.Now())
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list stale windows: %w", err)
	}

	expired := 0
	for _, w := range stale {
		if err := s.expireWindow(ctx, w); err != nil {
			log.WithError(err).WithField("windowID", w.ID).Error("Failed to expire window")
			continue
		}
		expired++
	}

	if len(stale) > 0 {
		log.WithFields(log.Fields{
			"stale":   len(stale),
			"expired": expired,
			"failed":  len(stale) - expired,
		}).Info("Expired stale windows")
	}
	return expired, nil
}

func (s *windowService) expireWindow(ctx context.Context, w *entities.Window) error {
	var hookErrs []error
	for _, hook := range s.hooks.OnExpire {
		if err := hook(ctx, w.ID); err != nil {
			hookErrs = append(hookErrs, err)
		}
	}
	if len(hookErrs) > 0 {
		return fmt.Errorf("refunds incomplete: %w", errors.Join(hookErrs...))
	}

	return s.transition(ctx, w.ID, entities.WindowStatusLocked, entities.WindowStatusExpired, nil)
}

// SettleWindow resolves a locked window's wagers against a round and marks it
// settled. Re-running it on a settled window is a no-op.
func (s *windowService) SettleWindow(ctx context.Context, windowID, roundID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	window, err := uow.WindowRepository().GetByID(ctx, windowID)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to get window: %w", err)
	}
	if window == nil {
		return domain.NewNotFoundError("window", windowID)
	}
	if window.Status == entities.WindowStatusSettled {
		return nil
	}
	if !window.IsLocked() {
		return domain.NewBusinessLogicError("window_not_locked",
			fmt.Sprintf("window %d is %s and cannot be settled", windowID, window.Status))
	}

	var hookErrs []error
	for _, hook := range s.hooks.OnSettle {
		if err := hook(ctx, windowID, roundID); err != nil {
			hookErrs = append(hookErrs, err)
		}
	}
	if len(hookErrs) > 0 {
		return fmt.Errorf("settlement incomplete for window %d: %w", windowID, errors.Join(hookErrs...))
	}

	if err := s.transition(ctx, windowID, entities.WindowStatusLocked, entities.WindowStatusSettled, &roundID); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"windowID": windowID,
		"roundID":  roundID,
	}).Info("Settled wagering window")
	return nil
}

func (s *windowService) transition(ctx context.Context, windowID int64, from, to entities.WindowStatus, roundID *int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	moved, err := uow.WindowRepository().Transition(ctx, windowID, from, to, roundID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to move window to %s: %w", to, err)
	}
	if !moved {
		// Someone else already moved it
		return nil
	}
	publishWindowState(uow, windowID, from, to, roundID)
	return uow.Commit()
}

func publishWindowState(uow interfaces.UnitOfWork, windowID int64, from, to entities.WindowStatus, roundID *int64) {
	event := events.WindowStateChangedEvent{
		WindowID:  windowID,
		OldStatus: from,
		NewStatus: to,
		RoundID:   roundID,
	}
	if err := uow.EventBus().Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish window state event")
	}
}
