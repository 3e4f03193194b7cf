package services

import (
	"context"
	"fmt"
	"strings"

	"pulp/clock"
	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/interfaces"
	"pulp/events"

	log "github.com/sirupsen/logrus"
)

type blessingService struct {
	uowFactory interfaces.UnitOfWorkFactory
	clock      clock.Clock
	rules      Rules
}

// NewBlessingService creates a new blessing market
func NewBlessingService(uowFactory interfaces.UnitOfWorkFactory, clk clock.Clock, rules Rules) interfaces.BlessingService {
	return &blessingService{
		uowFactory: uowFactory,
		clock:      clk,
		rules:      rules,
	}
}

// PlaceBlessing debits the wager and records a pending top-three prediction
func (s *blessingService) PlaceBlessing(ctx context.Context, playerID, windowID int64, prediction entities.Podium, wager, eventID int64) (*entities.Blessing, error) {
	prediction = entities.Podium{
		First:  strings.TrimSpace(prediction.First),
		Second: strings.TrimSpace(prediction.Second),
		Third:  strings.TrimSpace(prediction.Third),
	}
	if windowID <= 0 {
		return nil, domain.NewValidationError("window_id", "is required")
	}
	if eventID <= 0 {
		return nil, domain.NewValidationError("event_id", "is required")
	}
	if !prediction.IsComplete() {
		return nil, domain.NewValidationError("predictions", "first, second and third are required")
	}
	if !prediction.IsDistinct() {
		return nil, domain.NewValidationError("predictions", "must name three different players")
	}
	if wager < s.rules.MinWager {
		return nil, domain.ErrMinimumWager.WithMessage("minimum wager is %d PULPs", s.rules.MinWager)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	player, err := requireActivePlayer(ctx, uow, playerID)
	if err != nil {
		return nil, err
	}

	window, err := uow.WindowRepository().GetByIDForShare(ctx, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get window: %w", err)
	}
	if window == nil {
		return nil, domain.NewNotFoundError("window", windowID)
	}
	now := s.clock.Now()
	if !window.AcceptsActions(now) {
		return nil, domain.ErrWindowNotOpen
	}

	existing, err := uow.BlessingRepository().GetByPlayerAndWindow(ctx, playerID, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing blessing: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateBlessing
	}

	registered, err := uow.ParticipantRepository().GetRegisteredNames(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registered participants: %w", err)
	}
	for _, name := range prediction.Names() {
		if !registered[name] {
			return nil, domain.ErrUnregisteredPrediction.WithMessage("%s is not registered for this event", name)
		}
	}

	if !player.CanAfford(wager) {
		return nil, domain.ErrInsufficientBalance.WithMessage("insufficient balance: have %d, need %d", player.Balance, wager)
	}

	if _, err := debit(ctx, uow, playerID, wager, entities.TransactionTypeBlessingLoss,
		fmt.Sprintf("Blessing wager for window %d", windowID),
		map[string]any{
			"window_id":   windowID,
			"event_id":    eventID,
			"predictions": prediction.Names(),
		}); err != nil {
		return nil, err
	}

	blessing := &entities.Blessing{
		PlayerID:    playerID,
		WindowID:    windowID,
		EventID:     eventID,
		Prediction:  prediction,
		WagerAmount: wager,
		Status:      entities.BlessingStatusPending,
		CreatedAt:   now,
	}
	if err := uow.BlessingRepository().Create(ctx, blessing); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"blessingID": blessing.ID,
		"playerID":   playerID,
		"windowID":   windowID,
		"wager":      wager,
	}).Info("Blessing placed")
	return blessing, nil
}

// ResolveBlessingsForWindow settles every pending blessing in a window
// against the round's actual podium. Each blessing is settled on its own; a
// failure is logged and the rest of the batch continues.
func (s *blessingService) ResolveBlessingsForWindow(ctx context.Context, windowID, roundID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	pending, err := uow.BlessingRepository().GetPendingByWindow(ctx, windowID)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to get pending blessings: %w", err)
	}
	results, err := uow.RoundRepository().GetResults(ctx, roundID)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to get round results: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	actual, ok := entities.ActualPodium(results)
	if !ok {
		return fmt.Errorf("round %d has fewer than three finishers", roundID)
	}

	failed := 0
	for _, blessing := range pending {
		if err := s.resolveBlessing(ctx, blessing, actual, roundID); err != nil {
			failed++
			log.WithError(err).WithFields(log.Fields{
				"blessingID": blessing.ID,
				"windowID":   windowID,
				"roundID":    roundID,
			}).Error("Failed to resolve blessing")
		}
	}

	log.WithFields(log.Fields{
		"windowID": windowID,
		"roundID":  roundID,
		"podium":   actual.Names(),
		"resolved": len(pending) - failed,
		"failed":   failed,
	}).Info("Resolved blessings for window")

	if failed > 0 {
		return fmt.Errorf("%d of %d blessings failed to resolve", failed, len(pending))
	}
	return nil
}

func (s *blessingService) resolveBlessing(ctx context.Context, blessing *entities.Blessing, actual entities.Podium, roundID int64) error {
	status, payout := blessing.Evaluate(actual)
	return s.settle(ctx, blessing, status, payout, &roundID, map[string]any{
		"blessing_id": blessing.ID,
		"window_id":   blessing.WindowID,
		"round_id":    roundID,
		"actual":      actual.Names(),
	})
}

// RefundBlessingsForWindow returns the wager of every still-pending blessing
// in a window. Already-refunded blessings are skipped.
func (s *blessingService) RefundBlessingsForWindow(ctx context.Context, windowID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	pending, err := uow.BlessingRepository().GetPendingByWindow(ctx, windowID)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to get pending blessings: %w", err)
	}

	failed := 0
	for _, blessing := range pending {
		err := s.settle(ctx, blessing, entities.BlessingStatusRefunded, blessing.WagerAmount, nil, map[string]any{
			"blessing_id": blessing.ID,
			"window_id":   blessing.WindowID,
		})
		if err != nil {
			failed++
			log.WithError(err).WithFields(log.Fields{
				"blessingID": blessing.ID,
				"windowID":   windowID,
			}).Error("Failed to refund blessing")
		}
	}

	if len(pending) > 0 {
		log.WithFields(log.Fields{
			"windowID": windowID,
			"refunded": len(pending) - failed,
			"failed":   failed,
		}).Info("Refunded blessings for expired window")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d blessing refunds failed", failed, len(pending))
	}
	return nil
}

// settle moves one pending blessing to a terminal status and pays it out in
// a single unit of work
func (s *blessingService) settle(ctx context.Context, blessing *entities.Blessing, status entities.BlessingStatus, payout int64, roundID *int64, metadata map[string]any) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	moved, err := uow.BlessingRepository().MarkResolved(ctx, blessing.ID, status, payout, roundID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to mark blessing %s: %w", status, err)
	}
	if !moved {
		return nil
	}

	if payout > 0 {
		if _, err := credit(ctx, uow, blessing.PlayerID, payout, status.PayoutTransactionType(),
			fmt.Sprintf("Blessing %s for window %d", status, blessing.WindowID), metadata); err != nil {
			return fmt.Errorf("failed to pay blessing: %w", err)
		}
	}

	if err := uow.EventBus().Publish(events.BlessingResolvedEvent{
		BlessingID: blessing.ID,
		PlayerID:   blessing.PlayerID,
		WindowID:   blessing.WindowID,
		Status:     status,
		Payout:     payout,
	}); err != nil {
		log.WithError(err).Error("Failed to publish blessing resolved event")
	}

	return uow.Commit()
}

// GetBlessingsForWindow lists every blessing in a window
func (s *blessingService) GetBlessingsForWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	blessings, err := uow.BlessingRepository().GetByWindow(ctx, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get blessings: %w", err)
	}
	return blessings, nil
}
