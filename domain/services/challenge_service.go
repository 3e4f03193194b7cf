package services

import (
	"context"
	"fmt"

	"pulp/clock"
	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/interfaces"
	"pulp/events"

	log "github.com/sirupsen/logrus"
)

const maxChallengeListLimit = 100

type challengeService struct {
	uowFactory interfaces.UnitOfWorkFactory
	clock      clock.Clock
	rules      Rules
}

// NewChallengeService creates a new challenge arena
func NewChallengeService(uowFactory interfaces.UnitOfWorkFactory, clk clock.Clock, rules Rules) interfaces.ChallengeService {
	return &challengeService{
		uowFactory: uowFactory,
		clock:      clk,
		rules:      rules,
	}
}

// IssueChallenge creates a challenge against a higher-standing player. If the
// challenged player already has a pending challenge in this window the new
// one is waitlisted and nothing is debited until it is promoted.
func (s *challengeService) IssueChallenge(ctx context.Context, challengerID, challengedID, windowID, wager int64) (*entities.Challenge, error) {
	if windowID <= 0 {
		return nil, domain.NewValidationError("window_id", "is required")
	}
	if challengedID <= 0 {
		return nil, domain.NewValidationError("challenged_id", "is required")
	}
	if challengerID == challengedID {
		return nil, domain.NewValidationError("challenged_id", "you cannot challenge yourself")
	}
	if wager < s.rules.MinWager {
		return nil, domain.ErrMinimumWager.WithMessage("minimum wager is %d PULPs", s.rules.MinWager)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	challenger, err := requireActivePlayer(ctx, uow, challengerID)
	if err != nil {
		return nil, err
	}

	// The row lock serializes concurrent challenges against the same player so
	// only one of them can take the pending slot
	challenged, err := uow.PlayerRepository().LockForUpdate(ctx, challengedID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock challenged player: %w", err)
	}
	if challenged == nil {
		return nil, domain.NewNotFoundError("player", challengedID)
	}
	if !challenged.Active {
		return nil, domain.ErrPlayerInactive.WithMessage("%s is not an active player", challenged.Name)
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

	existing, err := uow.ChallengeRepository().GetActiveIssuedByChallenger(ctx, challengerID, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing challenge: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateChallenge
	}

	standings, err := currentSeasonStandings(ctx, uow)
	if err != nil {
		return nil, err
	}
	if !standings.IsRankedAbove(challenged.Name, challenger.Name) {
		return nil, domain.ErrRankRestriction
	}

	occupied, err := uow.ChallengeRepository().GetPendingForChallenged(ctx, challengedID, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending challenge: %w", err)
	}

	challenge := &entities.Challenge{
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		WindowID:     windowID,
		WagerAmount:  wager,
		Status:       entities.ChallengeStatusPending,
		IssuedAt:     now,
	}
	if occupied != nil {
		challenge.Status = entities.ChallengeStatusWaiting
	} else if !challenger.CanAfford(wager) {
		return nil, domain.ErrInsufficientBalance.WithMessage("insufficient balance: have %d, need %d", challenger.Balance, wager)
	}

	if err := uow.ChallengeRepository().Create(ctx, challenge); err != nil {
		return nil, err
	}
	if challenge.Status == entities.ChallengeStatusPending {
		if err := s.chargeWager(ctx, uow, challenge, challengerID); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"challengeID":  challenge.ID,
		"challengerID": challengerID,
		"challengedID": challengedID,
		"windowID":     windowID,
		"wager":        wager,
		"status":       challenge.Status,
	}).Info("Challenge issued")
	return challenge, nil
}

// RespondToChallenge accepts or declines a pending challenge. Declining burns
// the cowardice tax from the challenged player and refunds the challenger.
// Either way the next waitlisted challenge against the player is promoted.
func (s *challengeService) RespondToChallenge(ctx context.Context, challengeID, challengedID int64, accept bool) (*entities.Challenge, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	challenge, err := uow.ChallengeRepository().GetByIDForUpdate(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if challenge == nil {
		return nil, domain.NewNotFoundError("challenge", challengeID)
	}
	if challenge.ChallengedID != challengedID {
		return nil, domain.ErrNotChallengedPlayer
	}
	if challenge.Status != entities.ChallengeStatusPending {
		return nil, domain.ErrChallengeNotPending
	}

	window, err := uow.WindowRepository().GetByIDForShare(ctx, challenge.WindowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get window: %w", err)
	}
	now := s.clock.Now()
	if window == nil || !window.AcceptsActions(now) {
		return nil, domain.ErrWindowNotOpen
	}

	responder, err := requireActivePlayer(ctx, uow, challengedID)
	if err != nil {
		return nil, err
	}

	challenge.RespondedAt = &now
	if accept {
		if !responder.CanAfford(challenge.WagerAmount) {
			return nil, domain.ErrInsufficientBalance.WithMessage("insufficient balance: have %d, need %d", responder.Balance, challenge.WagerAmount)
		}
		challenge.Status = entities.ChallengeStatusAccepted
		if err := s.transition(ctx, uow, challenge, entities.ChallengeStatusPending); err != nil {
			return nil, err
		}
		if err := s.chargeWager(ctx, uow, challenge, challengedID); err != nil {
			return nil, err
		}
	} else {
		tax := min(challenge.CowardiceTax(), responder.Balance)
		challenge.Status = entities.ChallengeStatusDeclined
		challenge.CowardiceTaxPaid = tax
		challenge.ResolvedAt = &now
		if err := s.transition(ctx, uow, challenge, entities.ChallengeStatusPending); err != nil {
			return nil, err
		}
		if tax > 0 {
			if _, err := debit(ctx, uow, challengedID, tax, entities.TransactionTypeChallengeDeclinedBurn,
				fmt.Sprintf("Cowardice tax for declining challenge %d", challenge.ID),
				challengeMetadata(challenge)); err != nil {
				return nil, err
			}
		}
		if _, err := credit(ctx, uow, challenge.ChallengerID, challenge.WagerAmount, entities.TransactionTypeChallengeRefund,
			fmt.Sprintf("Challenge %d declined", challenge.ID), challengeMetadata(challenge)); err != nil {
			return nil, err
		}
		if err := uow.PlayerRepository().IncrementChallengesDeclined(ctx, challengedID); err != nil {
			return nil, fmt.Errorf("failed to count decline: %w", err)
		}
		publishChallengeResolved(uow, challenge, "")
	}

	if err := s.promoteWaiting(ctx, uow, challengedID, challenge.WindowID); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"challengeID":  challenge.ID,
		"challengedID": challengedID,
		"accepted":     accept,
		"taxPaid":      challenge.CowardiceTaxPaid,
	}).Info("Challenge answered")
	return challenge, nil
}

// promoteWaiting moves the oldest waitlisted challenge against a player into
// the pending slot and charges its challenger. Waitlisted challenges whose
// challenger can no longer pay are cancelled.
func (s *challengeService) promoteWaiting(ctx context.Context, uow interfaces.UnitOfWork, challengedID, windowID int64) error {
	for {
		next, err := uow.ChallengeRepository().GetOldestWaiting(ctx, challengedID, windowID)
		if err != nil {
			return fmt.Errorf("failed to get waitlisted challenge: %w", err)
		}
		if next == nil {
			return nil
		}

		challenger, err := uow.PlayerRepository().GetByID(ctx, next.ChallengerID)
		if err != nil {
			return fmt.Errorf("failed to get challenger: %w", err)
		}
		if challenger != nil && challenger.Active && challenger.CanAfford(next.WagerAmount) {
			next.Status = entities.ChallengeStatusPending
			if err := s.transition(ctx, uow, next, entities.ChallengeStatusWaiting); err != nil {
				return err
			}
			return s.chargeWager(ctx, uow, next, next.ChallengerID)
		}

		log.WithFields(log.Fields{
			"challengeID":  next.ID,
			"challengerID": next.ChallengerID,
		}).Info("Cancelling waitlisted challenge the challenger can no longer cover")
		next.Status = entities.ChallengeStatusCancelledWaitlist
		if err := s.transition(ctx, uow, next, entities.ChallengeStatusWaiting); err != nil {
			return err
		}
	}
}

// ResolveChallengesForWindow settles every accepted challenge in a window by
// comparing the two players' strokes in the round. Each challenge is settled
// on its own; a failure is logged and the rest of the batch continues.
func (s *challengeService) ResolveChallengesForWindow(ctx context.Context, windowID, roundID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	accepted, err := uow.ChallengeRepository().GetByWindowAndStatus(ctx, windowID, entities.ChallengeStatusAccepted)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to get accepted challenges: %w", err)
	}
	results, err := uow.RoundRepository().GetResults(ctx, roundID)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to get round results: %w", err)
	}

	strokes := entities.StrokesByName(results)
	return s.forEach(ctx, accepted, "resolve", func(uow interfaces.UnitOfWork, c *entities.Challenge) error {
		return s.resolveChallenge(ctx, uow, c, roundID, strokes)
	})
}

func (s *challengeService) resolveChallenge(ctx context.Context, uow interfaces.UnitOfWork, c *entities.Challenge, roundID int64, strokes map[string]int) error {
	challenger, err := s.getParticipant(ctx, uow, c.ChallengerID)
	if err != nil {
		return err
	}
	challenged, err := s.getParticipant(ctx, uow, c.ChallengedID)
	if err != nil {
		return err
	}

	outcome := entities.CompareStrokes(lookupStrokes(strokes, challenger.Name), lookupStrokes(strokes, challenged.Name))
	switch outcome {
	case entities.ChallengeOutcomeChallengerWins:
		c.WinnerID = &c.ChallengerID
	case entities.ChallengeOutcomeChallengedWins:
		c.WinnerID = &c.ChallengedID
	}

	now := s.clock.Now()
	c.Status = entities.ChallengeStatusResolved
	c.RoundID = &roundID
	c.ResolvedAt = &now
	if err := s.transition(ctx, uow, c, entities.ChallengeStatusAccepted); err != nil {
		return err
	}

	meta := challengeMetadata(c)
	meta["round_id"] = roundID
	meta["outcome"] = string(outcome)
	desc := fmt.Sprintf("Challenge %d", c.ID)

	switch outcome {
	case entities.ChallengeOutcomeChallengerWins, entities.ChallengeOutcomeChallengedWins:
		if _, err := credit(ctx, uow, *c.WinnerID, 2*c.WagerAmount, entities.TransactionTypeChallengeWin, desc+" won", meta); err != nil {
			return err
		}
	case entities.ChallengeOutcomeTie:
		if err := s.returnWagers(ctx, uow, c, entities.TransactionTypeAdminAdjustment, desc+" tied", meta); err != nil {
			return err
		}
	case entities.ChallengeOutcomeVoid:
		if err := s.returnWagers(ctx, uow, c, entities.TransactionTypeChallengeRefund, desc+" void, a player did not finish the round", meta); err != nil {
			return err
		}
	}

	publishChallengeResolved(uow, c, outcome)
	return nil
}

func (s *challengeService) getParticipant(ctx context.Context, uow interfaces.UnitOfWork, playerID int64) (*entities.Player, error) {
	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", playerID, err)
	}
	if player == nil {
		return nil, domain.NewNotFoundError("player", playerID)
	}
	return player, nil
}

// ApplyWindowCloseRules runs right after a window locks. Challenges nobody
// answered cost the challenged player the cowardice tax and return the rest
// of the wager to the challenger. Waitlisted challenges are cancelled.
func (s *challengeService) ApplyWindowCloseRules(ctx context.Context, windowID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	pending, err := uow.ChallengeRepository().GetByWindowAndStatus(ctx, windowID, entities.ChallengeStatusPending)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to get pending challenges: %w", err)
	}
	waiting, err := uow.ChallengeRepository().GetByWindowAndStatus(ctx, windowID, entities.ChallengeStatusWaiting)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to get waitlisted challenges: %w", err)
	}

	pendingErr := s.forEach(ctx, pending, "expire", func(uow interfaces.UnitOfWork, c *entities.Challenge) error {
		return s.expireUnanswered(ctx, uow, c)
	})
	waitingErr := s.forEach(ctx, waiting, "cancel", func(uow interfaces.UnitOfWork, c *entities.Challenge) error {
		c.Status = entities.ChallengeStatusCancelledWaitlist
		if err := s.transition(ctx, uow, c, entities.ChallengeStatusWaiting); err != nil {
			return err
		}
		publishChallengeResolved(uow, c, "")
		return nil
	})

	if pendingErr != nil {
		return pendingErr
	}
	return waitingErr
}

func (s *challengeService) expireUnanswered(ctx context.Context, uow interfaces.UnitOfWork, c *entities.Challenge) error {
	challenged, err := uow.PlayerRepository().LockForUpdate(ctx, c.ChallengedID)
	if err != nil {
		return fmt.Errorf("failed to lock challenged player %d: %w", c.ChallengedID, err)
	}
	if challenged == nil {
		return domain.NewNotFoundError("player", c.ChallengedID)
	}

	tax := c.CowardiceTax()
	burn := min(tax, challenged.Balance)
	now := s.clock.Now()
	c.Status = entities.ChallengeStatusExpiredNoResponse
	c.CowardiceTaxPaid = burn
	c.ResolvedAt = &now
	if err := s.transition(ctx, uow, c, entities.ChallengeStatusPending); err != nil {
		return err
	}

	meta := challengeMetadata(c)
	if burn > 0 {
		if _, err := debit(ctx, uow, c.ChallengedID, burn, entities.TransactionTypeChallengeNoResponseBurn,
			fmt.Sprintf("Cowardice tax for ignoring challenge %d", c.ID), meta); err != nil {
			return err
		}
	}
	if refund := c.WagerAmount - tax; refund > 0 {
		if _, err := credit(ctx, uow, c.ChallengerID, refund, entities.TransactionTypeChallengeRefund,
			fmt.Sprintf("Challenge %d went unanswered", c.ID), meta); err != nil {
			return err
		}
	}

	publishChallengeResolved(uow, c, "")
	return nil
}

// RefundChallengesForWindow returns both wagers of every accepted challenge
// in a window that expired without a round. Already-refunded challenges are
// skipped.
func (s *challengeService) RefundChallengesForWindow(ctx context.Context, windowID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	accepted, err := uow.ChallengeRepository().GetByWindowAndStatus(ctx, windowID, entities.ChallengeStatusAccepted)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to get accepted challenges: %w", err)
	}

	return s.forEach(ctx, accepted, "refund", func(uow interfaces.UnitOfWork, c *entities.Challenge) error {
		now := s.clock.Now()
		c.Status = entities.ChallengeStatusResolved
		c.ResolvedAt = &now
		if err := s.transition(ctx, uow, c, entities.ChallengeStatusAccepted); err != nil {
			return err
		}
		if err := s.returnWagers(ctx, uow, c, entities.TransactionTypeWindowExpiredRefund,
			fmt.Sprintf("Challenge %d refunded, window %d expired", c.ID, c.WindowID), challengeMetadata(c)); err != nil {
			return err
		}
		publishChallengeResolved(uow, c, entities.ChallengeOutcomeVoid)
		return nil
	})
}

// GetChallengesForPlayer lists challenges the player issued or received
func (s *challengeService) GetChallengesForPlayer(ctx context.Context, playerID int64, limit int) ([]*entities.Challenge, error) {
	if limit <= 0 || limit > maxChallengeListLimit {
		limit = maxChallengeListLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	challenges, err := uow.ChallengeRepository().GetByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenges: %w", err)
	}
	return challenges, nil
}

// forEach runs fn for each challenge in its own unit of work, logging and
// counting failures instead of stopping
func (s *challengeService) forEach(ctx context.Context, batch []*entities.Challenge, action string, fn func(uow interfaces.UnitOfWork, c *entities.Challenge) error) error {
	failed := 0
	for _, c := range batch {
		if err := s.runOne(ctx, c, fn); err != nil {
			failed++
			log.WithError(err).WithFields(log.Fields{
				"challengeID": c.ID,
				"windowID":    c.WindowID,
				"action":      action,
			}).Error("Failed to settle challenge")
		}
	}

	if len(batch) > 0 {
		log.WithFields(log.Fields{
			"action":    action,
			"processed": len(batch) - failed,
			"failed":    failed,
		}).Info("Processed challenge batch")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d challenges failed to %s", failed, len(batch), action)
	}
	return nil
}

func (s *challengeService) runOne(ctx context.Context, c *entities.Challenge, fn func(uow interfaces.UnitOfWork, c *entities.Challenge) error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	current, err := uow.ChallengeRepository().GetByIDForUpdate(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to lock challenge: %w", err)
	}
	if current == nil || current.Status != c.Status {
		// Already moved on by an earlier run
		return nil
	}

	if err := fn(uow, current); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *challengeService) transition(ctx context.Context, uow interfaces.UnitOfWork, c *entities.Challenge, from entities.ChallengeStatus) error {
	moved, err := uow.ChallengeRepository().Transition(ctx, c, from)
	if err != nil {
		return fmt.Errorf("failed to move challenge %d to %s: %w", c.ID, c.Status, err)
	}
	if !moved {
		return domain.ErrChallengeNotPending.WithMessage("challenge %d is no longer %s", c.ID, from)
	}
	return nil
}

// chargeWager debits one side's stake when a challenge becomes pending or accepted
func (s *challengeService) chargeWager(ctx context.Context, uow interfaces.UnitOfWork, c *entities.Challenge, playerID int64) error {
	_, err := debit(ctx, uow, playerID, c.WagerAmount, entities.TransactionTypeChallengeLoss,
		fmt.Sprintf("Challenge %d wager", c.ID), challengeMetadata(c))
	return err
}

// returnWagers credits each participant their own stake
func (s *challengeService) returnWagers(ctx context.Context, uow interfaces.UnitOfWork, c *entities.Challenge, txType entities.TransactionType, description string, metadata map[string]any) error {
	for _, playerID := range []int64{c.ChallengerID, c.ChallengedID} {
		if _, err := credit(ctx, uow, playerID, c.WagerAmount, txType, description, metadata); err != nil {
			return err
		}
	}
	return nil
}

func challengeMetadata(c *entities.Challenge) map[string]any {
	return map[string]any{
		"challenge_id":  c.ID,
		"window_id":     c.WindowID,
		"challenger_id": c.ChallengerID,
		"challenged_id": c.ChallengedID,
		"wager_amount":  c.WagerAmount,
	}
}

func lookupStrokes(strokes map[string]int, name string) *int {
	v, ok := strokes[name]
	if !ok {
		return nil
	}
	return &v
}

func publishChallengeResolved(uow interfaces.UnitOfWork, c *entities.Challenge, outcome entities.ChallengeOutcome) {
	if err := uow.EventBus().Publish(events.ChallengeResolvedEvent{
		ChallengeID: c.ID,
		WindowID:    c.WindowID,
		Status:      c.Status,
		Outcome:     outcome,
		WinnerID:    c.WinnerID,
	}); err != nil {
		log.WithError(err).Error("Failed to publish challenge resolved event")
	}
}
