package services

import (
	"context"
	"fmt"

	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/interfaces"
	"pulp/events"

	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	uowFactory    interfaces.UnitOfWorkFactory
	windowService interfaces.WindowService
	matcher       interfaces.WindowMatcher
	rules         Rules
}

// NewSettlementService creates the round settlement orchestrator
func NewSettlementService(uowFactory interfaces.UnitOfWorkFactory, windowService interfaces.WindowService, matcher interfaces.WindowMatcher, rules Rules) interfaces.SettlementService {
	return &settlementService{
		uowFactory:    uowFactory,
		windowService: windowService,
		matcher:       matcher,
		rules:         rules,
	}
}

// ProcessRoundGamification pays every player in the round their
// participation and performance awards, then settles the window the round
// matches. Awards are paid once per round; settlement failures are logged
// and never fail the round.
func (s *settlementService) ProcessRoundGamification(ctx context.Context, roundID, eventID int64, eventType entities.EventType, meta entities.RoundMeta) (*entities.RoundGamificationResult, error) {
	meta.RoundID = roundID

	result, err := s.payAwards(ctx, roundID, eventID, eventType)
	if err != nil {
		return nil, err
	}

	windowID, err := s.settleMatchedWindow(ctx, roundID, meta)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"roundID": roundID,
		}).Error("Window settlement failed, round awards are unaffected")
		result.SettlementError = err.Error()
	}
	result.SettledWindowID = windowID

	log.WithFields(log.Fields{
		"roundID":         roundID,
		"eventID":         eventID,
		"eventType":       eventType,
		"awardsSkipped":   result.AwardsSkipped,
		"playersAwarded":  result.PlayersAwarded,
		"totalAwarded":    result.TotalAwarded,
		"settledWindowID": windowID,
	}).Info("Processed round gamification")
	return result, nil
}

func (s *settlementService) payAwards(ctx context.Context, roundID, eventID int64, eventType entities.EventType) (*entities.RoundGamificationResult, error) {
	result := &entities.RoundGamificationResult{RoundID: roundID}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	previous, err := uow.RoundRunRepository().GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to check round run: %w", err)
	}
	if previous != nil {
		result.AwardsSkipped = true
		result.PlayersAwarded = previous.PlayersAwarded
		result.TotalAwarded = previous.TotalAwarded
		return result, nil
	}

	results, err := uow.RoundRepository().GetResults(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round results: %w", err)
	}
	if len(results) == 0 {
		return nil, domain.NewNotFoundError("round results", roundID)
	}

	var standings *entities.SeasonStandings
	if eventType == entities.EventTypeSeason {
		standings, err = seasonStandings(ctx, uow, eventID, roundID)
		if err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.PlayerName)
	}
	players, err := uow.PlayerRepository().GetByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to get round players: %w", err)
	}

	byType := map[string]int64{}
	for _, r := range results {
		player, ok := players[r.PlayerName]
		if !ok || !player.Active {
			result.UnknownPlayers = append(result.UnknownPlayers, r.PlayerName)
			continue
		}

		awarded, err := s.awardPlayer(ctx, uow, player, r, results, standings, byType)
		if err != nil {
			return nil, fmt.Errorf("failed to award %s: %w", r.PlayerName, err)
		}
		result.PlayersAwarded++
		result.TotalAwarded += awarded
	}

	if len(result.UnknownPlayers) > 0 {
		log.WithFields(log.Fields{
			"roundID": roundID,
			"players": result.UnknownPlayers,
		}).Warn("Round results name players without an active account")
	}

	created, err := uow.RoundRunRepository().Create(ctx, &entities.RoundGamificationRun{
		RoundID:        roundID,
		PlayersAwarded: result.PlayersAwarded,
		TotalAwarded:   result.TotalAwarded,
		ExecutionSummary: map[string]any{
			"event_id":        eventID,
			"event_type":      string(eventType),
			"by_type":         byType,
			"unknown_players": result.UnknownPlayers,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record round run: %w", err)
	}
	if !created {
		// A concurrent delivery of the same round paid first
		result.AwardsSkipped = true
		result.PlayersAwarded = 0
		result.TotalAwarded = 0
		return result, nil
	}

	if err := uow.EventBus().Publish(events.RoundProcessedEvent{
		RoundID:        roundID,
		PlayersAwarded: result.PlayersAwarded,
		TotalAwarded:   result.TotalAwarded,
	}); err != nil {
		log.WithError(err).Error("Failed to publish round processed event")
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

type roundAward struct {
	txType      entities.TransactionType
	amount      int64
	description string
}

// awardPlayer credits one player's participation, upset and DRS awards and
// returns the total
func (s *settlementService) awardPlayer(ctx context.Context, uow interfaces.UnitOfWork, player *entities.Player, r *entities.RoundResult, field []*entities.RoundResult, standings *entities.SeasonStandings, byType map[string]int64) (int64, error) {
	meta := map[string]any{
		"round_id": r.RoundID,
		"rank":     r.Rank,
	}

	awards := []roundAward{
		{entities.TransactionTypeRoundParticipation, s.rules.ParticipationAward, "Round participation"},
	}
	if standings != nil {
		if upsets := standings.UpsetCount(r, field); upsets > 0 {
			awards = append(awards, roundAward{entities.TransactionTypeUpsetBonus, int64(upsets) * s.rules.UpsetBonus, fmt.Sprintf("Upset bonus, finished ahead of %d higher-ranked players", upsets)})
		}
	}
	if drs := entities.DRSBonus(r.Rank); drs > 0 {
		awards = append(awards, roundAward{entities.TransactionTypeDRSBonus, drs, fmt.Sprintf("DRS bonus for finishing %d", r.Rank)})
	}

	var total int64
	for _, a := range awards {
		if a.amount <= 0 {
			continue
		}
		if _, err := credit(ctx, uow, player.ID, a.amount, a.txType, a.description, meta); err != nil {
			return 0, err
		}
		byType[string(a.txType)] += a.amount
		total += a.amount
	}

	if err := uow.PlayerRepository().IncrementSeasonRounds(ctx, player.ID); err != nil {
		return 0, fmt.Errorf("failed to count round: %w", err)
	}
	return total, nil
}

// settleMatchedWindow finds the locked window this round settles and settles it
func (s *settlementService) settleMatchedWindow(ctx context.Context, roundID int64, meta entities.RoundMeta) (*int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	window, err := s.matcher.MatchWindow(ctx, uow.WindowRepository(), meta)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to match window: %w", err)
	}
	if window == nil {
		log.WithField("roundID", roundID).Debug("No locked window matches round")
		return nil, nil
	}

	if err := s.windowService.SettleWindow(ctx, window.ID, roundID); err != nil {
		return nil, err
	}
	return &window.ID, nil
}
