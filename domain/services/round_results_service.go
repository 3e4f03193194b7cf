package services

import (
	"context"
	"fmt"
	"strings"

	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type roundResultsService struct {
	uowFactory interfaces.UnitOfWorkFactory
	settlement interfaces.SettlementService
}

// NewRoundResultsService creates the ingest point for the results producer
func NewRoundResultsService(uowFactory interfaces.UnitOfWorkFactory, settlement interfaces.SettlementService) interfaces.RoundResultsService {
	return &roundResultsService{
		uowFactory: uowFactory,
		settlement: settlement,
	}
}

// RecordRound stores a completed round and runs its gamification.
// Re-delivering the same round replaces its results but pays no awards twice.
func (s *roundResultsService) RecordRound(ctx context.Context, report *entities.RoundReport) (*entities.RoundGamificationResult, error) {
	if err := validateRoundReport(report); err != nil {
		return nil, err
	}

	results := make([]*entities.RoundResult, 0, len(report.Players))
	for _, p := range report.Players {
		r := *p
		r.RoundID = report.RoundID
		r.PlayerName = strings.TrimSpace(r.PlayerName)
		results = append(results, &r)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	previous, err := uow.RoundRepository().GetRound(ctx, report.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to check round: %w", err)
	}
	if previous != nil {
		log.WithField("roundID", report.RoundID).Info("Round re-delivered, replacing its results")
	}

	if err := uow.RoundRepository().SaveRound(ctx, report.Round(), results); err != nil {
		return nil, fmt.Errorf("failed to save round: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"roundID":   report.RoundID,
		"eventID":   report.EventID,
		"eventType": report.EventType,
		"players":   len(results),
	}).Info("Recorded round results")

	if report.MissingSeasonPoints() {
		log.WithFields(log.Fields{
			"roundID": report.RoundID,
			"eventID": report.EventID,
		}).Warn("Season round carries no points, standings will not move")
	}

	return s.settlement.ProcessRoundGamification(ctx, report.RoundID, report.EventID, report.EventType, report.Meta())
}

// RegisterParticipants adds names to an event's participant registry.
// Blank names are dropped; names already registered stay registered.
func (s *roundResultsService) RegisterParticipants(ctx context.Context, eventID int64, names []string) error {
	if eventID <= 0 {
		return domain.NewValidationError("event_id", "is required")
	}
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return domain.NewValidationError("names", "at least one name is required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ParticipantRepository().Register(ctx, eventID, cleaned); err != nil {
		return fmt.Errorf("failed to register participants: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"eventID": eventID,
		"names":   len(cleaned),
	}).Info("Registered event participants")
	return nil
}

func validateRoundReport(report *entities.RoundReport) error {
	if report == nil {
		return domain.NewValidationError("", "round report is required")
	}
	if report.RoundID <= 0 {
		return domain.NewValidationError("round_id", "is required")
	}
	if report.EventID <= 0 {
		return domain.NewValidationError("event_id", "is required")
	}
	switch report.EventType {
	case entities.EventTypeSeason, entities.EventTypeCasual, entities.EventTypeSpecial:
	default:
		return domain.NewValidationError("event_type", fmt.Sprintf("unknown event type %q", report.EventType))
	}
	if report.PlayedAt.IsZero() {
		return domain.NewValidationError("played_at", "is required")
	}
	if len(report.Players) == 0 {
		return domain.NewValidationError("players", "at least one player is required")
	}

	seen := make(map[string]bool, len(report.Players))
	for _, p := range report.Players {
		if p == nil {
			return domain.NewValidationError("players", "contains an empty entry")
		}
		name := strings.TrimSpace(p.PlayerName)
		if name == "" {
			return domain.NewValidationError("players", "every player needs a name")
		}
		if p.Rank <= 0 {
			return domain.NewValidationError("players", fmt.Sprintf("%s has no rank", name))
		}
		if seen[name] {
			return domain.NewValidationError("players", fmt.Sprintf("%s appears twice", name))
		}
		seen[name] = true
	}
	return nil
}
