package application

import (
	"context"
	"errors"
	"fmt"

	"pulp/application/dto"
	"pulp/domain"
	"pulp/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type roundHandler struct {
	roundResults interfaces.RoundResultsService
}

// NewRoundHandler creates a handler that feeds producer messages to the round results service
func NewRoundHandler(roundResults interfaces.RoundResultsService) RoundHandler {
	return &roundHandler{roundResults: roundResults}
}

// HandleRoundCompleted records the round. Malformed reports are logged and
// dropped since redelivery cannot fix them; storage failures are returned so
// the message is retried.
func (h *roundHandler) HandleRoundCompleted(ctx context.Context, round dto.RoundCompletedDTO) error {
	report := round.ToRoundReport()

	result, err := h.roundResults.RecordRound(ctx, report)
	if err != nil {
		if isPermanent(err) {
			log.WithFields(log.Fields{
				"roundID": round.RoundID,
				"eventID": round.EventID,
				"error":   err,
			}).Warn("Dropping round report that cannot be processed")
			return nil
		}
		return fmt.Errorf("failed to record round %d: %w", round.RoundID, err)
	}

	fields := log.Fields{
		"roundID":        result.RoundID,
		"awardsSkipped":  result.AwardsSkipped,
		"playersAwarded": result.PlayersAwarded,
		"totalAwarded":   result.TotalAwarded,
	}
	if result.SettledWindowID != nil {
		fields["settledWindowID"] = *result.SettledWindowID
	}
	if len(result.UnknownPlayers) > 0 {
		fields["unknownPlayers"] = result.UnknownPlayers
	}
	if result.SettlementError != "" {
		fields["settlementError"] = result.SettlementError
		log.WithFields(fields).Warn("Round recorded but its window was not settled")
		return nil
	}
	log.WithFields(fields).Info("Round recorded")
	return nil
}

// HandleParticipantsRegistered adds the names to the event's registry
func (h *roundHandler) HandleParticipantsRegistered(ctx context.Context, participants dto.ParticipantsRegisteredDTO) error {
	if err := h.roundResults.RegisterParticipants(ctx, participants.EventID, participants.Names); err != nil {
		if isPermanent(err) {
			log.WithFields(log.Fields{
				"eventID": participants.EventID,
				"error":   err,
			}).Warn("Dropping participant registration that cannot be processed")
			return nil
		}
		return fmt.Errorf("failed to register participants for event %d: %w", participants.EventID, err)
	}

	log.WithFields(log.Fields{
		"eventID": participants.EventID,
		"count":   len(participants.Names),
	}).Info("Participants registered")
	return nil
}

// isPermanent reports errors a retry cannot fix
func isPermanent(err error) bool {
	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return false
	}
	return domain.IsValidation(err) || domain.IsBusinessLogic(err) || domain.IsNotFound(err)
}
