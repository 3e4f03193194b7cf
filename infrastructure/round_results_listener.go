package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"pulp/application"
	"pulp/application/dto"

	log "github.com/sirupsen/logrus"
)

// Subscriber registers a handler on a subject
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error
}

// RoundResultsListener decodes round producer messages and hands them to the application layer
type RoundResultsListener struct {
	roundHandler application.RoundHandler
}

// NewRoundResultsListener creates a new round results listener
func NewRoundResultsListener(roundHandler application.RoundHandler) *RoundResultsListener {
	return &RoundResultsListener{roundHandler: roundHandler}
}

// Start subscribes to the round results subject and to its participants sibling
func (l *RoundResultsListener) Start(ctx context.Context, subscriber Subscriber, subject string) error {
	if err := subscriber.Subscribe(ctx, subject, l.HandleRoundCompleted); err != nil {
		return err
	}
	return subscriber.Subscribe(ctx, ParticipantsSubject(subject), l.HandleParticipantsRegistered)
}

// ParticipantsSubject derives the participant registration subject from the round results subject
func ParticipantsSubject(roundSubject string) string {
	return roundSubject + ".participants"
}

// HandleRoundCompleted processes one round completed message
func (l *RoundResultsListener) HandleRoundCompleted(ctx context.Context, data []byte) error {
	var round dto.RoundCompletedDTO
	if err := json.Unmarshal(data, &round); err != nil {
		// Redelivering a payload that does not parse cannot succeed
		log.WithFields(log.Fields{
			"error": err,
			"size":  len(data),
		}).Error("Dropping malformed round completed message")
		return nil
	}

	log.WithFields(log.Fields{
		"roundID": round.RoundID,
		"eventID": round.EventID,
		"players": len(round.Players),
	}).Debug("Processing round completed message")

	if err := l.roundHandler.HandleRoundCompleted(ctx, round); err != nil {
		return fmt.Errorf("failed to handle round %d: %w", round.RoundID, err)
	}
	return nil
}

// HandleParticipantsRegistered processes one participant registration message
func (l *RoundResultsListener) HandleParticipantsRegistered(ctx context.Context, data []byte) error {
	var participants dto.ParticipantsRegisteredDTO
	if err := json.Unmarshal(data, &participants); err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"size":  len(data),
		}).Error("Dropping malformed participants message")
		return nil
	}
	return l.roundHandler.HandleParticipantsRegistered(ctx, participants)
}
