package application

import (
	"context"

	"pulp/application/dto"
)

// RoundHandler is called by the infrastructure layer for round producer messages
type RoundHandler interface {
	// HandleRoundCompleted records a finished round and pays its awards
	HandleRoundCompleted(ctx context.Context, round dto.RoundCompletedDTO) error

	// HandleParticipantsRegistered adds names to an event's participant registry
	HandleParticipantsRegistered(ctx context.Context, participants dto.ParticipantsRegisteredDTO) error
}
