package interfaces

import "context"

// UnitOfWork groups repository calls into one store transaction. Events
// published through EventBus are delivered only after Commit.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction. It is a no-op after Commit.
	Rollback() error

	// Repository getters
	PlayerRepository() PlayerRepository
	TransactionRepository() TransactionRepository
	WindowRepository() WindowRepository
	BlessingRepository() BlessingRepository
	ChallengeRepository() ChallengeRepository
	AdvantageRepository() AdvantageRepository
	RoundRepository() RoundRepository
	ParticipantRepository() ParticipantRepository
	RoundRunRepository() RoundRunRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
