package repository

import (
	"context"
	"fmt"

	"pulp/database"
	"pulp/domain"
	"pulp/domain/interfaces"
	"pulp/events"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	playerRepo       interfaces.PlayerRepository
	transactionRepo  interfaces.TransactionRepository
	windowRepo       interfaces.WindowRepository
	blessingRepo     interfaces.BlessingRepository
	challengeRepo    interfaces.ChallengeRepository
	advantageRepo    interfaces.AdvantageRepository
	roundRepo        interfaces.RoundRepository
	participantRepo  interfaces.ParticipantRepository
	roundRunRepo     interfaces.RoundRunRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return &domain.StorageError{Op: "begin", Err: err}
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.playerRepo = newPlayerRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.windowRepo = newWindowRepositoryWithTx(tx)
	u.blessingRepo = newBlessingRepositoryWithTx(tx)
	u.challengeRepo = newChallengeRepositoryWithTx(tx)
	u.advantageRepo = newAdvantageRepositoryWithTx(tx)
	u.roundRepo = newRoundRepositoryWithTx(tx)
	u.participantRepo = newParticipantRepositoryWithTx(tx)
	u.roundRunRepo = newRoundRunRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return &domain.StorageError{Op: "commit", Err: err}
	}

	// Flush pending events after successful commit
	u.transactionalBus.Flush()
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	// The request context may already be cancelled; the rollback must still reach the store
	err := u.tx.Rollback(context.WithoutCancel(u.ctx))
	u.tx = nil
	u.transactionalBus.Discard()
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// PlayerRepository returns the player repository for this unit of work
func (u *unitOfWork) PlayerRepository() interfaces.PlayerRepository {
	if u.playerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.playerRepo
}

// TransactionRepository returns the ledger repository for this unit of work
func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// WindowRepository returns the window repository for this unit of work
func (u *unitOfWork) WindowRepository() interfaces.WindowRepository {
	if u.windowRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.windowRepo
}

// BlessingRepository returns the blessing repository for this unit of work
func (u *unitOfWork) BlessingRepository() interfaces.BlessingRepository {
	if u.blessingRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.blessingRepo
}

// ChallengeRepository returns the challenge repository for this unit of work
func (u *unitOfWork) ChallengeRepository() interfaces.ChallengeRepository {
	if u.challengeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.challengeRepo
}

// AdvantageRepository returns the advantage repository for this unit of work
func (u *unitOfWork) AdvantageRepository() interfaces.AdvantageRepository {
	if u.advantageRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.advantageRepo
}

// RoundRepository returns the round repository for this unit of work
func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	if u.roundRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roundRepo
}

// ParticipantRepository returns the participant registry for this unit of work
func (u *unitOfWork) ParticipantRepository() interfaces.ParticipantRepository {
	if u.participantRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.participantRepo
}

// RoundRunRepository returns the round run repository for this unit of work
func (u *unitOfWork) RoundRunRepository() interfaces.RoundRunRepository {
	if u.roundRunRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roundRunRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
