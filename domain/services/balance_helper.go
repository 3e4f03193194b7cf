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

// credit increases a balance inside uow and appends the matching entry
func credit(ctx context.Context, uow interfaces.UnitOfWork, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	return applyBalanceChange(ctx, uow, playerID, amount, txType, description, metadata)
}

// debit decreases a balance inside uow and appends the matching entry. The
// store refuses the update rather than letting the balance go negative.
func debit(ctx context.Context, uow interfaces.UnitOfWork, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	return applyBalanceChange(ctx, uow, playerID, -amount, txType, description, metadata)
}

func applyBalanceChange(ctx context.Context, uow interfaces.UnitOfWork, playerID, delta int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error) {
	newBalance, err := uow.PlayerRepository().AdjustBalance(ctx, playerID, delta)
	if err != nil {
		return nil, err
	}

	tx := &entities.Transaction{
		PlayerID:     playerID,
		Amount:       delta,
		BalanceAfter: newBalance,
		Type:         txType,
		Description:  description,
		Metadata:     metadata,
	}
	if err := RecordBalanceChange(ctx, uow, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// recordNotice appends a zero-amount transparency entry at the player's current balance
func recordNotice(ctx context.Context, uow interfaces.UnitOfWork, playerID, balance int64, txType entities.TransactionType, description string, metadata map[string]any) error {
	return RecordBalanceChange(ctx, uow, &entities.Transaction{
		PlayerID:     playerID,
		Amount:       0,
		BalanceAfter: balance,
		Type:         txType,
		Description:  description,
		Metadata:     metadata,
	})
}

// RecordBalanceChange appends a ledger entry and emits a BalanceChangedEvent.
// This is the single entry point for ledger rows in the system; the balance
// itself must already reflect tx.Amount.
func RecordBalanceChange(ctx context.Context, uow interfaces.UnitOfWork, tx *entities.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	if err := uow.TransactionRepository().Create(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	event := events.BalanceChangedEvent{
		PlayerID:        tx.PlayerID,
		TransactionID:   tx.ID,
		OldBalance:      tx.BalanceAfter - tx.Amount,
		NewBalance:      tx.BalanceAfter,
		Amount:          tx.Amount,
		TransactionType: tx.Type,
	}
	log.WithFields(log.Fields{
		"playerID":        event.PlayerID,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
		"amount":          event.Amount,
	}).Debug("Publishing BalanceChangedEvent")
	if err := uow.EventBus().Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance changed event")
	}
	return nil
}

// requireActivePlayer loads a player and rejects unknown or deactivated ones
func requireActivePlayer(ctx context.Context, uow interfaces.UnitOfWork, playerID int64) (*entities.Player, error) {
	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, domain.NewNotFoundError("player", playerID)
	}
	if !player.Active {
		return nil, domain.ErrPlayerInactive
	}
	return player, nil
}
