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

type ledgerService struct {
	uowFactory interfaces.UnitOfWorkFactory
	pageLimit  int
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory interfaces.UnitOfWorkFactory, rules Rules) interfaces.LedgerService {
	pageLimit := rules.TransactionPageLimit
	if pageLimit <= 0 {
		pageLimit = DefaultRules().TransactionPageLimit
	}
	return &ledgerService{
		uowFactory: uowFactory,
		pageLimit:  pageLimit,
	}
}

// Credit increases a player's balance
func (s *ledgerService) Credit(ctx context.Context, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	return s.mutate(ctx, func(uow interfaces.UnitOfWork) (*entities.Transaction, error) {
		return credit(ctx, uow, playerID, amount, txType, description, metadata)
	})
}

// Debit decreases a player's balance
func (s *ledgerService) Debit(ctx context.Context, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	return s.mutate(ctx, func(uow interfaces.UnitOfWork) (*entities.Transaction, error) {
		return debit(ctx, uow, playerID, amount, txType, description, metadata)
	})
}

func (s *ledgerService) mutate(ctx context.Context, apply func(uow interfaces.UnitOfWork) (*entities.Transaction, error)) (*entities.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	tx, err := apply(uow)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetBalance returns a player's current balance
func (s *ledgerService) GetBalance(ctx context.Context, playerID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return 0, domain.NewNotFoundError("player", playerID)
	}
	return player.Balance, nil
}

// GetTransactionHistory returns a page of the player's ledger, newest first.
// The page size is capped.
func (s *ledgerService) GetTransactionHistory(ctx context.Context, playerID int64, limit, offset int) ([]*entities.Transaction, error) {
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "cannot be negative")
	}
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	history, err := uow.TransactionRepository().GetByPlayer(ctx, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return history, nil
}

// GetPlayerStats returns aggregated ledger totals
func (s *ledgerService) GetPlayerStats(ctx context.Context, playerID int64) (*entities.PlayerStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, domain.NewNotFoundError("player", playerID)
	}

	stats, err := uow.TransactionRepository().GetStats(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	stats.PlayerID = playerID
	stats.Balance = player.Balance
	return stats, nil
}

// RegisterPlayer creates a player. A positive startingBalance is credited as
// an initial entry so the balance stays equal to the ledger sum.
func (s *ledgerService) RegisterPlayer(ctx context.Context, name string, startingBalance int64) (*entities.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if startingBalance < 0 {
		return nil, domain.NewValidationError("starting_balance", "cannot be negative")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().Create(ctx, name)
	if err != nil {
		return nil, err
	}

	if startingBalance > 0 {
		tx, err := credit(ctx, uow, player.ID, startingBalance, entities.TransactionTypeInitial,
			"Starting balance", map[string]any{"name": name})
		if err != nil {
			return nil, fmt.Errorf("failed to credit starting balance: %w", err)
		}
		player.Balance = tx.BalanceAfter
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"playerID":        player.ID,
		"name":            name,
		"startingBalance": startingBalance,
	}).Info("Registered player")
	return player, nil
}

// DeactivatePlayer marks a player inactive. Their ledger is kept.
func (s *ledgerService) DeactivatePlayer(ctx context.Context, playerID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return domain.NewNotFoundError("player", playerID)
	}
	if err := uow.PlayerRepository().Deactivate(ctx, playerID); err != nil {
		return fmt.Errorf("failed to deactivate player: %w", err)
	}
	return uow.Commit()
}
