package repository

import (
	"context"
	"fmt"

	"pulp/database"
	"pulp/domain/entities"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a ledger entry
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	metadataJSON, err := marshalMetadata(tx.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (player_id, amount, balance_after, type, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		tx.PlayerID,
		tx.Amount,
		tx.BalanceAfter,
		tx.Type,
		tx.Description,
		metadataJSON,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction for player %d: %w", tx.PlayerID, err)
	}
	return nil
}

// GetByPlayer returns a page of entries, newest first
func (r *TransactionRepository) GetByPlayer(ctx context.Context, playerID int64, limit, offset int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, player_id, amount, balance_after, type, description, metadata, created_at
		FROM transactions
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for player %d: %w", playerID, err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		var tx entities.Transaction
		var metadataJSON []byte

		err := rows.Scan(
			&tx.ID,
			&tx.PlayerID,
			&tx.Amount,
			&tx.BalanceAfter,
			&tx.Type,
			&tx.Description,
			&metadataJSON,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if tx.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// GetStats aggregates earned, spent and per-type totals for a player
func (r *TransactionRepository) GetStats(ctx context.Context, playerID int64) (*entities.PlayerStats, error) {
	query := `
		SELECT type, COUNT(*), COALESCE(SUM(amount), 0),
		       COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
		       COALESCE(SUM(-amount) FILTER (WHERE amount < 0), 0)
		FROM transactions
		WHERE player_id = $1
		GROUP BY type
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for player %d: %w", playerID, err)
	}
	defer rows.Close()

	stats := &entities.PlayerStats{
		PlayerID: playerID,
		ByType:   make(map[entities.TransactionType]int64),
	}
	for rows.Next() {
		var txType entities.TransactionType
		var count, net, earned, spent int64
		if err := rows.Scan(&txType, &count, &net, &earned, &spent); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}

		stats.ByType[txType] = net
		stats.TransactionCount += count
		stats.TotalEarned += earned
		stats.TotalSpent += spent
		switch {
		case txType == entities.TransactionTypeChallengeWin:
			stats.ChallengesWon += count
		case txType.IsWinType():
			stats.BlessingsWon += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats: %w", err)
	}
	return stats, nil
}

// SumByPlayer returns the sum of every entry's amount for a player
func (r *TransactionRepository) SumByPlayer(ctx context.Context, playerID int64) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE player_id = $1`, playerID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions for player %d: %w", playerID, err)
	}
	return sum, nil
}
