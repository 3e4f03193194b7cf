package repository

import (
	"context"
	"fmt"
	"time"

	"pulp/database"
	"pulp/domain/entities"

	"github.com/jackc/pgx/v5"
)

const blessingColumns = `id, player_id, window_id, event_id, prediction_first, prediction_second, prediction_third,
	wager_amount, status, payout_amount, round_id, created_at, resolved_at`

// BlessingRepository implements the BlessingRepository interface
type BlessingRepository struct {
	q queryable
}

// NewBlessingRepository creates a new blessing repository
func NewBlessingRepository(db *database.DB) *BlessingRepository {
	return &BlessingRepository{q: db.Pool}
}

// newBlessingRepositoryWithTx creates a new blessing repository with a transaction
func newBlessingRepositoryWithTx(tx queryable) *BlessingRepository {
	return &BlessingRepository{q: tx}
}

func scanBlessing(row pgx.Row) (*entities.Blessing, error) {
	var b entities.Blessing
	err := row.Scan(
		&b.ID,
		&b.PlayerID,
		&b.WindowID,
		&b.EventID,
		&b.Prediction.First,
		&b.Prediction.Second,
		&b.Prediction.Third,
		&b.WagerAmount,
		&b.Status,
		&b.PayoutAmount,
		&b.RoundID,
		&b.CreatedAt,
		&b.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BlessingRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Blessing, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blessings []*entities.Blessing
	for rows.Next() {
		blessing, err := scanBlessing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blessing: %w", err)
		}
		blessings = append(blessings, blessing)
	}
	return blessings, rows.Err()
}

// Create inserts a pending blessing
func (r *BlessingRepository) Create(ctx context.Context, blessing *entities.Blessing) error {
	query := `
		INSERT INTO blessings (player_id, window_id, event_id, prediction_first, prediction_second,
		                       prediction_third, wager_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		blessing.PlayerID,
		blessing.WindowID,
		blessing.EventID,
		blessing.Prediction.First,
		blessing.Prediction.Second,
		blessing.Prediction.Third,
		blessing.WagerAmount,
	).Scan(&blessing.ID, &blessing.CreatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create blessing for player %d: %w", blessing.PlayerID, err)
	}
	blessing.Status = entities.BlessingStatusPending
	return nil
}

// GetByPlayerAndWindow returns the player's blessing in a window, if any
func (r *BlessingRepository) GetByPlayerAndWindow(ctx context.Context, playerID, windowID int64) (*entities.Blessing, error) {
	query := `SELECT ` + blessingColumns + ` FROM blessings WHERE player_id = $1 AND window_id = $2`

	blessing, err := scanBlessing(r.q.QueryRow(ctx, query, playerID, windowID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blessing for player %d in window %d: %w", playerID, windowID, err)
	}
	return blessing, nil
}

// GetPendingByWindow returns the window's pending blessings, oldest first
func (r *BlessingRepository) GetPendingByWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error) {
	query := `SELECT ` + blessingColumns + ` FROM blessings WHERE window_id = $1 AND status = 'pending' ORDER BY id`

	blessings, err := r.list(ctx, query, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending blessings for window %d: %w", windowID, err)
	}
	return blessings, nil
}

// GetByWindow returns every blessing in a window
func (r *BlessingRepository) GetByWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error) {
	query := `SELECT ` + blessingColumns + ` FROM blessings WHERE window_id = $1 ORDER BY id`

	blessings, err := r.list(ctx, query, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get blessings for window %d: %w", windowID, err)
	}
	return blessings, nil
}

// MarkResolved moves a pending blessing to a terminal status
func (r *BlessingRepository) MarkResolved(ctx context.Context, id int64, status entities.BlessingStatus, payout int64, roundID *int64, at time.Time) (bool, error) {
	query := `
		UPDATE blessings
		SET status = $2, payout_amount = $3, round_id = $4, resolved_at = $5
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, id, string(status), payout, roundID, at)
	if err != nil {
		return false, fmt.Errorf("failed to resolve blessing %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}
