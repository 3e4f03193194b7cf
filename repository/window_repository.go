package repository

import (
	"context"
	"fmt"
	"time"

	"pulp/database"
	"pulp/domain/entities"

	"github.com/jackc/pgx/v5"
)

const windowColumns = `id, opened_by, opened_at, closes_at, status, locked_at, expires_at, settled_by_round_id, settled_at`

// WindowRepository implements the WindowRepository interface
type WindowRepository struct {
	q queryable
}

// NewWindowRepository creates a new window repository
func NewWindowRepository(db *database.DB) *WindowRepository {
	return &WindowRepository{q: db.Pool}
}

// newWindowRepositoryWithTx creates a new window repository with a transaction
func newWindowRepositoryWithTx(tx queryable) *WindowRepository {
	return &WindowRepository{q: tx}
}

func scanWindow(row pgx.Row) (*entities.Window, error) {
	var w entities.Window
	err := row.Scan(
		&w.ID,
		&w.OpenedBy,
		&w.OpenedAt,
		&w.ClosesAt,
		&w.Status,
		&w.LockedAt,
		&w.ExpiresAt,
		&w.SettledByRoundID,
		&w.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WindowRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Window, error) {
	window, err := scanWindow(r.q.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return window, err
}

func (r *WindowRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.Window, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*entities.Window
	for rows.Next() {
		window, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan window: %w", err)
		}
		windows = append(windows, window)
	}
	return windows, rows.Err()
}

// Create inserts an open window
func (r *WindowRepository) Create(ctx context.Context, window *entities.Window) error {
	query := `
		INSERT INTO windows (opened_by, opened_at, closes_at, status)
		VALUES ($1, $2, $3, 'open')
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query, window.OpenedBy, window.OpenedAt, window.ClosesAt).Scan(&window.ID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create window: %w", err)
	}
	window.Status = entities.WindowStatusOpen
	return nil
}

// GetByID retrieves a window by ID
func (r *WindowRepository) GetByID(ctx context.Context, id int64) (*entities.Window, error) {
	window, err := r.getOne(ctx, `SELECT `+windowColumns+` FROM windows WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get window %d: %w", id, err)
	}
	return window, nil
}

// GetByIDForShare retrieves a window under a share lock so it cannot change
// status until the transaction ends
func (r *WindowRepository) GetByIDForShare(ctx context.Context, id int64) (*entities.Window, error) {
	window, err := r.getOne(ctx, `SELECT `+windowColumns+` FROM windows WHERE id = $1 FOR SHARE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get window %d for share: %w", id, err)
	}
	return window, nil
}

// GetOpen returns the open window, if any
func (r *WindowRepository) GetOpen(ctx context.Context) (*entities.Window, error) {
	window, err := r.getOne(ctx, `SELECT `+windowColumns+` FROM windows WHERE status = 'open'`)
	if err != nil {
		return nil, fmt.Errorf("failed to get open window: %w", err)
	}
	return window, nil
}

// GetLatestLocked returns the most recently locked window, if any
func (r *WindowRepository) GetLatestLocked(ctx context.Context) (*entities.Window, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM windows
		WHERE status = 'locked'
		ORDER BY locked_at DESC, id DESC
		LIMIT 1
	`
	window, err := r.getOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest locked window: %w", err)
	}
	return window, nil
}

// ListLocked returns every locked window, oldest deadline first
func (r *WindowRepository) ListLocked(ctx context.Context) ([]*entities.Window, error) {
	query := `SELECT ` + windowColumns + ` FROM windows WHERE status = 'locked' ORDER BY closes_at, id`
	windows, err := r.getMany(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list locked windows: %w", err)
	}
	return windows, nil
}

// LockExpired moves open windows whose deadline passed to locked
func (r *WindowRepository) LockExpired(ctx context.Context, now time.Time, expiry time.Duration) ([]*entities.Window, error) {
	query := `
		UPDATE windows
		SET status = 'locked', locked_at = $1, expires_at = $2
		WHERE status = 'open' AND closes_at <= $1
		RETURNING ` + windowColumns

	windows, err := r.getMany(ctx, query, now, now.Add(expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to lock expired windows: %w", err)
	}
	return windows, nil
}

// ListExpiredLocked returns locked windows whose expires_at has passed
func (r *WindowRepository) ListExpiredLocked(ctx context.Context, now time.Time) ([]*entities.Window, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM windows
		WHERE status = 'locked' AND expires_at <= $1
		ORDER BY expires_at, id
	`
	windows, err := r.getMany(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale windows: %w", err)
	}
	return windows, nil
}

// Transition moves a window from one status to another, stamping the
// timestamp that belongs to the new status
func (r *WindowRepository) Transition(ctx context.Context, id int64, from, to entities.WindowStatus, roundID *int64, at time.Time) (bool, error) {
	query := `
		UPDATE windows
		SET status = $3,
		    locked_at = CASE WHEN $3 = 'locked' THEN $5 ELSE locked_at END,
		    settled_at = CASE WHEN $3 = 'settled' THEN $5 ELSE settled_at END,
		    settled_by_round_id = CASE WHEN $3 = 'settled' THEN $4 ELSE settled_by_round_id END
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.Exec(ctx, query, id, string(from), string(to), roundID, at)
	if err != nil {
		return false, fmt.Errorf("failed to move window %d from %s to %s: %w", id, from, to, err)
	}
	return result.RowsAffected() == 1, nil
}
