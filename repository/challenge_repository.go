package repository

import (
	"context"
	"fmt"

	"pulp/database"
	"pulp/domain/entities"

	"github.com/jackc/pgx/v5"
)

const challengeColumns = `id, challenger_id, challenged_id, window_id, wager_amount, status, cowardice_tax_paid,
	winner_id, round_id, issued_at, responded_at, resolved_at`

// ChallengeRepository implements the ChallengeRepository interface
type ChallengeRepository struct {
	q queryable
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *database.DB) *ChallengeRepository {
	return &ChallengeRepository{q: db.Pool}
}

// newChallengeRepositoryWithTx creates a new challenge repository with a transaction
func newChallengeRepositoryWithTx(tx queryable) *ChallengeRepository {
	return &ChallengeRepository{q: tx}
}

func scanChallenge(row pgx.Row) (*entities.Challenge, error) {
	var c entities.Challenge
	err := row.Scan(
		&c.ID,
		&c.ChallengerID,
		&c.ChallengedID,
		&c.WindowID,
		&c.WagerAmount,
		&c.Status,
		&c.CowardiceTaxPaid,
		&c.WinnerID,
		&c.RoundID,
		&c.IssuedAt,
		&c.RespondedAt,
		&c.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChallengeRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Challenge, error) {
	challenge, err := scanChallenge(r.q.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return challenge, err
}

func (r *ChallengeRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Challenge, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []*entities.Challenge
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, challenge)
	}
	return challenges, rows.Err()
}

// Create inserts a challenge in its initial pending or waiting status
func (r *ChallengeRepository) Create(ctx context.Context, challenge *entities.Challenge) error {
	query := `
		INSERT INTO challenges (challenger_id, challenged_id, window_id, wager_amount, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		challenge.ChallengerID,
		challenge.ChallengedID,
		challenge.WindowID,
		challenge.WagerAmount,
		string(challenge.Status),
		challenge.IssuedAt,
	).Scan(&challenge.ID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create challenge from player %d: %w", challenge.ChallengerID, err)
	}
	return nil
}

// GetByID retrieves a challenge by ID
func (r *ChallengeRepository) GetByID(ctx context.Context, id int64) (*entities.Challenge, error) {
	challenge, err := r.getOne(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, err)
	}
	return challenge, nil
}

// GetByIDForUpdate retrieves a challenge and row-locks it
func (r *ChallengeRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Challenge, error) {
	challenge, err := r.getOne(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock challenge %d: %w", id, err)
	}
	return challenge, nil
}

// GetActiveIssuedByChallenger returns the challenger's non-cancelled challenge in a window
func (r *ChallengeRepository) GetActiveIssuedByChallenger(ctx context.Context, challengerID, windowID int64) (*entities.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE challenger_id = $1 AND window_id = $2 AND status <> 'cancelled_waitlist'
	`
	challenge, err := r.getOne(ctx, query, challengerID, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge issued by player %d: %w", challengerID, err)
	}
	return challenge, nil
}

// GetPendingForChallenged returns the pending challenge against a player in a window
func (r *ChallengeRepository) GetPendingForChallenged(ctx context.Context, challengedID, windowID int64) (*entities.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE challenged_id = $1 AND window_id = $2 AND status = 'pending'
	`
	challenge, err := r.getOne(ctx, query, challengedID, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending challenge for player %d: %w", challengedID, err)
	}
	return challenge, nil
}

// GetOldestWaiting returns and row-locks the first waitlisted challenge against a player
func (r *ChallengeRepository) GetOldestWaiting(ctx context.Context, challengedID, windowID int64) (*entities.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE challenged_id = $1 AND window_id = $2 AND status = 'waiting'
		ORDER BY issued_at, id
		LIMIT 1
		FOR UPDATE
	`
	challenge, err := r.getOne(ctx, query, challengedID, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlisted challenge for player %d: %w", challengedID, err)
	}
	return challenge, nil
}

// GetByWindowAndStatus returns a window's challenges in one status, oldest first
func (r *ChallengeRepository) GetByWindowAndStatus(ctx context.Context, windowID int64, status entities.ChallengeStatus) ([]*entities.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE window_id = $1 AND status = $2
		ORDER BY issued_at, id
	`
	challenges, err := r.list(ctx, query, windowID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s challenges for window %d: %w", status, windowID, err)
	}
	return challenges, nil
}

// GetByPlayer returns challenges the player issued or received, newest first
func (r *ChallengeRepository) GetByPlayer(ctx context.Context, playerID int64, limit int) ([]*entities.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE challenger_id = $1 OR challenged_id = $1
		ORDER BY issued_at DESC, id DESC
		LIMIT $2
	`
	challenges, err := r.list(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenges for player %d: %w", playerID, err)
	}
	return challenges, nil
}

// Transition persists the challenge's new status and bookkeeping fields if it
// is still in the from status
func (r *ChallengeRepository) Transition(ctx context.Context, challenge *entities.Challenge, from entities.ChallengeStatus) (bool, error) {
	query := `
		UPDATE challenges
		SET status = $3,
		    cowardice_tax_paid = $4,
		    winner_id = $5,
		    round_id = $6,
		    responded_at = $7,
		    resolved_at = $8
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.Exec(ctx, query,
		challenge.ID,
		string(from),
		string(challenge.Status),
		challenge.CowardiceTaxPaid,
		challenge.WinnerID,
		challenge.RoundID,
		challenge.RespondedAt,
		challenge.ResolvedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to move challenge %d to %s: %w", challenge.ID, challenge.Status, err)
	}
	return result.RowsAffected() == 1, nil
}
