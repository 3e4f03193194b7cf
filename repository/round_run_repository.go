package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"pulp/database"
	"pulp/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RoundRunRepository implements the RoundRunRepository interface
type RoundRunRepository struct {
	q queryable
}

// NewRoundRunRepository creates a new round run repository
func NewRoundRunRepository(db *database.DB) *RoundRunRepository {
	return &RoundRunRepository{q: db.Pool}
}

// newRoundRunRepositoryWithTx creates a new round run repository with a transaction
func newRoundRunRepositoryWithTx(tx queryable) *RoundRunRepository {
	return &RoundRunRepository{q: tx}
}

// Create records a run. It reports false if the round was already processed.
func (r *RoundRunRepository) Create(ctx context.Context, run *entities.RoundGamificationRun) (bool, error) {
	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return false, fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO round_gamification_runs
		(round_id, players_awarded, total_awarded, execution_summary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (round_id) DO NOTHING
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.RoundID,
		run.PlayersAwarded,
		run.TotalAwarded,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create gamification run for round %d: %w", run.RoundID, err)
	}
	return true, nil
}

// GetByRoundID returns a round's run, if any
func (r *RoundRunRepository) GetByRoundID(ctx context.Context, roundID int64) (*entities.RoundGamificationRun, error) {
	query := `
		SELECT id, round_id, players_awarded, total_awarded, execution_summary, created_at
		FROM round_gamification_runs
		WHERE round_id = $1
	`

	var run entities.RoundGamificationRun
	var summaryJSON []byte

	err := r.q.QueryRow(ctx, query, roundID).Scan(
		&run.ID,
		&run.RoundID,
		&run.PlayersAwarded,
		&run.TotalAwarded,
		&summaryJSON,
		&run.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gamification run for round %d: %w", roundID, err)
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}
	return &run, nil
}
