package repository

import (
	"context"
	"fmt"

	"pulp/database"
	"pulp/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RoundRepository implements the RoundRepository interface
type RoundRepository struct {
	q queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

// newRoundRepositoryWithTx creates a new round repository with a transaction
func newRoundRepositoryWithTx(tx queryable) *RoundRepository {
	return &RoundRepository{q: tx}
}

// SaveRound upserts a round and replaces its results
func (r *RoundRepository) SaveRound(ctx context.Context, round *entities.Round, results []*entities.RoundResult) error {
	query := `
		INSERT INTO rounds (id, event_id, event_type, played_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET event_id = EXCLUDED.event_id,
		    event_type = EXCLUDED.event_type,
		    played_at = EXCLUDED.played_at,
		    completed_at = EXCLUDED.completed_at
	`

	_, err := r.q.Exec(ctx, query, round.ID, round.EventID, string(round.EventType), round.PlayedAt, round.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save round %d: %w", round.ID, err)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM round_results WHERE round_id = $1`, round.ID); err != nil {
		return fmt.Errorf("failed to clear results for round %d: %w", round.ID, err)
	}

	batch := &pgx.Batch{}
	for _, result := range results {
		batch.Queue(`
			INSERT INTO round_results (round_id, player_name, rank, total_strokes, final_total, points)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, round.ID, result.PlayerName, result.Rank, result.TotalStrokes, result.FinalTotal, result.Points)
	}
	if batch.Len() == 0 {
		return nil
	}

	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save results for round %d: %w", round.ID, err)
		}
	}
	return br.Close()
}

// GetRound retrieves a round by ID
func (r *RoundRepository) GetRound(ctx context.Context, id int64) (*entities.Round, error) {
	query := `SELECT id, event_id, event_type, played_at, completed_at FROM rounds WHERE id = $1`

	var round entities.Round
	err := r.q.QueryRow(ctx, query, id).Scan(
		&round.ID,
		&round.EventID,
		&round.EventType,
		&round.PlayedAt,
		&round.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d: %w", id, err)
	}
	return &round, nil
}

// GetResults returns a round's results ordered by rank
func (r *RoundRepository) GetResults(ctx context.Context, roundID int64) ([]*entities.RoundResult, error) {
	query := `
		SELECT round_id, player_name, rank, total_strokes, final_total, points
		FROM round_results
		WHERE round_id = $1
		ORDER BY rank, total_strokes, player_name
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results for round %d: %w", roundID, err)
	}
	defer rows.Close()

	var results []*entities.RoundResult
	for rows.Next() {
		var result entities.RoundResult
		err := rows.Scan(
			&result.RoundID,
			&result.PlayerName,
			&result.Rank,
			&result.TotalStrokes,
			&result.FinalTotal,
			&result.Points,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round result: %w", err)
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round results: %w", err)
	}
	return results, nil
}

// GetSeasonPoints sums points per player across a season event's rounds,
// leaving out excludeRoundID
func (r *RoundRepository) GetSeasonPoints(ctx context.Context, eventID int64, excludeRoundID int64) (map[string]int, error) {
	query := `
		SELECT rr.player_name, SUM(rr.points)
		FROM round_results rr
		JOIN rounds ro ON ro.id = rr.round_id
		WHERE ro.event_id = $1 AND ro.event_type = 'season' AND ro.id <> $2
		GROUP BY rr.player_name
	`

	rows, err := r.q.Query(ctx, query, eventID, excludeRoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get season points for event %d: %w", eventID, err)
	}
	defer rows.Close()

	points := make(map[string]int)
	for rows.Next() {
		var name string
		var total int64
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("failed to scan season points: %w", err)
		}
		points[name] = int(total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season points: %w", err)
	}
	return points, nil
}

// GetLatestSeasonEventID returns the event of the most recent season round
func (r *RoundRepository) GetLatestSeasonEventID(ctx context.Context) (*int64, error) {
	query := `
		SELECT event_id
		FROM rounds
		WHERE event_type = 'season'
		ORDER BY played_at DESC, id DESC
		LIMIT 1
	`

	var eventID int64
	err := r.q.QueryRow(ctx, query).Scan(&eventID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest season event: %w", err)
	}
	return &eventID, nil
}
