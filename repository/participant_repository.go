package repository

import (
	"context"
	"fmt"

	"pulp/database"
)

// ParticipantRepository implements the ParticipantRepository interface
type ParticipantRepository struct {
	q queryable
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *database.DB) *ParticipantRepository {
	return &ParticipantRepository{q: db.Pool}
}

// newParticipantRepositoryWithTx creates a new participant repository with a transaction
func newParticipantRepositoryWithTx(tx queryable) *ParticipantRepository {
	return &ParticipantRepository{q: tx}
}

// GetRegisteredNames returns the names registered for an event
func (r *ParticipantRepository) GetRegisteredNames(ctx context.Context, eventID int64) (map[string]bool, error) {
	rows, err := r.q.Query(ctx, `SELECT player_name FROM event_participants WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants for event %d: %w", eventID, err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		names[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return names, nil
}

// Register adds names to an event's registry. Names already registered are kept.
func (r *ParticipantRepository) Register(ctx context.Context, eventID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}

	query := `
		INSERT INTO event_participants (event_id, player_name)
		SELECT $1, name FROM UNNEST($2::text[]) AS name
		ON CONFLICT (event_id, player_name) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, eventID, names); err != nil {
		return fmt.Errorf("failed to register participants for event %d: %w", eventID, err)
	}
	return nil
}
