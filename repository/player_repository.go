package repository

import (
	"context"
	"fmt"

	"pulp/database"
	"pulp/domain"
	"pulp/domain/entities"

	"github.com/jackc/pgx/v5"
)

const playerColumns = `id, name, balance, active, season_rounds_played, challenges_declined, created_at, updated_at`

// PlayerRepository implements the PlayerRepository interface
type PlayerRepository struct {
	q queryable
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{q: db.Pool}
}

// newPlayerRepositoryWithTx creates a new player repository with a transaction
func newPlayerRepositoryWithTx(tx queryable) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

func scanPlayer(row pgx.Row) (*entities.Player, error) {
	var p entities.Player
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Balance,
		&p.Active,
		&p.SeasonRoundsPlayed,
		&p.ChallengesDeclined,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a player by ID
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*entities.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return player, nil
}

// GetByName retrieves a player by their league name
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (*entities.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE name = $1`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %q: %w", name, err)
	}
	return player, nil
}

// GetByNames retrieves the known players among names, keyed by name
func (r *PlayerRepository) GetByNames(ctx context.Context, names []string) (map[string]*entities.Player, error) {
	players := make(map[string]*entities.Player, len(names))
	if len(names) == 0 {
		return players, nil
	}

	query := `SELECT ` + playerColumns + ` FROM players WHERE name = ANY($1)`

	rows, err := r.q.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to get players by name: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players[player.Name] = player
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}

// LockForUpdate retrieves a player and holds a row lock until the transaction ends
func (r *PlayerRepository) LockForUpdate(ctx context.Context, id int64) (*entities.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1 FOR UPDATE`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock player %d: %w", id, err)
	}
	return player, nil
}

// Create inserts a new active player with a zero balance
func (r *PlayerRepository) Create(ctx context.Context, name string) (*entities.Player, error) {
	query := `
		INSERT INTO players (name)
		VALUES ($1)
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.q.QueryRow(ctx, query, name))
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create player %q: %w", name, err)
	}
	return player, nil
}

// AdjustBalance atomically applies delta and returns the new balance
func (r *PlayerRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	query := `
		UPDATE players
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("failed to adjust balance for player %d: %w", id, err)
	}

	// No row matched: either the player is missing or the delta would overdraw
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM players WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check player %d: %w", id, err)
	}
	if !exists {
		return 0, domain.NewNotFoundError("player", id)
	}
	return 0, domain.ErrInsufficientBalance
}

// IncrementSeasonRounds bumps the season round counter
func (r *PlayerRepository) IncrementSeasonRounds(ctx context.Context, id int64) error {
	return r.increment(ctx, id, "season_rounds_played")
}

// IncrementChallengesDeclined bumps the decline counter
func (r *PlayerRepository) IncrementChallengesDeclined(ctx context.Context, id int64) error {
	return r.increment(ctx, id, "challenges_declined")
}

func (r *PlayerRepository) increment(ctx context.Context, id int64, column string) error {
	query := fmt.Sprintf(`UPDATE players SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1`, column)

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment %s for player %d: %w", column, id, err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("player", id)
	}
	return nil
}

// Deactivate marks the player inactive
func (r *PlayerRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE players SET active = FALSE, updated_at = NOW() WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate player %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("player", id)
	}
	return nil
}
