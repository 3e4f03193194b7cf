package repository

import (
	"context"
	"fmt"
	"time"

	"pulp/database"
	"pulp/domain/entities"

	"github.com/jackc/pgx/v5"
)

const (
	catalogColumns  = `key, name, description, pulp_cost, expiration_hours, active`
	instanceColumns = `id, player_id, advantage_key, purchased_at, expires_at, used_at, expired_at, round_id, usage_metadata`
)

// AdvantageRepository implements the AdvantageRepository interface
type AdvantageRepository struct {
	q queryable
}

// NewAdvantageRepository creates a new advantage repository
func NewAdvantageRepository(db *database.DB) *AdvantageRepository {
	return &AdvantageRepository{q: db.Pool}
}

// newAdvantageRepositoryWithTx creates a new advantage repository with a transaction
func newAdvantageRepositoryWithTx(tx queryable) *AdvantageRepository {
	return &AdvantageRepository{q: tx}
}

func scanCatalogEntry(row pgx.Row) (*entities.AdvantageCatalogEntry, error) {
	var e entities.AdvantageCatalogEntry
	if err := row.Scan(&e.Key, &e.Name, &e.Description, &e.PulpCost, &e.ExpirationHours, &e.Active); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanInstance(row pgx.Row) (*entities.AdvantageInstance, error) {
	var a entities.AdvantageInstance
	var metadataJSON []byte
	err := row.Scan(
		&a.ID,
		&a.PlayerID,
		&a.AdvantageKey,
		&a.PurchasedAt,
		&a.ExpiresAt,
		&a.UsedAt,
		&a.ExpiredAt,
		&a.RoundID,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}
	if a.UsageMetadata, err = unmarshalMetadata(metadataJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage metadata: %w", err)
	}
	return &a, nil
}

func (r *AdvantageRepository) listInstances(ctx context.Context, query string, args ...any) ([]*entities.AdvantageInstance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*entities.AdvantageInstance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advantage: %w", err)
		}
		instances = append(instances, instance)
	}
	return instances, rows.Err()
}

// GetCatalogEntry returns an active catalog entry, if any
func (r *AdvantageRepository) GetCatalogEntry(ctx context.Context, key string) (*entities.AdvantageCatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM advantage_catalog WHERE key = $1 AND active`

	entry, err := scanCatalogEntry(r.q.QueryRow(ctx, query, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry %q: %w", key, err)
	}
	return entry, nil
}

// ListCatalog returns every active catalog entry, cheapest first
func (r *AdvantageRepository) ListCatalog(ctx context.Context) ([]*entities.AdvantageCatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM advantage_catalog WHERE active ORDER BY pulp_cost, key`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	var catalog []*entities.AdvantageCatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		catalog = append(catalog, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog: %w", err)
	}
	return catalog, nil
}

// CreateInstance inserts a purchased instance
func (r *AdvantageRepository) CreateInstance(ctx context.Context, instance *entities.AdvantageInstance) error {
	query := `
		INSERT INTO advantage_instances (player_id, advantage_key, purchased_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		instance.PlayerID,
		instance.AdvantageKey,
		instance.PurchasedAt,
		instance.ExpiresAt,
	).Scan(&instance.ID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create %s for player %d: %w", instance.AdvantageKey, instance.PlayerID, err)
	}
	return nil
}

// GetLiveInstance returns and row-locks the player's unused, unswept instance of a key
func (r *AdvantageRepository) GetLiveInstance(ctx context.Context, playerID int64, key string) (*entities.AdvantageInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM advantage_instances
		WHERE player_id = $1 AND advantage_key = $2 AND used_at IS NULL AND expired_at IS NULL
		FOR UPDATE
	`

	instance, err := scanInstance(r.q.QueryRow(ctx, query, playerID, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live %s for player %d: %w", key, playerID, err)
	}
	return instance, nil
}

// MarkUsed stamps an instance as used in a round
func (r *AdvantageRepository) MarkUsed(ctx context.Context, id int64, roundID int64, metadata map[string]any, at time.Time) error {
	metadataJSON, err := marshalMetadata(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal usage metadata: %w", err)
	}

	query := `
		UPDATE advantage_instances
		SET used_at = $2, round_id = $3, usage_metadata = $4
		WHERE id = $1 AND used_at IS NULL AND expired_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, id, at, roundID, metadataJSON)
	if err != nil {
		return fmt.Errorf("failed to mark advantage %d used: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("advantage %d is no longer live", id)
	}
	return nil
}

// ExpireStale stamps expired_at on the player's unused instances whose
// expires_at passed, optionally only for one key
func (r *AdvantageRepository) ExpireStale(ctx context.Context, playerID int64, key string, now time.Time) ([]*entities.AdvantageInstance, error) {
	query := `
		UPDATE advantage_instances
		SET expired_at = $2
		WHERE player_id = $1
		  AND used_at IS NULL AND expired_at IS NULL
		  AND expires_at <= $2
		  AND ($3 = '' OR advantage_key = $3)
		RETURNING ` + instanceColumns

	instances, err := r.listInstances(ctx, query, playerID, now, key)
	if err != nil {
		return nil, fmt.Errorf("failed to expire advantages for player %d: %w", playerID, err)
	}
	return instances, nil
}

// RecordUsage appends to the round's perk-usage log
func (r *AdvantageRepository) RecordUsage(ctx context.Context, usage *entities.AdvantageUsage) error {
	metadataJSON, err := marshalMetadata(usage.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal usage metadata: %w", err)
	}

	query := `
		INSERT INTO round_advantage_usages (round_id, player_id, advantage_key, instance_id, metadata, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.q.QueryRow(ctx, query,
		usage.RoundID,
		usage.PlayerID,
		usage.AdvantageKey,
		usage.InstanceID,
		metadataJSON,
		usage.UsedAt,
	).Scan(&usage.ID)
	if err != nil {
		return fmt.Errorf("failed to record advantage usage for round %d: %w", usage.RoundID, err)
	}
	return nil
}

// GetActiveByPlayer returns the player's usable instances, soonest expiry first
func (r *AdvantageRepository) GetActiveByPlayer(ctx context.Context, playerID int64, now time.Time) ([]*entities.AdvantageInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM advantage_instances
		WHERE player_id = $1 AND used_at IS NULL AND expired_at IS NULL AND expires_at > $2
		ORDER BY expires_at, id
	`

	instances, err := r.listInstances(ctx, query, playerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active advantages for player %d: %w", playerID, err)
	}
	return instances, nil
}

// ListPlayersWithExpired returns players holding unswept expired instances
func (r *AdvantageRepository) ListPlayersWithExpired(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT player_id
		FROM advantage_instances
		WHERE used_at IS NULL AND expired_at IS NULL AND expires_at <= $1
		ORDER BY player_id
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list players with expired advantages: %w", err)
	}
	defer rows.Close()

	var playerIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		playerIDs = append(playerIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player ids: %w", err)
	}
	return playerIDs, nil
}
