package repository

import (
	"encoding/json"
	"errors"

	"pulp/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// constraintErrors maps unique constraints to the business rule they enforce
var constraintErrors = map[string]error{
	"players_name_key":                 domain.ErrPlayerAlreadyExists,
	"windows_single_open_idx":          domain.ErrWindowAlreadyOpen,
	"blessings_player_window_key":      domain.ErrDuplicateBlessing,
	"challenges_challenger_window_idx": domain.ErrDuplicateChallenge,
	"advantage_instances_live_idx":     domain.ErrAdvantageAlreadyOwned,
}

// mapUniqueViolation translates a unique violation on a known constraint into
// its business error. Other errors are returned unchanged.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
	}
	return err
}

// marshalMetadata encodes a JSONB column, storing an empty object for nil
func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

// unmarshalMetadata decodes a JSONB column, returning nil for empty or null
func unmarshalMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, err
	}
	if len(metadata) == 0 {
		return nil, nil
	}
	return metadata, nil
}
