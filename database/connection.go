package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a database connection pool
type DB struct {
	*pgxpool.Pool
}

// NewConnection creates a new database connection pool. A positive
// storeTimeout bounds every statement and every idle transaction so a stuck
// request fails closed instead of holding row locks.
func NewConnection(ctx context.Context, databaseURL string, storeTimeout time.Duration) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Window deadlines and expiry sweeps compare against NOW(), keep every session in UTC
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"
	config.ConnConfig.RuntimeParams["application_name"] = "pulp"
	if storeTimeout > 0 {
		ms := strconv.FormatInt(storeTimeout.Milliseconds(), 10)
		config.ConnConfig.RuntimeParams["statement_timeout"] = ms
		config.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = ms
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}
