package testutil

import (
	"context"
	"testing"
	"time"

	"pulp/database"
	"pulp/domain/entities"

	"github.com/stretchr/testify/require"
)

// CreateTestPlayer inserts an active player. A positive balance is recorded
// as an initial ledger entry so the balance matches the ledger sum.
func CreateTestPlayer(t *testing.T, db *database.DB, name string, balance int64) *entities.Player {
	t.Helper()
	ctx := context.Background()

	var p entities.Player
	err := db.QueryRow(ctx, `
		INSERT INTO players (name, balance) VALUES ($1, $2)
		RETURNING id, name, balance, active, created_at, updated_at
	`, name, balance).Scan(&p.ID, &p.Name, &p.Balance, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	require.NoError(t, err)

	if balance > 0 {
		_, err = db.Exec(ctx, `
			INSERT INTO transactions (player_id, amount, balance_after, type, description)
			VALUES ($1, $2, $2, 'initial', 'Starting balance')
		`, p.ID, balance)
		require.NoError(t, err)
	}
	return &p
}

// CreateTestWindow inserts a window in the given status opened by playerID
func CreateTestWindow(t *testing.T, db *database.DB, playerID int64, status entities.WindowStatus, openedAt time.Time) *entities.Window {
	t.Helper()

	w := &entities.Window{
		OpenedBy: playerID,
		OpenedAt: openedAt,
		ClosesAt: openedAt.Add(30 * time.Minute),
		Status:   status,
	}
	err := db.QueryRow(context.Background(), `
		INSERT INTO windows (opened_by, opened_at, closes_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, w.OpenedBy, w.OpenedAt, w.ClosesAt, string(w.Status)).Scan(&w.ID)
	require.NoError(t, err)
	return w
}

// CreateTestRound inserts a round with results ranked in the order of names.
// Each finisher scores 10 points less than the one ahead, starting at 100.
func CreateTestRound(t *testing.T, db *database.DB, roundID, eventID int64, eventType entities.EventType, playedAt time.Time, names ...string) *entities.Round {
	t.Helper()
	ctx := context.Background()

	round := &entities.Round{
		ID:          roundID,
		EventID:     eventID,
		EventType:   eventType,
		PlayedAt:    playedAt,
		CompletedAt: playedAt.Add(4 * time.Hour),
	}
	_, err := db.Exec(ctx, `
		INSERT INTO rounds (id, event_id, event_type, played_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, round.ID, round.EventID, string(round.EventType), round.PlayedAt, round.CompletedAt)
	require.NoError(t, err)

	for i, name := range names {
		_, err := db.Exec(ctx, `
			INSERT INTO round_results (round_id, player_name, rank, total_strokes, final_total, points)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, roundID, name, i+1, 50+i, i, 100-10*i)
		require.NoError(t, err)
	}
	return round
}
