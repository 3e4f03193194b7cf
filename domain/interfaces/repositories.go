package interfaces

import (
	"context"
	"time"

	"pulp/domain/entities"
	"pulp/events"
)

// PlayerRepository defines the interface for player data access.
// Getters return (nil, nil) when the player does not exist.
type PlayerRepository interface {
	// GetByID retrieves a player by ID
	GetByID(ctx context.Context, id int64) (*entities.Player, error)

	// GetByName retrieves a player by their league name
	GetByName(ctx context.Context, name string) (*entities.Player, error)

	// GetByNames retrieves the known players among names, keyed by name
	GetByNames(ctx context.Context, names []string) (map[string]*entities.Player, error)

	// LockForUpdate retrieves a player and holds a row lock until the unit of work ends
	LockForUpdate(ctx context.Context, id int64) (*entities.Player, error)

	// Create inserts a new active player with a zero balance
	Create(ctx context.Context, name string) (*entities.Player, error)

	// AdjustBalance atomically applies delta and returns the new balance.
	// It fails with ErrInsufficientBalance instead of going negative.
	AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error)

	// IncrementSeasonRounds bumps the season round counter
	IncrementSeasonRounds(ctx context.Context, id int64) error

	// IncrementChallengesDeclined bumps the decline counter
	IncrementChallengesDeclined(ctx context.Context, id int64) error

	// Deactivate marks the player inactive. Players are never deleted.
	Deactivate(ctx context.Context, id int64) error
}

// TransactionRepository defines the interface for the append-only ledger log
type TransactionRepository interface {
	// Create appends an entry, setting its ID and CreatedAt
	Create(ctx context.Context, tx *entities.Transaction) error

	// GetByPlayer returns a page of entries, newest first
	GetByPlayer(ctx context.Context, playerID int64, limit, offset int) ([]*entities.Transaction, error)

	// GetStats aggregates earned, spent and per-type totals for a player
	GetStats(ctx context.Context, playerID int64) (*entities.PlayerStats, error)

	// SumByPlayer returns the sum of every entry's amount for a player
	SumByPlayer(ctx context.Context, playerID int64) (int64, error)
}

// WindowRepository defines the interface for window data access
type WindowRepository interface {
	// Create inserts an open window. A second open window fails with
	// ErrWindowAlreadyOpen.
	Create(ctx context.Context, window *entities.Window) error

	// GetByID retrieves a window by ID
	GetByID(ctx context.Context, id int64) (*entities.Window, error)

	// GetByIDForShare retrieves a window and blocks concurrent transitions until
	// the unit of work ends
	GetByIDForShare(ctx context.Context, id int64) (*entities.Window, error)

	// GetOpen returns the open window, if any
	GetOpen(ctx context.Context) (*entities.Window, error)

	// GetLatestLocked returns the most recently locked window, if any
	GetLatestLocked(ctx context.Context) (*entities.Window, error)

	// ListLocked returns every locked window
	ListLocked(ctx context.Context) ([]*entities.Window, error)

	// LockExpired moves open windows whose deadline passed to locked, stamping
	// expires_at = now + expiry, and returns the windows it moved
	LockExpired(ctx context.Context, now time.Time, expiry time.Duration) ([]*entities.Window, error)

	// ListExpiredLocked returns locked windows whose expires_at has passed
	ListExpiredLocked(ctx context.Context, now time.Time) ([]*entities.Window, error)

	// Transition moves a window from one status to another. It reports false
	// when the window was no longer in the from status.
	Transition(ctx context.Context, id int64, from, to entities.WindowStatus, roundID *int64, at time.Time) (bool, error)
}

// BlessingRepository defines the interface for blessing data access
type BlessingRepository interface {
	// Create inserts a pending blessing. A second blessing by the same player in
	// the same window fails with ErrDuplicateBlessing.
	Create(ctx context.Context, blessing *entities.Blessing) error

	// GetByPlayerAndWindow returns the player's blessing in a window, if any
	GetByPlayerAndWindow(ctx context.Context, playerID, windowID int64) (*entities.Blessing, error)

	// GetPendingByWindow returns the window's pending blessings
	GetPendingByWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error)

	// GetByWindow returns every blessing in a window
	GetByWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error)

	// MarkResolved moves a pending blessing to a terminal status. It reports
	// false when the blessing was already resolved.
	MarkResolved(ctx context.Context, id int64, status entities.BlessingStatus, payout int64, roundID *int64, at time.Time) (bool, error)
}

// ChallengeRepository defines the interface for challenge data access
type ChallengeRepository interface {
	// Create inserts a challenge. A second non-cancelled challenge by the same
	// challenger in the same window fails with ErrDuplicateChallenge.
	Create(ctx context.Context, challenge *entities.Challenge) error

	// GetByID retrieves a challenge by ID
	GetByID(ctx context.Context, id int64) (*entities.Challenge, error)

	// GetByIDForUpdate retrieves a challenge and row-locks it
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Challenge, error)

	// GetActiveIssuedByChallenger returns the challenger's non-cancelled challenge in a window
	GetActiveIssuedByChallenger(ctx context.Context, challengerID, windowID int64) (*entities.Challenge, error)

	// GetPendingForChallenged returns the pending challenge against a player in a window
	GetPendingForChallenged(ctx context.Context, challengedID, windowID int64) (*entities.Challenge, error)

	// GetOldestWaiting returns and row-locks the first waitlisted challenge against a player
	GetOldestWaiting(ctx context.Context, challengedID, windowID int64) (*entities.Challenge, error)

	// GetByWindowAndStatus returns a window's challenges in one status, oldest first
	GetByWindowAndStatus(ctx context.Context, windowID int64, status entities.ChallengeStatus) ([]*entities.Challenge, error)

	// GetByPlayer returns challenges the player issued or received, newest first
	GetByPlayer(ctx context.Context, playerID int64, limit int) ([]*entities.Challenge, error)

	// Transition persists the challenge's new status and bookkeeping fields if it
	// is still in the from status
	Transition(ctx context.Context, challenge *entities.Challenge, from entities.ChallengeStatus) (bool, error)
}

// AdvantageRepository defines the interface for the advantage shop
type AdvantageRepository interface {
	// GetCatalogEntry returns an active catalog entry, if any
	GetCatalogEntry(ctx context.Context, key string) (*entities.AdvantageCatalogEntry, error)

	// ListCatalog returns every active catalog entry
	ListCatalog(ctx context.Context) ([]*entities.AdvantageCatalogEntry, error)

	// CreateInstance inserts a purchased instance. A second live instance of
	// the same key fails with ErrAdvantageAlreadyOwned.
	CreateInstance(ctx context.Context, instance *entities.AdvantageInstance) error

	// GetLiveInstance returns and row-locks the player's unused, unswept
	// instance of a key, if any
	GetLiveInstance(ctx context.Context, playerID int64, key string) (*entities.AdvantageInstance, error)

	// MarkUsed stamps an instance as used in a round
	MarkUsed(ctx context.Context, id int64, roundID int64, metadata map[string]any, at time.Time) error

	// ExpireStale stamps expired_at on the player's unused instances whose
	// expires_at passed, optionally only for one key, and returns them
	ExpireStale(ctx context.Context, playerID int64, key string, now time.Time) ([]*entities.AdvantageInstance, error)

	// RecordUsage appends to the round's perk-usage log
	RecordUsage(ctx context.Context, usage *entities.AdvantageUsage) error

	// GetActiveByPlayer returns the player's usable instances
	GetActiveByPlayer(ctx context.Context, playerID int64, now time.Time) ([]*entities.AdvantageInstance, error)

	// ListPlayersWithExpired returns players holding unswept expired instances
	ListPlayersWithExpired(ctx context.Context, now time.Time) ([]int64, error)
}

// RoundRepository defines read and ingest access to round results
type RoundRepository interface {
	// SaveRound upserts a round and replaces its results
	SaveRound(ctx context.Context, round *entities.Round, results []*entities.RoundResult) error

	// GetRound retrieves a round by ID
	GetRound(ctx context.Context, id int64) (*entities.Round, error)

	// GetResults returns a round's results ordered by rank
	GetResults(ctx context.Context, roundID int64) ([]*entities.RoundResult, error)

	// GetSeasonPoints sums points per player across a season event's rounds,
	// leaving out excludeRoundID
	GetSeasonPoints(ctx context.Context, eventID int64, excludeRoundID int64) (map[string]int, error)

	// GetLatestSeasonEventID returns the event of the most recent season round
	GetLatestSeasonEventID(ctx context.Context) (*int64, error)
}

// ParticipantRepository is the participant registry
type ParticipantRepository interface {
	// GetRegisteredNames returns the names registered for an event
	GetRegisteredNames(ctx context.Context, eventID int64) (map[string]bool, error)

	// Register adds names to an event's registry
	Register(ctx context.Context, eventID int64, names []string) error
}

// RoundRunRepository guards round awards against double payment
type RoundRunRepository interface {
	// Create records a run. It reports false if the round was already processed.
	Create(ctx context.Context, run *entities.RoundGamificationRun) (bool, error)

	// GetByRoundID returns a round's run, if any
	GetByRoundID(ctx context.Context, roundID int64) (*entities.RoundGamificationRun, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}
