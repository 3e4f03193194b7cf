package interfaces

import (
	"context"

	"pulp/domain/entities"
)

// LedgerService owns balances and the transaction log
type LedgerService interface {
	// Credit increases a balance and appends a positive entry
	Credit(ctx context.Context, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error)

	// Debit decreases a balance and appends a negative entry
	Debit(ctx context.Context, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error)

	// GetBalance returns a player's current balance
	GetBalance(ctx context.Context, playerID int64) (int64, error)

	// GetTransactionHistory returns a page of entries, newest first
	GetTransactionHistory(ctx context.Context, playerID int64, limit, offset int) ([]*entities.Transaction, error)

	// GetPlayerStats returns aggregated ledger totals
	GetPlayerStats(ctx context.Context, playerID int64) (*entities.PlayerStats, error)

	// RegisterPlayer creates a player, crediting startingBalance as an initial entry
	RegisterPlayer(ctx context.Context, name string, startingBalance int64) (*entities.Player, error)

	// DeactivatePlayer marks a player inactive
	DeactivatePlayer(ctx context.Context, playerID int64) error
}

// WindowService manages the single wagering window
type WindowService interface {
	// OpenWindow opens a new window on behalf of a player
	OpenWindow(ctx context.Context, playerID int64) (*entities.Window, error)

	// GetActiveWindow returns the open or locked window, or nil
	GetActiveWindow(ctx context.Context) (*entities.ActiveWindow, error)

	// LockExpiredWindows locks open windows whose deadline passed
	LockExpiredWindows(ctx context.Context) (int, error)

	// ExpireStaleWindows refunds and expires locked windows that were never settled
	ExpireStaleWindows(ctx context.Context) (int, error)

	// SettleWindow resolves a locked window's wagers against a round and marks it settled
	SettleWindow(ctx context.Context, windowID, roundID int64) error
}

// BlessingService is the top-three prediction market
type BlessingService interface {
	PlaceBlessing(ctx context.Context, playerID, windowID int64, prediction entities.Podium, wager, eventID int64) (*entities.Blessing, error)
	ResolveBlessingsForWindow(ctx context.Context, windowID, roundID int64) error
	RefundBlessingsForWindow(ctx context.Context, windowID int64) error
	GetBlessingsForWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error)
}

// ChallengeService is the head-to-head challenge arena
type ChallengeService interface {
	IssueChallenge(ctx context.Context, challengerID, challengedID, windowID, wager int64) (*entities.Challenge, error)
	RespondToChallenge(ctx context.Context, challengeID, challengedID int64, accept bool) (*entities.Challenge, error)
	ResolveChallengesForWindow(ctx context.Context, windowID, roundID int64) error
	ApplyWindowCloseRules(ctx context.Context, windowID int64) error
	RefundChallengesForWindow(ctx context.Context, windowID int64) error
	GetChallengesForPlayer(ctx context.Context, playerID int64, limit int) ([]*entities.Challenge, error)
}

// AdvantageService is the perk shop
type AdvantageService interface {
	PurchaseAdvantage(ctx context.Context, playerID int64, advantageKey string) (*entities.AdvantageInstance, error)
	UseAdvantage(ctx context.Context, playerID int64, advantageKey string, roundID int64, metadata map[string]any) (*entities.AdvantageInstance, error)
	ExpireAdvantages(ctx context.Context, playerID int64) (int, error)
	ExpireAllAdvantages(ctx context.Context) (int, error)
	ListCatalog(ctx context.Context) ([]*entities.AdvantageCatalogEntry, error)
	GetActiveAdvantages(ctx context.Context, playerID int64) ([]*entities.AdvantageInstance, error)
}

// SettlementService pays round awards and settles the matched window
type SettlementService interface {
	ProcessRoundGamification(ctx context.Context, roundID, eventID int64, eventType entities.EventType, meta entities.RoundMeta) (*entities.RoundGamificationResult, error)
}

// RoundResultsService ingests completed rounds from the results producer
type RoundResultsService interface {
	RecordRound(ctx context.Context, report *entities.RoundReport) (*entities.RoundGamificationResult, error)

	// RegisterParticipants adds names to an event's participant registry
	RegisterParticipants(ctx context.Context, eventID int64, names []string) error
}

// WindowMatcher decides which locked window, if any, a round settles.
// It runs inside the caller's unit of work.
type WindowMatcher interface {
	MatchWindow(ctx context.Context, windows WindowRepository, meta entities.RoundMeta) (*entities.Window, error)
}
