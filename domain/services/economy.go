package services

import (
	"context"

	"pulp/clock"
	"pulp/domain/interfaces"
)

// Economy bundles every service with the window lifecycle hooks wired to the
// markets that depend on it
type Economy struct {
	Ledger       interfaces.LedgerService
	Windows      interfaces.WindowService
	Blessings    interfaces.BlessingService
	Challenges   interfaces.ChallengeService
	Advantages   interfaces.AdvantageService
	Settlement   interfaces.SettlementService
	RoundResults interfaces.RoundResultsService
}

// NewEconomy builds the services over one unit of work factory.
// Locking a window applies the challenge close rules, settling resolves
// blessings then challenges, expiring refunds both. Settling and expiring
// re-apply the close rules first so a failed run at lock time is retried.
func NewEconomy(uowFactory interfaces.UnitOfWorkFactory, clk clock.Clock, rules Rules, matcher interfaces.WindowMatcher) *Economy {
	blessings := NewBlessingService(uowFactory, clk, rules)
	challenges := NewChallengeService(uowFactory, clk, rules)

	windows := NewWindowService(uowFactory, clk, rules, WindowHooks{
		OnLocked: []func(ctx context.Context, windowID int64) error{
			challenges.ApplyWindowCloseRules,
		},
		OnSettle: []func(ctx context.Context, windowID, roundID int64) error{
			func(ctx context.Context, windowID, _ int64) error {
				return challenges.ApplyWindowCloseRules(ctx, windowID)
			},
			blessings.ResolveBlessingsForWindow,
			challenges.ResolveChallengesForWindow,
		},
		OnExpire: []func(ctx context.Context, windowID int64) error{
			challenges.ApplyWindowCloseRules,
			blessings.RefundBlessingsForWindow,
			challenges.RefundChallengesForWindow,
		},
	})

	settlement := NewSettlementService(uowFactory, windows, matcher, rules)

	return &Economy{
		Ledger:       NewLedgerService(uowFactory, rules),
		Windows:      windows,
		Blessings:    blessings,
		Challenges:   challenges,
		Advantages:   NewAdvantageService(uowFactory, clk),
		Settlement:   settlement,
		RoundResults: NewRoundResultsService(uowFactory, settlement),
	}
}
