package services

import (
	"context"
	"fmt"
	"time"

	"pulp/domain/entities"
	"pulp/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ExplicitWindowMatcher settles the window the results producer names in
// the round metadata. Rounds that name no window settle nothing.
type ExplicitWindowMatcher struct{}

// NewExplicitWindowMatcher creates the default matcher
func NewExplicitWindowMatcher() interfaces.WindowMatcher {
	return &ExplicitWindowMatcher{}
}

func (m *ExplicitWindowMatcher) MatchWindow(ctx context.Context, windows interfaces.WindowRepository, meta entities.RoundMeta) (*entities.Window, error) {
	if meta.WindowID == nil {
		return nil, nil
	}
	window, err := windows.GetByID(ctx, *meta.WindowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get window: %w", err)
	}
	if window == nil || !window.IsLocked() {
		return nil, nil
	}
	return window, nil
}

// TimingWindowMatcher correlates a round with the locked window that closed
// at most Tolerance before the round was played. An explicit window id in
// the metadata still wins. Ambiguous matches settle nothing.
type TimingWindowMatcher struct {
	Tolerance time.Duration
}

// NewTimingWindowMatcher creates a matcher that correlates on round timing
func NewTimingWindowMatcher(tolerance time.Duration) interfaces.WindowMatcher {
	return &TimingWindowMatcher{Tolerance: tolerance}
}

func (m *TimingWindowMatcher) MatchWindow(ctx context.Context, windows interfaces.WindowRepository, meta entities.RoundMeta) (*entities.Window, error) {
	if meta.WindowID != nil {
		return (&ExplicitWindowMatcher{}).MatchWindow(ctx, windows, meta)
	}

	playedAt := meta.PlayedAt
	if playedAt.IsZero() {
		playedAt = meta.CompletedAt
	}

	locked, err := windows.ListLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locked windows: %w", err)
	}

	var candidates []*entities.Window
	for _, w := range locked {
		if playedAt.Before(w.ClosesAt) {
			continue
		}
		if playedAt.Sub(w.ClosesAt) > m.Tolerance {
			continue
		}
		candidates = append(candidates, w)
	}

	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return candidates[0], nil
	default:
		log.WithFields(log.Fields{
			"roundID":    meta.RoundID,
			"candidates": len(candidates),
		}).Warn("Round matches more than one locked window, leaving them unsettled")
		return nil, nil
	}
}
