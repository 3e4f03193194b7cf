package entities

import (
	"math"
	"time"
)

// WindowStatus represents the lifecycle state of a wagering window
type WindowStatus string

const (
	WindowStatusOpen    WindowStatus = "open"
	WindowStatusLocked  WindowStatus = "locked"
	WindowStatusSettled WindowStatus = "settled"
	WindowStatusExpired WindowStatus = "expired"
)

// IsTerminal returns true once the window can no longer change state
func (s WindowStatus) IsTerminal() bool {
	return s == WindowStatusSettled || s == WindowStatusExpired
}

// Window is the global time-boxed gate for wagering actions
type Window struct {
	ID               int64        `db:"id" json:"id"`
	OpenedBy         int64        `db:"opened_by" json:"opened_by"`
	OpenedAt         time.Time    `db:"opened_at" json:"opened_at"`
	ClosesAt         time.Time    `db:"closes_at" json:"closes_at"`
	Status           WindowStatus `db:"status" json:"status"`
	LockedAt         *time.Time   `db:"locked_at" json:"locked_at,omitempty"`
	ExpiresAt        *time.Time   `db:"expires_at" json:"expires_at,omitempty"`
	SettledByRoundID *int64       `db:"settled_by_round_id" json:"settled_by_round_id,omitempty"`
	SettledAt        *time.Time   `db:"settled_at" json:"settled_at,omitempty"`
}

// IsOpen returns true if the window is open
func (w *Window) IsOpen() bool {
	return w.Status == WindowStatusOpen
}

// IsLocked returns true if the window is locked awaiting settlement
func (w *Window) IsLocked() bool {
	return w.Status == WindowStatusLocked
}

// AcceptsActions reports whether wagering actions are allowed at now.
// An open window whose deadline passed is treated as closed even before the
// lock sweep runs.
func (w *Window) AcceptsActions(now time.Time) bool {
	return w.IsOpen() && now.Before(w.ClosesAt)
}

// SecondsRemaining is the whole number of seconds until the window closes,
// or 0 when the window is not open.
func (w *Window) SecondsRemaining(now time.Time) int64 {
	if !w.IsOpen() {
		return 0
	}
	remaining := w.ClosesAt.Sub(now).Seconds()
	if remaining <= 0 {
		return 0
	}
	return int64(math.Ceil(remaining))
}

// IsDeadlinePassed returns true if an open window should be locked
func (w *Window) IsDeadlinePassed(now time.Time) bool {
	return w.IsOpen() && !now.Before(w.ClosesAt)
}

// IsStale returns true if a locked window outlived its expiry without settling
func (w *Window) IsStale(now time.Time) bool {
	return w.IsLocked() && w.ExpiresAt != nil && !now.Before(*w.ExpiresAt)
}

// ActiveWindow is the single non-terminal window as seen by pollers
type ActiveWindow struct {
	*Window
	SecondsRemaining int64 `json:"seconds_remaining"`
}

// NewActiveWindow snapshots a window at now
func NewActiveWindow(w *Window, now time.Time) *ActiveWindow {
	if w == nil {
		return nil
	}
	return &ActiveWindow{Window: w, SecondsRemaining: w.SecondsRemaining(now)}
}
