package entities

import (
	"sort"
	"time"
)

// EventType classifies the event a round belongs to
type EventType string

const (
	EventTypeSeason  EventType = "season"
	EventTypeCasual  EventType = "casual"
	EventTypeSpecial EventType = "special"
)

// Round is a completed round as reported by the results producer
type Round struct {
	ID          int64     `db:"id" json:"round_id"`
	EventID     int64     `db:"event_id" json:"event_id"`
	EventType   EventType `db:"event_type" json:"event_type"`
	PlayedAt    time.Time `db:"played_at" json:"played_at"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// RoundResult is one player's finish in a round
type RoundResult struct {
	RoundID      int64  `db:"round_id" json:"round_id"`
	PlayerName   string `db:"player_name" json:"name"`
	Rank         int    `db:"rank" json:"rank"`
	TotalStrokes int    `db:"total_strokes" json:"total_strokes"`
	FinalTotal   int    `db:"final_total" json:"final_total"`
	Points       int    `db:"points" json:"points"`
}

// RoundMeta carries the timing data used to match a round to a locked window.
// WindowID is set when the producer names the window explicitly.
type RoundMeta struct {
	RoundID     int64     `json:"round_id"`
	PlayedAt    time.Time `json:"played_at"`
	CompletedAt time.Time `json:"completed_at"`
	WindowID    *int64    `json:"window_id,omitempty"`
}

// ActualPodium returns the top three finishers ordered by rank, breaking
// equal ranks by strokes. ok is false when fewer than three players finished.
func ActualPodium(results []*RoundResult) (Podium, bool) {
	if len(results) < 3 {
		return Podium{}, false
	}
	ordered := make([]*RoundResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Rank != ordered[j].Rank {
			return ordered[i].Rank < ordered[j].Rank
		}
		return ordered[i].TotalStrokes < ordered[j].TotalStrokes
	})
	return Podium{
		First:  ordered[0].PlayerName,
		Second: ordered[1].PlayerName,
		Third:  ordered[2].PlayerName,
	}, true
}

// StrokesByName indexes stroke totals by player name
func StrokesByName(results []*RoundResult) map[string]int {
	strokes := make(map[string]int, len(results))
	for _, r := range results {
		strokes[r.PlayerName] = r.TotalStrokes
	}
	return strokes
}

// DRSBonus is the consolation award for finishing 4th or worse: (rank - 3) x 2
func DRSBonus(rank int) int64 {
	if rank < 4 {
		return 0
	}
	return int64(rank-3) * 2
}

// RoundGamificationRun records that a round's awards were paid
type RoundGamificationRun struct {
	ID               int64          `db:"id"`
	RoundID          int64          `db:"round_id"`
	PlayersAwarded   int            `db:"players_awarded"`
	TotalAwarded     int64          `db:"total_awarded"`
	ExecutionSummary map[string]any `db:"execution_summary"`
	CreatedAt        time.Time      `db:"created_at"`
}

// RoundReport is the payload supplied by the round results producer
type RoundReport struct {
	RoundID     int64          `json:"round_id"`
	EventID     int64          `json:"event_id"`
	EventType   EventType      `json:"event_type"`
	PlayedAt    time.Time      `json:"played_at"`
	CompletedAt time.Time      `json:"completed_at"`
	WindowID    *int64         `json:"window_id,omitempty"`
	Players     []*RoundResult `json:"players"`
}

// Round returns the round row described by the report
func (r *RoundReport) Round() *Round {
	completedAt := r.CompletedAt
	if completedAt.IsZero() {
		completedAt = r.PlayedAt
	}
	return &Round{
		ID:          r.RoundID,
		EventID:     r.EventID,
		EventType:   r.EventType,
		PlayedAt:    r.PlayedAt,
		CompletedAt: completedAt,
	}
}

// Meta returns the timing data used for window matching
func (r *RoundReport) Meta() RoundMeta {
	round := r.Round()
	return RoundMeta{
		RoundID:     r.RoundID,
		PlayedAt:    round.PlayedAt,
		CompletedAt: round.CompletedAt,
		WindowID:    r.WindowID,
	}
}

// MissingSeasonPoints reports a season round whose players all carry zero
// points. Such a round adds nothing to the season table.
func (r *RoundReport) MissingSeasonPoints() bool {
	if r.EventType != EventTypeSeason || len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if p.Points != 0 {
			return false
		}
	}
	return true
}

// RoundGamificationResult summarizes one processRoundGamification call
type RoundGamificationResult struct {
	RoundID         int64    `json:"round_id"`
	AwardsSkipped   bool     `json:"awards_skipped"`
	PlayersAwarded  int      `json:"players_awarded"`
	TotalAwarded    int64    `json:"total_awarded"`
	UnknownPlayers  []string `json:"unknown_players,omitempty"`
	SettledWindowID *int64   `json:"settled_window_id,omitempty"`
	SettlementError string   `json:"settlement_error,omitempty"`
}
