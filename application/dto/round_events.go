package dto

import (
	"strings"
	"time"

	"pulp/domain/entities"
)

// RoundCompletedDTO is the payload the results producer sends when a round finishes
type RoundCompletedDTO struct {
	RoundID     int64              `json:"round_id"`
	EventID     int64              `json:"event_id"`
	EventType   string             `json:"event_type"`
	PlayedAt    time.Time          `json:"played_at"`
	CompletedAt time.Time          `json:"completed_at"`
	WindowID    *int64             `json:"window_id,omitempty"`
	Players     []RoundFinisherDTO `json:"players"`
}

// RoundFinisherDTO is one row of a round's leaderboard
type RoundFinisherDTO struct {
	Name         string `json:"name"`
	Rank         int    `json:"rank"`
	TotalStrokes int    `json:"total_strokes"`
	FinalTotal   int    `json:"final_total"`
	Points       int    `json:"points"`
}

// ParticipantsRegisteredDTO adds names to an event's participant registry
type ParticipantsRegisteredDTO struct {
	EventID int64    `json:"event_id"`
	Names   []string `json:"names"`
}

// ToRoundReport converts the producer payload into the domain report
func (d RoundCompletedDTO) ToRoundReport() *entities.RoundReport {
	players := make([]*entities.RoundResult, 0, len(d.Players))
	for _, p := range d.Players {
		players = append(players, &entities.RoundResult{
			RoundID:      d.RoundID,
			PlayerName:   strings.TrimSpace(p.Name),
			Rank:         p.Rank,
			TotalStrokes: p.TotalStrokes,
			FinalTotal:   p.FinalTotal,
			Points:       p.Points,
		})
	}

	return &entities.RoundReport{
		RoundID:     d.RoundID,
		EventID:     d.EventID,
		EventType:   entities.EventType(strings.ToLower(strings.TrimSpace(d.EventType))),
		PlayedAt:    d.PlayedAt.UTC(),
		CompletedAt: d.CompletedAt.UTC(),
		WindowID:    d.WindowID,
		Players:     players,
	}
}
