package entities

import "time"

// Player is a league member holding a PULP balance
type Player struct {
	ID                 int64     `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Balance            int64     `db:"balance" json:"balance"`
	Active             bool      `db:"active" json:"active"`
	SeasonRoundsPlayed int       `db:"season_rounds_played" json:"season_rounds_played"`
	ChallengesDeclined int       `db:"challenges_declined" json:"challenges_declined"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// CanAfford reports whether the balance covers amount
func (p *Player) CanAfford(amount int64) bool {
	return p.Balance >= amount
}

// PlayerStats aggregates a player's ledger history
type PlayerStats struct {
	PlayerID         int64                     `json:"player_id"`
	Balance          int64                     `json:"balance"`
	TotalEarned      int64                     `json:"total_earned"`
	TotalSpent       int64                     `json:"total_spent"`
	TransactionCount int64                     `json:"transaction_count"`
	ByType           map[TransactionType]int64 `json:"by_type"`
	BlessingsWon     int64                     `json:"blessings_won"`
	ChallengesWon    int64                     `json:"challenges_won"`
}

// NetChange returns earned minus spent
func (s *PlayerStats) NetChange() int64 {
	return s.TotalEarned - s.TotalSpent
}
