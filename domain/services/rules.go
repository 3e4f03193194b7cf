package services

import "time"

// Rules are the tunable constants of the economy
type Rules struct {
	MinWager             int64
	WindowDuration       time.Duration
	WindowExpiry         time.Duration
	ParticipationAward   int64
	UpsetBonus           int64
	TransactionPageLimit int
}

// DefaultRules returns the league's standard economy
func DefaultRules() Rules {
	return Rules{
		MinWager:             20,
		WindowDuration:       30 * time.Minute,
		WindowExpiry:         15 * 24 * time.Hour,
		ParticipationAward:   10,
		UpsetBonus:           5,
		TransactionPageLimit: 100,
	}
}
