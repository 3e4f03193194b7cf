package entities

import "time"

// ChallengeStatus represents the state of a head-to-head challenge
type ChallengeStatus string

const (
	ChallengeStatusPending           ChallengeStatus = "pending"
	ChallengeStatusWaiting           ChallengeStatus = "waiting"
	ChallengeStatusAccepted          ChallengeStatus = "accepted"
	ChallengeStatusDeclined          ChallengeStatus = "declined"
	ChallengeStatusExpiredNoResponse ChallengeStatus = "expired_no_response"
	ChallengeStatusCancelledWaitlist ChallengeStatus = "cancelled_waitlist"
	ChallengeStatusResolved          ChallengeStatus = "resolved"
)

// IsTerminal returns true once no further transitions are possible
func (s ChallengeStatus) IsTerminal() bool {
	switch s {
	case ChallengeStatusDeclined, ChallengeStatusExpiredNoResponse,
		ChallengeStatusCancelledWaitlist, ChallengeStatusResolved:
		return true
	default:
		return false
	}
}

// ChallengeOutcome is the result of comparing two stroke totals
type ChallengeOutcome string

const (
	ChallengeOutcomeChallengerWins ChallengeOutcome = "challenger_wins"
	ChallengeOutcomeChallengedWins ChallengeOutcome = "challenged_wins"
	ChallengeOutcomeTie            ChallengeOutcome = "tie"
	// ChallengeOutcomeVoid means a participant has no result in the matched round
	ChallengeOutcomeVoid ChallengeOutcome = "void"
)

// Challenge is a head-to-head wager issued by a lower-standing player
type Challenge struct {
	ID               int64           `db:"id" json:"id"`
	ChallengerID     int64           `db:"challenger_id" json:"challenger_id"`
	ChallengedID     int64           `db:"challenged_id" json:"challenged_id"`
	WindowID         int64           `db:"window_id" json:"window_id"`
	WagerAmount      int64           `db:"wager_amount" json:"wager_amount"`
	Status           ChallengeStatus `db:"status" json:"status"`
	CowardiceTaxPaid int64           `db:"cowardice_tax_paid" json:"cowardice_tax_paid"`
	WinnerID         *int64          `db:"winner_id" json:"winner_id,omitempty"`
	RoundID          *int64          `db:"round_id" json:"round_id,omitempty"`
	IssuedAt         time.Time       `db:"issued_at" json:"issued_at"`
	RespondedAt      *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
	ResolvedAt       *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// CowardiceTax is the amount burned from a challenged player who declines or
// never responds: half the wager, rounded down
func (c *Challenge) CowardiceTax() int64 {
	return c.WagerAmount / 2
}

// IsParticipant returns true if the player is either side of the challenge
func (c *Challenge) IsParticipant(playerID int64) bool {
	return c.ChallengerID == playerID || c.ChallengedID == playerID
}

// CompareStrokes decides an accepted challenge. Lower strokes wins.
// A nil total means the player has no result in the round.
func CompareStrokes(challengerStrokes, challengedStrokes *int) ChallengeOutcome {
	if challengerStrokes == nil || challengedStrokes == nil {
		return ChallengeOutcomeVoid
	}
	switch {
	case *challengerStrokes < *challengedStrokes:
		return ChallengeOutcomeChallengerWins
	case *challengerStrokes > *challengedStrokes:
		return ChallengeOutcomeChallengedWins
	default:
		return ChallengeOutcomeTie
	}
}
