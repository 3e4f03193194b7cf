package entities

import "time"

// BlessingStatus represents the state of a blessing
type BlessingStatus string

const (
	BlessingStatusPending    BlessingStatus = "pending"
	BlessingStatusWonPerfect BlessingStatus = "won_perfect"
	BlessingStatusWonPartial BlessingStatus = "won_partial"
	BlessingStatusLost       BlessingStatus = "lost"
	// BlessingStatusRefunded marks a wager returned because its window expired unsettled
	BlessingStatusRefunded BlessingStatus = "refunded"
)

// Podium is an ordered top-three: a blessing's prediction or a round's actual finish
type Podium struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Third  string `json:"third"`
}

// Names returns the podium in finishing order
func (p Podium) Names() []string {
	return []string{p.First, p.Second, p.Third}
}

// IsComplete returns true if every slot is filled
func (p Podium) IsComplete() bool {
	return p.First != "" && p.Second != "" && p.Third != ""
}

// IsDistinct returns true if the three names are pairwise different
func (p Podium) IsDistinct() bool {
	return p.First != p.Second && p.First != p.Third && p.Second != p.Third
}

// SameMembers returns true if both podiums hold the same three names in any order
func (p Podium) SameMembers(other Podium) bool {
	counts := make(map[string]int, 3)
	for _, name := range p.Names() {
		counts[name]++
	}
	for _, name := range other.Names() {
		counts[name]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// Blessing is a top-three prediction wager scoped to one window
type Blessing struct {
	ID           int64          `db:"id" json:"id"`
	PlayerID     int64          `db:"player_id" json:"player_id"`
	WindowID     int64          `db:"window_id" json:"window_id"`
	EventID      int64          `db:"event_id" json:"event_id"`
	Prediction   Podium         `json:"prediction"`
	WagerAmount  int64          `db:"wager_amount" json:"wager_amount"`
	Status       BlessingStatus `db:"status" json:"status"`
	PayoutAmount int64          `db:"payout_amount" json:"payout_amount"`
	RoundID      *int64         `db:"round_id" json:"round_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	ResolvedAt   *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
}

// IsPending returns true if the blessing awaits settlement
func (b *Blessing) IsPending() bool {
	return b.Status == BlessingStatusPending
}

// Evaluate compares the prediction against the actual podium.
// Exact order pays double, the right three names in another order pays the
// wager back, anything else pays nothing.
func (b *Blessing) Evaluate(actual Podium) (BlessingStatus, int64) {
	switch {
	case b.Prediction == actual:
		return BlessingStatusWonPerfect, 2 * b.WagerAmount
	case b.Prediction.SameMembers(actual):
		return BlessingStatusWonPartial, b.WagerAmount
	default:
		return BlessingStatusLost, 0
	}
}

// PayoutTransactionType returns the ledger type for a winning status
func (s BlessingStatus) PayoutTransactionType() TransactionType {
	switch s {
	case BlessingStatusWonPerfect:
		return TransactionTypeBlessingWinPerfect
	case BlessingStatusWonPartial:
		return TransactionTypeBlessingWinPartial
	case BlessingStatusRefunded:
		return TransactionTypeWindowExpiredRefund
	default:
		return ""
	}
}
