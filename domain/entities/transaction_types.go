package entities

// TransactionType represents the reason for a ledger entry
type TransactionType string

// All transaction types recorded by the ledger
const (
	// Blessing market
	TransactionTypeBlessingLoss       TransactionType = "blessing_loss"
	TransactionTypeBlessingWinPerfect TransactionType = "blessing_win_perfect"
	TransactionTypeBlessingWinPartial TransactionType = "blessing_win_partial"

	// Challenge arena
	TransactionTypeChallengeLoss           TransactionType = "challenge_loss"
	TransactionTypeChallengeWin            TransactionType = "challenge_win"
	TransactionTypeChallengeRefund         TransactionType = "challenge_refund"
	TransactionTypeChallengeDeclinedBurn   TransactionType = "challenge_declined_burn"
	TransactionTypeChallengeNoResponseBurn TransactionType = "challenge_no_response_burn"

	// Window lifecycle
	TransactionTypeWindowExpiredRefund TransactionType = "window_expired_refund"

	// Advantage shop
	TransactionTypeAdvantagePurchase TransactionType = "advantage_purchase"
	TransactionTypeAdvantageExpired  TransactionType = "advantage_expired"

	// Round awards
	TransactionTypeRoundParticipation TransactionType = "round_participation"
	TransactionTypeUpsetBonus         TransactionType = "upset_bonus"
	TransactionTypeDRSBonus           TransactionType = "drs_bonus"

	// System transactions
	TransactionTypeInitial         TransactionType = "initial"
	TransactionTypeAdminAdjustment TransactionType = "admin_adjustment"
)

// IsProvisional returns true for wager debits that a later settlement may offset
func (tt TransactionType) IsProvisional() bool {
	return tt == TransactionTypeBlessingLoss ||
		tt == TransactionTypeChallengeLoss
}

// IsWinType returns true if the transaction type represents a wager win
func (tt TransactionType) IsWinType() bool {
	return tt == TransactionTypeBlessingWinPerfect ||
		tt == TransactionTypeBlessingWinPartial ||
		tt == TransactionTypeChallengeWin
}

// IsAward returns true for round participation and performance awards
func (tt TransactionType) IsAward() bool {
	return tt == TransactionTypeRoundParticipation ||
		tt == TransactionTypeUpsetBonus ||
		tt == TransactionTypeDRSBonus
}

// IsNotice returns true for zero-amount transparency entries
func (tt TransactionType) IsNotice() bool {
	return tt == TransactionTypeAdvantageExpired
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
