package entities

import (
	"errors"
	"time"
)

// Transaction is an immutable ledger entry. A player's balance always equals
// the sum of Amount over their transactions.
type Transaction struct {
	ID           int64           `db:"id" json:"id"`
	PlayerID     int64           `db:"player_id" json:"player_id"`
	Amount       int64           `db:"amount" json:"amount"`
	BalanceAfter int64           `db:"balance_after" json:"balance_after"`
	Type         TransactionType `db:"type" json:"type"`
	Description  string          `db:"description" json:"description"`
	Metadata     map[string]any  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// IsCredit returns true if the entry increased the balance
func (t *Transaction) IsCredit() bool {
	return t.Amount > 0
}

// IsDebit returns true if the entry decreased the balance
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}

// Validate performs basic consistency checks before the entry is stored
func (t *Transaction) Validate() error {
	if t.PlayerID == 0 {
		return errors.New("transaction requires a player")
	}
	if t.Type == "" {
		return errors.New("transaction requires a type")
	}
	if t.Amount == 0 && !t.Type.IsNotice() {
		return errors.New("amount cannot be zero")
	}
	if t.BalanceAfter < 0 {
		return errors.New("balance cannot go negative")
	}
	return nil
}
