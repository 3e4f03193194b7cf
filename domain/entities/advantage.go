package entities

import "time"

// AdvantageCatalogEntry is reference data describing a purchasable perk
type AdvantageCatalogEntry struct {
	Key             string `db:"key" json:"key"`
	Name            string `db:"name" json:"name"`
	Description     string `db:"description" json:"description"`
	PulpCost        int64  `db:"pulp_cost" json:"pulp_cost"`
	ExpirationHours int    `db:"expiration_hours" json:"expiration_hours"`
	Active          bool   `db:"active" json:"active"`
}

// Lifetime returns how long a purchased instance stays usable
func (e *AdvantageCatalogEntry) Lifetime() time.Duration {
	return time.Duration(e.ExpirationHours) * time.Hour
}

// AdvantageInstance is one purchased perk owned by a player
type AdvantageInstance struct {
	ID            int64          `db:"id" json:"id"`
	PlayerID      int64          `db:"player_id" json:"player_id"`
	AdvantageKey  string         `db:"advantage_key" json:"advantage_key"`
	PurchasedAt   time.Time      `db:"purchased_at" json:"purchased_at"`
	ExpiresAt     time.Time      `db:"expires_at" json:"expires_at"`
	UsedAt        *time.Time     `db:"used_at" json:"used_at,omitempty"`
	ExpiredAt     *time.Time     `db:"expired_at" json:"expired_at,omitempty"`
	RoundID       *int64         `db:"round_id" json:"round_id,omitempty"`
	UsageMetadata map[string]any `db:"usage_metadata" json:"usage_metadata,omitempty"`
}

// IsUsable returns true if the instance is unused and unexpired at now
func (a *AdvantageInstance) IsUsable(now time.Time) bool {
	return a.UsedAt == nil && a.ExpiredAt == nil && now.Before(a.ExpiresAt)
}

// AdvantageUsage is an entry in a round's perk-usage log
type AdvantageUsage struct {
	ID           int64          `db:"id" json:"id"`
	RoundID      int64          `db:"round_id" json:"round_id"`
	PlayerID     int64          `db:"player_id" json:"player_id"`
	AdvantageKey string         `db:"advantage_key" json:"advantage_key"`
	InstanceID   int64          `db:"instance_id" json:"instance_id"`
	Metadata     map[string]any `db:"metadata" json:"metadata,omitempty"`
	UsedAt       time.Time      `db:"used_at" json:"used_at"`
}
