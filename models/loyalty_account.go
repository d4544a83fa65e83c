package models

import (
	"time"
)

// Loyalty tiers, derived from lifetime spending.
const (
	TierBronze   = "BRONZE"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

// LoyaltyAccount carries the cached balance for one customer. CurrentPoints
// must always equal the running sum of the account's ledger entries; every
// mutation happens in the same transaction as its ledger append.
type LoyaltyAccount struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CustomerID uint `gorm:"column:customer_id;uniqueIndex" json:"customer_id"`

	CurrentPoints  int64 `gorm:"column:current_points" json:"current_points"`
	LifetimePoints int64 `gorm:"column:lifetime_points" json:"lifetime_points"`

	// Lifetime spending in minor units, monotonic non-decreasing.
	LifetimeSpendingCents int64 `gorm:"column:lifetime_spending_cents" json:"lifetime_spending_cents"`

	Tier          string     `gorm:"column:tier;size:16" json:"tier"`
	TierUpdatedAt *time.Time `gorm:"column:tier_updated_at" json:"tier_updated_at,omitempty"`
}
