package models

import (
	"time"
)

// Loyalty ledger entry types.
const (
	LoyaltyEntryEarn       = "EARN"
	LoyaltyEntryRedeem     = "REDEEM"
	LoyaltyEntryBonus      = "BONUS"
	LoyaltyEntryAdjustment = "ADJUSTMENT"
)

// LoyaltyTransaction is an immutable ledger row. Rows are only ever appended;
// the account balance is the running sum of Points over the account's rows.
type LoyaltyTransaction struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"created_at"`

	AccountID uint  `gorm:"column:account_id;index" json:"account_id"`
	BookingID *uint `gorm:"column:booking_id;index" json:"booking_id,omitempty"`

	Type string `gorm:"column:type;size:16" json:"type"`

	// Signed point movement: positive for EARN/BONUS, negative for REDEEM.
	Points       int64 `gorm:"column:points" json:"points"`
	BalanceAfter int64 `gorm:"column:balance_after" json:"balance_after"`

	Description string `gorm:"column:description;size:255" json:"description"`

	// Set on manual ADJUSTMENT entries.
	AdminID *uint `gorm:"column:admin_id" json:"admin_id,omitempty"`
}
