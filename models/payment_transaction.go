package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment transaction statuses. Transitions are monotonic: a transaction
// never moves back to an earlier status.
const (
	PaymentStatusPending       = "PENDING"
	PaymentStatusSucceeded     = "SUCCEEDED"
	PaymentStatusFailed        = "FAILED"
	PaymentStatusRefunded      = "REFUNDED"
	PaymentStatusPartialRefund = "PARTIALLY_REFUNDED"
)

type PaymentTransaction struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BookingID uint `gorm:"index;column:booking_id" json:"booking_id"`

	AmountCents int64  `gorm:"column:amount_cents" json:"amount_cents"`
	Currency    string `gorm:"column:currency;size:8" json:"currency"`
	Status      string `gorm:"column:status;size:32;index" json:"status"`

	// Intent id assigned by the payment gateway. Unique so a gateway event
	// can never attach to more than one local transaction.
	ExternalIntentID string `gorm:"column:external_intent_id;size:128;uniqueIndex" json:"external_intent_id"`

	RefundAmountCents int64  `gorm:"column:refund_amount_cents" json:"refund_amount_cents"`
	RefundReason      string `gorm:"column:refund_reason;size:255" json:"refund_reason,omitempty"`
	FailureReason     string `gorm:"column:failure_reason;size:255" json:"failure_reason,omitempty"`

	// Key sent to the gateway on refund so retries collapse into one refund.
	IdempotencyKey string `gorm:"column:idempotency_key;size:64" json:"-"`
}

var paymentTransitions = map[string][]string{
	PaymentStatusPending:       {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusSucceeded:     {PaymentStatusRefunded, PaymentStatusPartialRefund},
	PaymentStatusFailed:        {},
	PaymentStatusRefunded:      {},
	PaymentStatusPartialRefund: {PaymentStatusRefunded},
}

// CanTransition reports whether the transaction may move to next.
func (t *PaymentTransaction) CanTransition(next string) bool {
	for _, allowed := range paymentTransitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active reports whether this transaction still blocks a new intent for the
// same booking (double-charge guard).
func (t *PaymentTransaction) Active() bool {
	return t.Status == PaymentStatusPending || t.Status == PaymentStatusSucceeded
}
