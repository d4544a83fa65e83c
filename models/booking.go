package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking lifecycle statuses. PENDING_PAYMENT is the initial state;
// CANCELLED, CHECKED_OUT and NO_SHOW are terminal.
const (
	BookingStatusPendingPayment = "PENDING_PAYMENT"
	BookingStatusConfirmed      = "CONFIRMED"
	BookingStatusCheckedIn      = "CHECKED_IN"
	BookingStatusCheckedOut     = "CHECKED_OUT"
	BookingStatusCancelled      = "CANCELLED"
	BookingStatusNoShow         = "NO_SHOW"
)

// Payment status mirrored onto the booking for listing screens.
const (
	BookingPaymentUnpaid   = "UNPAID"
	BookingPaymentPending  = "PENDING"
	BookingPaymentPaid     = "PAID"
	BookingPaymentFailed   = "FAILED"
	BookingPaymentRefunded = "REFUNDED"
	BookingPaymentPartial  = "PARTIALLY_REFUNDED"
)

type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CustomerID uint `gorm:"index;column:customer_id" json:"customer_id"`
	RoomID     uint `gorm:"index;column:room_id" json:"room_id"`

	ReferenceCode string `gorm:"column:reference_code;size:64;uniqueIndex" json:"reference_code"`
	Status        string `gorm:"column:status;size:32;index" json:"status"`

	CheckIn  time.Time `gorm:"column:check_in" json:"check_in"`
	CheckOut time.Time `gorm:"column:check_out" json:"check_out"`
	Nights   int       `gorm:"column:nights" json:"nights"`
	Guests   int       `gorm:"column:guests" json:"guests"`

	// Money in minor units (satang).
	TotalPriceCents    int64  `gorm:"column:total_price_cents" json:"total_price_cents"`
	DiscountFromPoints int64  `gorm:"column:discount_from_points_cents" json:"discount_from_points_cents"`
	Currency           string `gorm:"column:currency;size:8" json:"currency"`

	PointsEarned   int64 `gorm:"column:points_earned" json:"points_earned"`
	PointsRedeemed int64 `gorm:"column:points_redeemed" json:"points_redeemed"`

	PaymentStatus        string     `gorm:"column:payment_status;size:32" json:"payment_status"`
	PaymentTransactionID *uint      `gorm:"column:payment_transaction_id" json:"payment_transaction_id,omitempty"`
	IsPaid               bool       `gorm:"column:is_paid;default:false" json:"is_paid"`
	PaidAt               *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`

	CheckedInAt  *time.Time `gorm:"column:checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `gorm:"column:checked_out_at" json:"checked_out_at,omitempty"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy  string     `gorm:"column:cancelled_by;size:32" json:"cancelled_by,omitempty"`

	Room     Room     `gorm:"foreignKey:RoomID;references:ID" json:"room,omitempty"`
	Customer Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// bookingTransitions is the full state table. Any (state, next) pair not
// listed here is an illegal transition.
var bookingTransitions = map[string][]string{
	BookingStatusPendingPayment: {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusCheckedIn, BookingStatusCancelled, BookingStatusNoShow},
	BookingStatusCheckedIn:      {BookingStatusCheckedOut},
	BookingStatusCheckedOut:     {},
	BookingStatusCancelled:      {},
	BookingStatusNoShow:         {},
}

// CanTransition reports whether the booking may move to next.
func (b *Booking) CanTransition(next string) bool {
	for _, allowed := range bookingTransitions[b.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the booking reached a terminal state.
func (b *Booking) IsTerminal() bool {
	return len(bookingTransitions[b.Status]) == 0
}

// OccupiesRoom reports whether this booking blocks the room for its date
// range. Cancelled and no-show bookings free the room.
func (b *Booking) OccupiesRoom() bool {
	return b.Status != BookingStatusCancelled && b.Status != BookingStatusNoShow
}

// PayableAmount คือยอดที่ต้องชำระจริงหลังหักส่วนลดจากแต้ม
func (b *Booking) PayableAmount() int64 {
	amount := b.TotalPriceCents - b.DiscountFromPoints
	if amount < 0 {
		return 0
	}
	return amount
}
