package repository

import (
	"context"
	"errors"
	"time"

	"stayhub-backend/models"
)

// Sentinel storage errors. Services translate these into the API error
// taxonomy; repository code never leaks driver errors upward.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// BookingStore owns booking rows.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	// GetByIDForUpdate locks the booking row until the surrounding unit of
	// work commits.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error)
	Update(ctx context.Context, booking *models.Booking) error
	// HasOverlap reports whether any room-occupying booking intersects the
	// half-open range [checkIn, checkOut) for the room. Callers must hold
	// the room row lock so check-then-insert is atomic.
	HasOverlap(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error)
}

// PaymentStore owns payment transaction rows.
type PaymentStore interface {
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	GetByID(ctx context.Context, id uint) (*models.PaymentTransaction, error)
	// GetByIDForUpdate locks the transaction row until the surrounding unit
	// of work commits.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.PaymentTransaction, error)
	GetByIntentID(ctx context.Context, intentID string) (*models.PaymentTransaction, error)
	GetByIntentIDForUpdate(ctx context.Context, intentID string) (*models.PaymentTransaction, error)
	// FindActiveByBookingID returns the PENDING or SUCCEEDED transaction for
	// the booking, or ErrNotFound.
	FindActiveByBookingID(ctx context.Context, bookingID uint) (*models.PaymentTransaction, error)
	Update(ctx context.Context, txn *models.PaymentTransaction) error
}

// LoyaltyStore owns the account row and its append-only ledger.
type LoyaltyStore interface {
	GetAccountByCustomerID(ctx context.Context, customerID uint) (*models.LoyaltyAccount, error)
	GetAccountByCustomerIDForUpdate(ctx context.Context, customerID uint) (*models.LoyaltyAccount, error)
	CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error
	UpdateAccount(ctx context.Context, account *models.LoyaltyAccount) error
	AppendEntry(ctx context.Context, entry *models.LoyaltyTransaction) error
	ListEntries(ctx context.Context, accountID uint, limit int) ([]models.LoyaltyTransaction, error)
	// SumEntries recomputes the ledger running sum for reconciliation.
	SumEntries(ctx context.Context, accountID uint) (int64, error)
}

type RoomStore interface {
	GetByID(ctx context.Context, id uint) (*models.Room, error)
	// GetByIDForUpdate serializes concurrent booking creation per room.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Room, error)
}

type CustomerStore interface {
	GetByID(ctx context.Context, id uint) (*models.Customer, error)
}

type WebhookEventStore interface {
	// Insert returns ErrDuplicate when an event with the same
	// (intent_id, event_type) was already processed.
	Insert(ctx context.Context, event *models.WebhookEvent) error
}

// Stores bundles every store sharing one storage handle. Inside a unit of
// work all stores run on the same transaction.
type Stores interface {
	Bookings() BookingStore
	Payments() PaymentStore
	Loyalty() LoyaltyStore
	Rooms() RoomStore
	Customers() CustomerStore
	WebhookEvents() WebhookEventStore
}

// UnitOfWork runs a function against transaction-scoped stores. The function
// either commits as a whole or leaves no trace.
type UnitOfWork interface {
	Stores
	WithinTx(ctx context.Context, fn func(st Stores) error) error
}
