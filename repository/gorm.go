package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayhub-backend/models"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStores implements Stores over a *gorm.DB. The same struct serves both
// the root handle and transaction-scoped handles: WithinTx re-wraps the tx.
type gormStores struct {
	db *gorm.DB
}

// NewGormUnitOfWork wraps a gorm handle into the unit-of-work abstraction.
func NewGormUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormStores{db: db}
}

func (s *gormStores) Bookings() BookingStore           { return &gormBookingStore{db: s.db} }
func (s *gormStores) Payments() PaymentStore           { return &gormPaymentStore{db: s.db} }
func (s *gormStores) Loyalty() LoyaltyStore            { return &gormLoyaltyStore{db: s.db} }
func (s *gormStores) Rooms() RoomStore                 { return &gormRoomStore{db: s.db} }
func (s *gormStores) Customers() CustomerStore         { return &gormCustomerStore{db: s.db} }
func (s *gormStores) WebhookEvents() WebhookEventStore { return &gormWebhookEventStore{db: s.db} }

func (s *gormStores) WithinTx(ctx context.Context, fn func(st Stores) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStores{db: tx})
	})
}

// translate maps gorm/driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var mysqlErr *mysqldrv.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return ErrDuplicate
	}
	// fallback: some drivers only surface the message
	lc := strings.ToLower(err.Error())
	if strings.Contains(lc, "duplicate") || strings.Contains(lc, "unique") {
		return ErrDuplicate
	}
	return err
}

// ---------------------------------------------------------------------------
// bookings

type gormBookingStore struct{ db *gorm.DB }

func (s *gormBookingStore) Create(ctx context.Context, booking *models.Booking) error {
	return translate(s.db.WithContext(ctx).Create(booking).Error)
}

func (s *gormBookingStore) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *gormBookingStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *gormBookingStore) Update(ctx context.Context, booking *models.Booking) error {
	return translate(s.db.WithContext(ctx).Save(booking).Error)
}

func (s *gormBookingStore) HasOverlap(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("room_id = ?", roomID).
		Where("status NOT IN ?", []string{models.BookingStatusCancelled, models.BookingStatusNoShow}).
		// half-open intervals: checkout day is not occupied
		Where("check_in < ? AND check_out > ?", checkOut, checkIn).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// ---------------------------------------------------------------------------
// payments

type gormPaymentStore struct{ db *gorm.DB }

func (s *gormPaymentStore) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	return translate(s.db.WithContext(ctx).Create(txn).Error)
}

func (s *gormPaymentStore) GetByID(ctx context.Context, id uint) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *gormPaymentStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *gormPaymentStore) GetByIntentID(ctx context.Context, intentID string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Where("external_intent_id = ?", intentID).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *gormPaymentStore) GetByIntentIDForUpdate(ctx context.Context, intentID string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_intent_id = ?", intentID).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *gormPaymentStore) FindActiveByBookingID(ctx context.Context, bookingID uint) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Where("status IN ?", []string{models.PaymentStatusPending, models.PaymentStatusSucceeded}).
		Order("id DESC").
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *gormPaymentStore) Update(ctx context.Context, txn *models.PaymentTransaction) error {
	return translate(s.db.WithContext(ctx).Save(txn).Error)
}

// ---------------------------------------------------------------------------
// loyalty

type gormLoyaltyStore struct{ db *gorm.DB }

func (s *gormLoyaltyStore) GetAccountByCustomerID(ctx context.Context, customerID uint) (*models.LoyaltyAccount, error) {
	var a models.LoyaltyAccount
	err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *gormLoyaltyStore) GetAccountByCustomerIDForUpdate(ctx context.Context, customerID uint) (*models.LoyaltyAccount, error) {
	var a models.LoyaltyAccount
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *gormLoyaltyStore) CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	return translate(s.db.WithContext(ctx).Create(account).Error)
}

func (s *gormLoyaltyStore) UpdateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	return translate(s.db.WithContext(ctx).Save(account).Error)
}

func (s *gormLoyaltyStore) AppendEntry(ctx context.Context, entry *models.LoyaltyTransaction) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *gormLoyaltyStore) ListEntries(ctx context.Context, accountID uint, limit int) ([]models.LoyaltyTransaction, error) {
	var entries []models.LoyaltyTransaction
	q := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

func (s *gormLoyaltyStore) SumEntries(ctx context.Context, accountID uint) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, translate(err)
	}
	return sum, nil
}

// ---------------------------------------------------------------------------
// rooms / customers

type gormRoomStore struct{ db *gorm.DB }

func (s *gormRoomStore) GetByID(ctx context.Context, id uint) (*models.Room, error) {
	var r models.Room
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *gormRoomStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Room, error) {
	var r models.Room
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

type gormCustomerStore struct{ db *gorm.DB }

func (s *gormCustomerStore) GetByID(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ---------------------------------------------------------------------------
// webhook events

type gormWebhookEventStore struct{ db *gorm.DB }

func (s *gormWebhookEventStore) Insert(ctx context.Context, event *models.WebhookEvent) error {
	return translate(s.db.WithContext(ctx).Create(event).Error)
}
