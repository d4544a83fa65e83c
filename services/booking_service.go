// services/booking_service.go
package services

import (
	"context"
	"errors"
	"time"

	"stayhub-backend/config"
	"stayhub-backend/models"
	"stayhub-backend/repository"
	"stayhub-backend/utils"

	"go.uber.org/zap"
)

// PaymentRefunder is the seam through which a cancellation reaches the
// payment reconciler. The reconciler owns the gateway call and, on success,
// the bookkeeping and the CANCELLED transition.
type PaymentRefunder interface {
	Refund(ctx context.Context, transactionID uint, amountCents int64, reason, cancelledBy string) (*models.PaymentTransaction, error)
}

// CreateBookingInput is the validated shape for a new booking.
type CreateBookingInput struct {
	CustomerID uint
	RoomID     uint
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
}

// BookingService drives the booking lifecycle. Every (state, event) pair
// either moves the booking per the transition table in models or returns a
// typed rejection; there are no silent illegal transitions.
type BookingService struct {
	uow          repository.UnitOfWork
	guard        *AvailabilityGuard
	loyalty      LoyaltyRedeemer
	refunder     PaymentRefunder
	notifier     Notifier
	refundPolicy config.RefundPolicy
	log          *zap.Logger
}

func NewBookingService(
	uow repository.UnitOfWork,
	guard *AvailabilityGuard,
	loyalty LoyaltyRedeemer,
	refunder PaymentRefunder,
	notifier Notifier,
	refundPolicy config.RefundPolicy,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		uow:          uow,
		guard:        guard,
		loyalty:      loyalty,
		refunder:     refunder,
		notifier:     notifier,
		refundPolicy: refundPolicy,
		log:          log,
	}
}

// CreateBooking validates the request, locks the room, runs the availability
// guard and inserts the booking in one unit of work. Concurrent overlapping
// requests on the same room serialize on the room row: exactly one wins, the
// other gets a ConflictError. Bookings on different rooms do not contend.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	now := time.Now().UTC()

	if !in.CheckIn.Before(in.CheckOut) {
		return nil, validationf("check-out must be after check-in")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.CheckIn.Before(today) {
		return nil, validationf("check-in cannot be in the past")
	}
	if in.Guests < 1 {
		return nil, validationf("at least one guest is required")
	}

	var booking *models.Booking
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		if _, err := st.Customers().GetByID(ctx, in.CustomerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("customer")
			}
			return err
		}

		room, err := st.Rooms().GetByIDForUpdate(ctx, in.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("room")
			}
			return err
		}
		if in.Guests > room.MaxOccupancy {
			return validationf("room %s takes at most %d guests", room.RoomNumber, room.MaxOccupancy)
		}

		if err := s.guard.EnsureAvailable(ctx, st, room.ID, in.CheckIn, in.CheckOut); err != nil {
			return err
		}

		nights := int(in.CheckOut.Sub(in.CheckIn).Hours() / 24)
		if nights <= 0 {
			nights = 1
		}

		booking = &models.Booking{
			CustomerID:    in.CustomerID,
			RoomID:        room.ID,
			Status:        models.BookingStatusPendingPayment,
			PaymentStatus: models.BookingPaymentUnpaid,
			CheckIn:       in.CheckIn,
			CheckOut:      in.CheckOut,
			Nights:        nights,
			Guests:        in.Guests,
			TotalPriceCents: int64(nights) * room.PriceCents,
		}

		// retry reference codes on the rare unique collision
		for attempt := 0; attempt < 5; attempt++ {
			booking.ReferenceCode = utils.NewBookingReference()
			createErr := st.Bookings().Create(ctx, booking)
			if createErr == nil {
				return nil
			}
			if !errors.Is(createErr, repository.ErrDuplicate) {
				return createErr
			}
			s.log.Warn("booking reference collision, retrying",
				zap.String("reference_code", booking.ReferenceCode),
				zap.Int("attempt", attempt+1))
		}
		return conflictf("could not allocate a booking reference")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.String("reference_code", booking.ReferenceCode),
		zap.Uint("room_id", booking.RoomID))
	return booking, nil
}

// GetBooking returns the booking, enforcing ownership for plain guests.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
	booking, err := s.uow.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("booking")
		}
		return nil, err
	}
	if booking.CustomerID != actor.UserID && !actor.IsStaff() {
		return nil, forbidden("booking belongs to another customer")
	}
	return booking, nil
}

// CancelBooking validates the transition and, when the booking is paid,
// requires the refund to succeed before the status flips. Refund failure
// leaves the booking untouched (fail-closed). The wall clock is read exactly
// once so the window check and the refund computation agree.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uint, actor Actor, reason string, requestedCents *int64) (*models.Booking, error) {
	now := time.Now().UTC()

	booking, err := s.GetBooking(ctx, bookingID, actor)
	if err != nil {
		return nil, err
	}
	if !booking.CanTransition(models.BookingStatusCancelled) {
		return nil, conflictf("booking %s cannot be cancelled from %s", booking.ReferenceCode, booking.Status)
	}
	if !actor.IsAdmin() && !now.Before(booking.CheckIn) {
		return nil, forbidden("cancellation window has closed")
	}

	if booking.IsPaid {
		txn, err := s.uow.Payments().FindActiveByBookingID(ctx, booking.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, conflictf("booking %s is marked paid but has no payment", booking.ReferenceCode)
			}
			return nil, err
		}

		amount, err := ComputeRefund(booking, txn, now, actor, requestedCents, s.refundPolicy)
		if err != nil {
			return nil, err
		}
		if amount > 0 {
			// the reconciler flips the booking to CANCELLED once the
			// gateway refund succeeds; any error leaves everything as-is
			if _, err := s.refunder.Refund(ctx, txn.ID, amount, reason, actor.Role); err != nil {
				return nil, err
			}
			return s.uow.Bookings().GetByID(ctx, bookingID)
		}
	}

	// unpaid booking, or a zero-amount refund policy
	err = s.uow.WithinTx(ctx, func(st repository.Stores) error {
		b, err := st.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.CanTransition(models.BookingStatusCancelled) {
			return conflictf("booking %s cannot be cancelled from %s", b.ReferenceCode, b.Status)
		}
		b.Status = models.BookingStatusCancelled
		b.CancelledAt = &now
		b.CancelledBy = actor.Role
		if err := st.Bookings().Update(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.BookingCancelled(ctx, booking, 0)
	return booking, nil
}

// CheckIn moves a confirmed booking to CHECKED_IN. Front-desk only.
func (s *BookingService) CheckIn(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
	if !actor.IsStaff() {
		return nil, forbidden("check-in is a front-desk operation")
	}
	return s.transition(ctx, bookingID, models.BookingStatusCheckedIn, func(b *models.Booking, now time.Time) {
		b.CheckedInAt = &now
	})
}

// CheckOut moves a checked-in booking to CHECKED_OUT. Front-desk only.
func (s *BookingService) CheckOut(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
	if !actor.IsStaff() {
		return nil, forbidden("check-out is a front-desk operation")
	}
	return s.transition(ctx, bookingID, models.BookingStatusCheckedOut, func(b *models.Booking, now time.Time) {
		b.CheckedOutAt = &now
	})
}

// MarkNoShow moves a confirmed booking to NO_SHOW. Admin only.
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("marking a no-show requires admin rights")
	}
	return s.transition(ctx, bookingID, models.BookingStatusNoShow, nil)
}

func (s *BookingService) transition(ctx context.Context, bookingID uint, next string, apply func(*models.Booking, time.Time)) (*models.Booking, error) {
	var booking *models.Booking
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		b, err := st.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("booking")
			}
			return err
		}
		if !b.CanTransition(next) {
			return conflictf("booking %s cannot move from %s to %s", b.ReferenceCode, b.Status, next)
		}
		now := time.Now().UTC()
		b.Status = next
		if apply != nil {
			apply(b, now)
		}
		if err := st.Bookings().Update(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// ApplyPointsRedemption redeems loyalty points as a discount on a booking
// still awaiting payment. The ledger append, the balance update and the
// booking discount are one transaction; the booking status does not change.
// Callers must use the returned actual redemption, which may be clamped
// below the request.
func (s *BookingService) ApplyPointsRedemption(ctx context.Context, bookingID uint, actor Actor, requestedPoints int64) (*models.Booking, Redemption, error) {
	var (
		booking    *models.Booking
		redemption Redemption
	)
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		b, err := st.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("booking")
			}
			return err
		}
		if b.CustomerID != actor.UserID && !actor.IsStaff() {
			return forbidden("booking belongs to another customer")
		}
		if b.Status != models.BookingStatusPendingPayment {
			return conflictf("points can only be redeemed while booking %s awaits payment", b.ReferenceCode)
		}
		// once an intent exists its amount is fixed; a later discount would
		// desync the charge from the payable amount
		if existing, err := st.Payments().FindActiveByBookingID(ctx, b.ID); err == nil {
			return conflictf("booking %s has a %s payment, points cannot be redeemed now", b.ReferenceCode, existing.Status)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		redemption, err = s.loyalty.RedeemPointsTx(ctx, st, b.CustomerID, &b.ID, requestedPoints, b.TotalPriceCents, b.PointsRedeemed)
		if err != nil {
			return err
		}

		b.DiscountFromPoints += redemption.DiscountCents
		b.PointsRedeemed += redemption.Points
		if err := st.Bookings().Update(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, Redemption{}, err
	}

	s.log.Info("points redeemed on booking",
		zap.Uint("booking_id", booking.ID),
		zap.Int64("points", redemption.Points),
		zap.Int64("discount_cents", redemption.DiscountCents))
	return booking, redemption, nil
}
