package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"stayhub-backend/config"
	"stayhub-backend/models"
	"stayhub-backend/repository"
	"stayhub-backend/utils"

	"go.uber.org/zap"
)

// Gateway webhook event types.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded  = "charge.refunded"
)

// errDropEvent marks a webhook that must be acknowledged without effects:
// a redelivered duplicate or an intent we never issued.
var errDropEvent = errors.New("drop webhook event")

// webhookPayload is the gateway's event envelope.
type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Currency string            `json:"currency"`
			Status   string            `json:"status"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// PaymentService reconciles local payment state with the gateway: it creates
// intents, processes signed webhooks idempotently and issues refunds. Local
// state only ever changes from verified gateway information.
type PaymentService struct {
	uow      repository.UnitOfWork
	gateway  PaymentGateway
	loyalty  LoyaltyAwarder
	notifier Notifier
	cfg      config.GatewayConfig
	log      *zap.Logger
}

func NewPaymentService(uow repository.UnitOfWork, gateway PaymentGateway, loyalty LoyaltyAwarder, notifier Notifier, cfg config.GatewayConfig, log *zap.Logger) *PaymentService {
	return &PaymentService{
		uow:      uow,
		gateway:  gateway,
		loyalty:  loyalty,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

// CreateIntent creates a gateway intent for the booking's payable amount and
// persists a PENDING transaction before returning the client secret. A
// booking with a PENDING or SUCCEEDED transaction is rejected so the guest
// can never be charged twice. The booking row stays locked for the duration,
// serializing concurrent attempts.
func (s *PaymentService) CreateIntent(ctx context.Context, bookingID uint, actor Actor) (*models.PaymentTransaction, string, error) {
	var (
		txn    *models.PaymentTransaction
		secret string
	)
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		booking, err := st.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("booking")
			}
			return err
		}
		if booking.CustomerID != actor.UserID && !actor.IsStaff() {
			return forbidden("booking belongs to another customer")
		}
		if booking.Status != models.BookingStatusPendingPayment {
			return conflictf("booking %s is not awaiting payment", booking.ReferenceCode)
		}

		if existing, err := st.Payments().FindActiveByBookingID(ctx, booking.ID); err == nil {
			return conflictf("a %s payment already exists for booking %s", existing.Status, booking.ReferenceCode)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		amount := booking.PayableAmount()
		if amount <= 0 {
			return validationf("booking has nothing left to pay")
		}

		intent, err := s.gateway.CreateIntent(ctx, amount, s.cfg.Currency, map[string]string{
			"booking_id":     utils.UintToString(booking.ID),
			"reference_code": booking.ReferenceCode,
		})
		if err != nil {
			return err
		}

		txn = &models.PaymentTransaction{
			BookingID:        booking.ID,
			AmountCents:      amount,
			Currency:         s.cfg.Currency,
			Status:           models.PaymentStatusPending,
			ExternalIntentID: intent.ID,
		}
		if err := st.Payments().Create(ctx, txn); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflictf("intent %s already recorded", intent.ID)
			}
			return err
		}

		booking.PaymentStatus = models.BookingPaymentPending
		if err := st.Bookings().Update(ctx, booking); err != nil {
			return err
		}

		secret = intent.ClientSecret
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return txn, secret, nil
}

// HandleWebhook verifies the signature over the raw body and dispatches by
// event type. Redelivery of an already-processed event is a no-op; an intent
// we never issued is logged and dropped, never turned into a booking.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if err := s.verifySignature(rawBody, signature); err != nil {
		return err
	}

	var event webhookPayload
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return validationf("malformed webhook payload: %v", err)
	}
	if event.Data.Object.ID == "" {
		return validationf("webhook payload missing intent id")
	}

	switch event.Type {
	case EventIntentSucceeded:
		return s.applyIntentSucceeded(ctx, event.ID, event.Data.Object.ID, rawBody)
	case EventIntentFailed:
		return s.applyIntentFailed(ctx, event, rawBody)
	case EventChargeRefunded:
		return s.applyGatewayRefund(ctx, event, rawBody)
	default:
		s.log.Info("ignoring webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
		return nil
	}
}

func (s *PaymentService) verifySignature(rawBody []byte, signature string) error {
	if s.cfg.WebhookSecret == "" {
		return &SignatureError{Msg: "webhook secret not configured"}
	}
	if signature == "" {
		return &SignatureError{Msg: "missing webhook signature"}
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return &SignatureError{Msg: "webhook signature mismatch"}
	}
	return nil
}

// ConfirmPayment is the client-initiated confirmation path. The client's
// claim is never trusted: the intent status is retrieved from the gateway and
// the same success path as the webhook applies, sharing its idempotency key.
func (s *PaymentService) ConfirmPayment(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
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

	txn, err := s.uow.Payments().FindActiveByBookingID(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, conflictf("no payment in progress for booking %s", booking.ReferenceCode)
		}
		return nil, err
	}

	intent, err := s.gateway.RetrieveIntent(ctx, txn.ExternalIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != "succeeded" {
		return nil, conflictf("payment for booking %s has gateway status %q", booking.ReferenceCode, intent.Status)
	}

	if err := s.applyIntentSucceeded(ctx, "confirm:"+intent.ID, intent.ID, nil); err != nil {
		return nil, err
	}
	return s.uow.Bookings().GetByID(ctx, bookingID)
}

// applyIntentSucceeded runs the one success transaction: record the event
// (the idempotency barrier), mark the transaction SUCCEEDED, confirm the
// booking and award loyalty points. Exactly one delivery wins; every other
// delivery of the same intent aborts before any effect.
func (s *PaymentService) applyIntentSucceeded(ctx context.Context, eventID, intentID string, rawBody []byte) error {
	var (
		booking *models.Booking
		paid    int64
	)
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		txn, err := st.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warn("webhook for unknown intent dropped", zap.String("intent_id", intentID))
				return errDropEvent
			}
			return err
		}

		if err := s.recordEvent(ctx, st, eventID, intentID, EventIntentSucceeded, rawBody); err != nil {
			return err
		}

		if txn.Status == models.PaymentStatusSucceeded {
			return errDropEvent
		}
		if !txn.CanTransition(models.PaymentStatusSucceeded) {
			return conflictf("payment %d cannot move from %s to %s", txn.ID, txn.Status, models.PaymentStatusSucceeded)
		}
		txn.Status = models.PaymentStatusSucceeded
		if err := st.Payments().Update(ctx, txn); err != nil {
			return err
		}

		b, err := st.Bookings().GetByIDForUpdate(ctx, txn.BookingID)
		if err != nil {
			return err
		}
		if b.Status == models.BookingStatusConfirmed {
			return errDropEvent
		}
		if !b.CanTransition(models.BookingStatusConfirmed) {
			// money was captured for a booking that already left
			// PENDING_PAYMENT (e.g. cancelled meanwhile); keep the payment
			// record and leave the booking for manual reconciliation
			s.log.Warn("payment succeeded for non-confirmable booking",
				zap.Uint("booking_id", b.ID),
				zap.String("status", b.Status))
			return nil
		}

		now := time.Now().UTC()
		b.Status = models.BookingStatusConfirmed
		b.PaymentStatus = models.BookingPaymentPaid
		b.PaymentTransactionID = &txn.ID
		b.IsPaid = true
		b.PaidAt = &now

		earned, err := s.loyalty.AwardPointsTx(ctx, st, b.CustomerID, b.ID, txn.AmountCents, "Points earned for stay "+b.ReferenceCode)
		if err != nil {
			return err
		}
		b.PointsEarned = earned

		if err := st.Bookings().Update(ctx, b); err != nil {
			return err
		}
		booking = b
		paid = txn.AmountCents
		return nil
	})
	if errors.Is(err, errDropEvent) {
		return nil
	}
	if err != nil {
		return err
	}

	if booking != nil {
		s.notifier.BookingConfirmed(ctx, booking)
		s.notifier.PaymentReceipt(ctx, booking, paid)
	}
	return nil
}

// applyIntentFailed marks the transaction FAILED. The booking stays in
// PENDING_PAYMENT so the guest may retry with a fresh intent.
func (s *PaymentService) applyIntentFailed(ctx context.Context, event webhookPayload, rawBody []byte) error {
	intentID := event.Data.Object.ID
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		txn, err := st.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warn("webhook for unknown intent dropped", zap.String("intent_id", intentID))
				return errDropEvent
			}
			return err
		}

		if err := s.recordEvent(ctx, st, event.ID, intentID, EventIntentFailed, rawBody); err != nil {
			return err
		}

		if !txn.CanTransition(models.PaymentStatusFailed) {
			// e.g. a stale failure after success; the monotonic status wins
			return errDropEvent
		}
		txn.Status = models.PaymentStatusFailed
		txn.FailureReason = event.Data.Object.Status
		if err := st.Payments().Update(ctx, txn); err != nil {
			return err
		}

		b, err := st.Bookings().GetByIDForUpdate(ctx, txn.BookingID)
		if err != nil {
			return err
		}
		b.PaymentStatus = models.BookingPaymentFailed
		return st.Bookings().Update(ctx, b)
	})
	if errors.Is(err, errDropEvent) {
		return nil
	}
	return err
}

// applyGatewayRefund handles a refund initiated at the gateway side, e.g. a
// dispute resolved by the processor. The local record follows the gateway
// even though we never asked for the refund.
func (s *PaymentService) applyGatewayRefund(ctx context.Context, event webhookPayload, rawBody []byte) error {
	intentID := event.Data.Object.ID
	var (
		booking *models.Booking
		refund  int64
	)
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		txn, err := st.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warn("webhook for unknown intent dropped", zap.String("intent_id", intentID))
				return errDropEvent
			}
			return err
		}

		if err := s.recordEvent(ctx, st, event.ID, intentID, EventChargeRefunded, rawBody); err != nil {
			return err
		}

		if !txn.CanTransition(models.PaymentStatusRefunded) {
			return errDropEvent
		}

		amount := event.Data.Object.Amount
		if amount <= 0 || amount > txn.AmountCents {
			amount = txn.AmountCents
		}
		txn.Status = models.PaymentStatusRefunded
		txn.RefundAmountCents = amount
		txn.RefundReason = "refunded by gateway"
		if err := st.Payments().Update(ctx, txn); err != nil {
			return err
		}

		b, err := st.Bookings().GetByIDForUpdate(ctx, txn.BookingID)
		if err != nil {
			return err
		}
		b.PaymentStatus = models.BookingPaymentRefunded
		if b.CanTransition(models.BookingStatusCancelled) {
			now := time.Now().UTC()
			b.Status = models.BookingStatusCancelled
			b.CancelledAt = &now
			b.CancelledBy = "gateway"
		}
		if err := st.Bookings().Update(ctx, b); err != nil {
			return err
		}
		booking = b
		refund = amount
		return nil
	})
	if errors.Is(err, errDropEvent) {
		return nil
	}
	if err != nil {
		return err
	}

	if booking != nil && booking.Status == models.BookingStatusCancelled {
		s.notifier.BookingCancelled(ctx, booking, refund)
	}
	return nil
}

// recordEvent is the webhook idempotency barrier: the unique index on
// (intent_id, event_type) makes the second delivery fail here, before any
// state change.
func (s *PaymentService) recordEvent(ctx context.Context, st repository.Stores, eventID, intentID, eventType string, rawBody []byte) error {
	event := &models.WebhookEvent{
		EventID:     eventID,
		IntentID:    intentID,
		EventType:   eventType,
		Payload:     rawBody,
		ProcessedAt: time.Now().UTC(),
	}
	if err := st.WebhookEvents().Insert(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Info("duplicate webhook delivery dropped",
				zap.String("intent_id", intentID),
				zap.String("type", eventType))
			return errDropEvent
		}
		return err
	}
	return nil
}

// RefundPayment is the admin-facing refund operation. With no explicit
// amount the full captured amount is refunded.
func (s *PaymentService) RefundPayment(ctx context.Context, transactionID uint, requestedCents *int64, reason string, actor Actor) (*models.PaymentTransaction, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("only admins may refund payments directly")
	}

	txn, err := s.uow.Payments().GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("payment transaction")
		}
		return nil, err
	}

	amount := txn.AmountCents
	if requestedCents != nil {
		amount = *requestedCents
	}
	return s.Refund(ctx, transactionID, amount, reason, actor.Role)
}

// Refund issues a gateway refund and, only after the gateway succeeds,
// applies the bookkeeping and cancels the booking in one transaction. A
// gateway failure or timeout changes nothing locally; the retry reuses the
// persisted idempotency key, so an "unknown outcome" timeout can never
// double-refund.
func (s *PaymentService) Refund(ctx context.Context, transactionID uint, amountCents int64, reason, cancelledBy string) (*models.PaymentTransaction, error) {
	// claim the idempotency key under the row lock, before calling out:
	// concurrent refunds of the same transaction serialize here and end up
	// sending the gateway the same key, and a retried refund after a
	// timeout reuses it
	var txn *models.PaymentTransaction
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		t, err := st.Payments().GetByIDForUpdate(ctx, transactionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("payment transaction")
			}
			return err
		}

		if t.Status != models.PaymentStatusSucceeded {
			return conflictf("payment %d has status %s, only SUCCEEDED payments can be refunded", t.ID, t.Status)
		}
		if amountCents <= 0 {
			return validationf("refund amount must be positive")
		}
		if amountCents > t.AmountCents {
			return validationf("refund amount %d exceeds captured amount %d", amountCents, t.AmountCents)
		}

		if t.IdempotencyKey == "" {
			t.IdempotencyKey = utils.NewIdempotencyKey()
			if err := st.Payments().Update(ctx, t); err != nil {
				return err
			}
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.gateway.Refund(ctx, txn.ExternalIntentID, amountCents, txn.IdempotencyKey); err != nil {
		return nil, err
	}

	var (
		result  *models.PaymentTransaction
		booking *models.Booking
	)
	err = s.uow.WithinTx(ctx, func(st repository.Stores) error {
		t, err := st.Payments().GetByIntentIDForUpdate(ctx, txn.ExternalIntentID)
		if err != nil {
			return err
		}
		if t.Status != models.PaymentStatusSucceeded {
			// a concurrent refund won; ours already happened at the gateway
			// under the same idempotency key, so this is the same refund
			result = t
			return nil
		}

		status := RefundStatusFor(t, amountCents)
		if !t.CanTransition(status) {
			return conflictf("payment %d cannot move from %s to %s", t.ID, t.Status, status)
		}
		t.Status = status
		t.RefundAmountCents = amountCents
		t.RefundReason = reason
		if err := st.Payments().Update(ctx, t); err != nil {
			return err
		}

		b, err := st.Bookings().GetByIDForUpdate(ctx, t.BookingID)
		if err != nil {
			return err
		}
		if status == models.PaymentStatusRefunded {
			b.PaymentStatus = models.BookingPaymentRefunded
		} else {
			b.PaymentStatus = models.BookingPaymentPartial
		}
		if b.CanTransition(models.BookingStatusCancelled) {
			now := time.Now().UTC()
			b.Status = models.BookingStatusCancelled
			b.CancelledAt = &now
			b.CancelledBy = cancelledBy
		}
		if err := st.Bookings().Update(ctx, b); err != nil {
			return err
		}

		result = t
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if booking != nil && booking.Status == models.BookingStatusCancelled {
		s.notifier.BookingCancelled(ctx, booking, amountCents)
	}
	return result, nil
}
