package services

import (
	"context"
	"encoding/json"

	"stayhub-backend/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// TopicNotifications carries outbound guest notifications. The transactional
// path publishes after commit and never waits on delivery; the consumer is
// the seam where the real email collaborator plugs in.
const TopicNotifications = "notifications"

const (
	NotifyBookingConfirmed = "booking.confirmed"
	NotifyPaymentReceipt   = "payment.receipt"
	NotifyBookingCancelled = "booking.cancelled"
)

// NotificationEvent is the wire shape on the notifications topic.
type NotificationEvent struct {
	Type          string `json:"type"`
	BookingID     uint   `json:"booking_id"`
	ReferenceCode string `json:"reference_code"`
	CustomerID    uint   `json:"customer_id"`
	AmountCents   int64  `json:"amount_cents,omitempty"`
	RefundCents   int64  `json:"refund_cents,omitempty"`
}

// Notifier is the narrow interface the booking and payment services depend
// on. Failures are logged, never propagated: notifications must not roll
// back transactional state.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *models.Booking)
	PaymentReceipt(ctx context.Context, booking *models.Booking, amountCents int64)
	BookingCancelled(ctx context.Context, booking *models.Booking, refundCents int64)
}

// EventNotifier publishes notification events to a watermill topic.
type EventNotifier struct {
	pub message.Publisher
	log *zap.Logger
}

func NewEventNotifier(pub message.Publisher, log *zap.Logger) *EventNotifier {
	return &EventNotifier{pub: pub, log: log}
}

func (n *EventNotifier) publish(event NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Error("failed to encode notification", zap.Error(err))
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.pub.Publish(TopicNotifications, msg); err != nil {
		// delivery failure is observable here, transactional state is already
		// committed and stays committed
		n.log.Error("failed to publish notification",
			zap.String("type", event.Type),
			zap.Uint("booking_id", event.BookingID),
			zap.Error(err))
	}
}

func (n *EventNotifier) BookingConfirmed(ctx context.Context, booking *models.Booking) {
	n.publish(NotificationEvent{
		Type:          NotifyBookingConfirmed,
		BookingID:     booking.ID,
		ReferenceCode: booking.ReferenceCode,
		CustomerID:    booking.CustomerID,
		AmountCents:   booking.PayableAmount(),
	})
}

func (n *EventNotifier) PaymentReceipt(ctx context.Context, booking *models.Booking, amountCents int64) {
	n.publish(NotificationEvent{
		Type:          NotifyPaymentReceipt,
		BookingID:     booking.ID,
		ReferenceCode: booking.ReferenceCode,
		CustomerID:    booking.CustomerID,
		AmountCents:   amountCents,
	})
}

func (n *EventNotifier) BookingCancelled(ctx context.Context, booking *models.Booking, refundCents int64) {
	n.publish(NotificationEvent{
		Type:          NotifyBookingCancelled,
		BookingID:     booking.ID,
		ReferenceCode: booking.ReferenceCode,
		CustomerID:    booking.CustomerID,
		RefundCents:   refundCents,
	})
}

// RunNotificationConsumer drains the notifications topic until ctx is done.
// This is where the email dispatcher would hook in; for now deliveries are
// logged so failures are visible independent of the transactional path.
func RunNotificationConsumer(ctx context.Context, sub message.Subscriber, log *zap.Logger) error {
	messages, err := sub.Subscribe(ctx, TopicNotifications)
	if err != nil {
		return err
	}
	for msg := range messages {
		var event NotificationEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			log.Error("invalid notification payload", zap.Error(err))
			msg.Ack()
			continue
		}
		log.Info("notification dispatched",
			zap.String("type", event.Type),
			zap.Uint("booking_id", event.BookingID),
			zap.String("reference_code", event.ReferenceCode))
		msg.Ack()
	}
	return nil
}
