package services

import (
	"time"

	"stayhub-backend/config"
	"stayhub-backend/models"
)

// ComputeRefund is the pure cancellation refund policy:
//
//   - cancelling at least the cutoff (default 24h) before check-in refunds
//     the full captured amount
//   - later non-admin cancellations refund the configured late percentage
//   - admins may request an explicit amount, bounded by the captured amount
//
// The result never exceeds what was captured. `now` is read once by the
// caller so check and decision use the same clock value.
func ComputeRefund(booking *models.Booking, txn *models.PaymentTransaction, now time.Time, actor Actor, requestedCents *int64, policy config.RefundPolicy) (int64, error) {
	captured := txn.AmountCents

	if actor.IsAdmin() && requestedCents != nil {
		amount := *requestedCents
		if amount <= 0 {
			return 0, validationf("refund amount must be positive")
		}
		if amount > captured {
			return 0, validationf("refund amount %d exceeds captured amount %d", amount, captured)
		}
		return amount, nil
	}
	if requestedCents != nil {
		return 0, forbidden("only admins may set an explicit refund amount")
	}

	cutoff := booking.CheckIn.Add(-policy.CancellationCutoff)
	if !now.After(cutoff) {
		return captured, nil
	}

	// late cancellation: policy percentage, floored
	return captured * int64(policy.LatePercent) / 100, nil
}

// RefundStatusFor returns the transaction status a refund amount results in.
func RefundStatusFor(txn *models.PaymentTransaction, refundCents int64) string {
	if refundCents >= txn.AmountCents {
		return models.PaymentStatusRefunded
	}
	return models.PaymentStatusPartialRefund
}
