package services

import (
	"context"
	"time"

	"stayhub-backend/repository"
)

// AvailabilityGuard answers the one question the booking state machine must
// get right under concurrency: is the room free for [checkIn, checkOut)?
//
// The check runs inside the caller's unit of work while the room row is
// locked, so check-then-insert is atomic and two concurrent overlapping
// requests serialize into exactly one success.
type AvailabilityGuard struct{}

func NewAvailabilityGuard() *AvailabilityGuard {
	return &AvailabilityGuard{}
}

// EnsureAvailable returns a ConflictError when any room-occupying booking
// intersects the requested half-open range. Back-to-back bookings are legal:
// the checkout day is not occupied.
func (g *AvailabilityGuard) EnsureAvailable(ctx context.Context, st repository.Stores, roomID uint, checkIn, checkOut time.Time) error {
	overlap, err := st.Bookings().HasOverlap(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return err
	}
	if overlap {
		return conflictf("room %d is not available for %s to %s",
			roomID, checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"))
	}
	return nil
}
