package utils

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewBookingReference returns a short human-readable booking reference,
// e.g. "BK-5F3A9C21". Uniqueness is enforced by the database index; callers
// retry on collision.
func NewBookingReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BK-" + id[:8]
}

// NewIdempotencyKey returns a key for gateway calls that must collapse
// retries into one operation.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

func UintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
