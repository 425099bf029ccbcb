package services

import (
	"strings"

	"github.com/google/uuid"
)

// Human-readable references carry a type prefix and a short random tail.
// Uniqueness is enforced by the database; a rare collision fails the insert.

func NewBookingReference() string {
	return "BK-" + shortID()
}

func NewTransactionReference() string {
	return "TX-" + shortID()
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
