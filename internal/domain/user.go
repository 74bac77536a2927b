package domain

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors an account held by the external identity provider.
// ID is the subject of the bearer token.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountDeletion reports what a cascading account deletion touched.
type AccountDeletion struct {
	CancelledRequests int64
	DeletedVotes      int64
	RecomputedIDs     []uuid.UUID
}
