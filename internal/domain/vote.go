package domain

import (
	"time"

	"github.com/google/uuid"
)

// VoteDecision is a voter's answer to a request.
type VoteDecision string

const (
	VoteAccepted VoteDecision = "accepted"
	VoteRejected VoteDecision = "rejected"
)

// Valid reports whether d is accepted or rejected.
func (d VoteDecision) Valid() bool {
	return d == VoteAccepted || d == VoteRejected
}

// MaxNoteLength is the maximum number of characters in a vote note.
const MaxNoteLength = 500

// Vote is one user's decision on one request.
// At most one vote exists per (VoterID, RequestID).
type Vote struct {
	ID        uuid.UUID
	VoterID   uuid.UUID
	RequestID uuid.UUID
	Decision  VoteDecision
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoteResult is what castVote and withdrawVote hand back: the vote that was
// written (zero for a withdrawal) and the request after recompute.
type VoteResult struct {
	Vote    Vote
	Request Request
}
