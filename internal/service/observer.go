// Package service contains the business logic for the rideshare API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"time"

	"github.com/studentride/rideshare/backend/internal/domain"
)

// Observer receives counters about votes and sweeps.
// internal/metrics provides the Prometheus implementation.
type Observer interface {
	VoteCast(decision domain.VoteDecision)
	VoteWithdrawn()
	SweepFinished(res domain.SweepResult, took time.Duration)
	SweepFailed()
}

type noopObserver struct{}

func (noopObserver) VoteCast(domain.VoteDecision) {}
func (noopObserver) VoteWithdrawn() {}
func (noopObserver) SweepFinished(domain.SweepResult, time.Duration) {}
func (noopObserver) SweepFailed() {}

func observerOrNoop(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}
