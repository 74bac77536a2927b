package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
)

// DefaultExpiryWindow is the request age after which an active request expires.
const DefaultExpiryWindow = 24 * time.Hour

// SweepService reconciles request status against the clock and occupancy.
// Each pass is two set-based updates, each atomic on its own: stale requests
// expire first, then full ones complete. A request that is both full and
// stale ends up expired.
type SweepService struct {
	requests repo.RequestRepo
	window   time.Duration
	now      func() time.Time
	obs      Observer
	log      *slog.Logger
}

// NewSweepService constructs a SweepService. A non-positive window falls back
// to DefaultExpiryWindow.
func NewSweepService(requests repo.RequestRepo, window time.Duration, obs Observer, log *slog.Logger) *SweepService {
	if window <= 0 {
		window = DefaultExpiryWindow
	}
	return &SweepService{
		requests: requests,
		window:   window,
		now:      time.Now,
		obs:      observerOrNoop(obs),
		log:      log,
	}
}

// WithClock overrides the time source. Tests use it to pin "now".
func (s *SweepService) WithClock(now func() time.Time) *SweepService {
	s.now = now
	return s
}

// Sweep runs one pass and reports how many requests moved.
// Running it twice in a row is harmless: the second pass matches nothing new.
func (s *SweepService) Sweep(ctx context.Context) (domain.SweepResult, error) {
	start := time.Now()
	now := s.now().UTC()
	cutoff := now.Add(-s.window)
	dayStart := dateOnly(now)

	var res domain.SweepResult

	expired, err := s.requests.BatchUpdateStatus(ctx, domain.StatusPredicate{
		From:          domain.StatusActive,
		StaleBefore:   &dayStart,
		CreatedBefore: &cutoff,
	}, domain.StatusExpired)
	if err != nil {
		s.obs.SweepFailed()
		return res, fmt.Errorf("service.SweepService.Sweep: expire: %w", err)
	}
	res.Expired = expired

	completed, err := s.requests.BatchUpdateStatus(ctx, domain.StatusPredicate{
		From: domain.StatusActive,
		Full: true,
	}, domain.StatusCompleted)
	if err != nil {
		s.obs.SweepFailed()
		return res, fmt.Errorf("service.SweepService.Sweep: complete: %w", err)
	}
	res.Completed = completed

	took := time.Since(start)
	s.obs.SweepFinished(res, took)
	s.log.InfoContext(ctx, "sweep finished",
		"expired", res.Expired,
		"completed", res.Completed,
		"duration_ms", took.Milliseconds(),
	)
	return res, nil
}
