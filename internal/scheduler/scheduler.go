// Package scheduler runs the expiry sweep on a fixed interval and on demand,
// never more than one pass at a time.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studentride/rideshare/backend/internal/domain"
)

var (
	// ErrSweepInProgress is returned by Trigger when a pass is already running,
	// here or, with a Locker, on another replica.
	ErrSweepInProgress = errors.New("sweep already in progress")

	// ErrAlreadyStarted is returned by a second Start before Stop.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// DefaultInterval is the firing interval when none is configured.
const DefaultInterval = time.Hour

type sweeper interface {
	Sweep(ctx context.Context) (domain.SweepResult, error)
}

// Locker is an optional cross-process lease taken around each pass.
// *lock.RedisLease satisfies it.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// SkipRecorder counts passes dropped because one was already running.
type SkipRecorder interface {
	SweepSkipped(reason string)
}

// Skip reasons reported to SkipRecorder.
const (
	SkipBusy  = "busy"
	SkipLease = "lease_held"
	SkipError = "lease_error"
)

// Scheduler owns the ticker and the single-flight flag for sweep passes.
type Scheduler struct {
	sweeper  sweeper
	interval time.Duration
	locker   Locker
	skips    SkipRecorder
	log      *slog.Logger

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker adds a distributed lease around every pass.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

// WithSkipRecorder reports skipped passes.
func WithSkipRecorder(r SkipRecorder) Option {
	return func(s *Scheduler) { s.skips = r }
}

// New constructs a stopped Scheduler. A non-positive interval falls back to
// DefaultInterval.
func New(sw sweeper, interval time.Duration, log *slog.Logger, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{sweeper: sw, interval: interval, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the ticker loop in the background. The loop exits when ctx
// is cancelled or Stop is called; either way the Scheduler can be started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	return nil
}

// Stop prevents further firings and waits for the loop to exit. A pass that
// is already running finishes first. Stop on a stopped Scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Trigger runs one pass now. It returns ErrSweepInProgress instead of waiting
// when a pass is already running.
func (s *Scheduler) Trigger(ctx context.Context) (domain.SweepResult, error) {
	return s.run(ctx, "manual")
}

// Running reports whether a pass is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.release(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// release forgets the loop that owns done so that Start works again after the
// parent context ends. A loop already detached by Stop is left alone.
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.cancel()
	s.cancel, s.done = nil, nil
}

func (s *Scheduler) tick(ctx context.Context) {
	// Stopping must not cut a pass short.
	if _, err := s.run(context.WithoutCancel(ctx), "timer"); err != nil && !errors.Is(err, ErrSweepInProgress) {
		s.log.Error("scheduled sweep failed", "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string) (domain.SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.skip(ctx, trigger, SkipBusy)
		return domain.SweepResult{}, ErrSweepInProgress
	}
	defer s.running.Store(false)

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx)
		if err != nil {
			s.log.WarnContext(ctx, "sweep lease unavailable", "trigger", trigger, "error", err)
			s.skip(ctx, trigger, SkipError)
			return domain.SweepResult{}, ErrSweepInProgress
		}
		if !ok {
			s.skip(ctx, trigger, SkipLease)
			return domain.SweepResult{}, ErrSweepInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.WarnContext(ctx, "sweep lease release failed", "error", err)
			}
		}()
	}

	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return domain.SweepResult{}, err
	}
	s.log.InfoContext(ctx, "sweep pass done", "trigger", trigger, "expired", res.Expired, "completed", res.Completed)
	return res, nil
}

func (s *Scheduler) skip(ctx context.Context, trigger, reason string) {
	s.log.InfoContext(ctx, "sweep skipped", "trigger", trigger, "reason", reason)
	if s.skips != nil {
		s.skips.SweepSkipped(reason)
	}
}
