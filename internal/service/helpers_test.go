package service_test

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/service"
)

var discard = slog.New(slog.DiscardHandler)

// fixedNow is the pinned clock used across service tests.
var fixedNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func tomorrow() time.Time { return time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC) }

// harness wires every service to one memDB.
type harness struct {
	db       *memDB
	obs      *recordingObserver
	engine   *service.OccupancyEngine
	votes    *service.VoteService
	requests *service.RequestService
	users    *service.UserService
	stats    *service.StatsService
}

type harnessOpts struct {
	allowSelfVote bool
	noReopen      bool
}

func newHarness(opts ...harnessOpts) *harness {
	var o harnessOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	db := newMemDB()
	reads := db.Repos()
	obs := &recordingObserver{}
	engine := service.NewOccupancyEngine(db, !o.noReopen)
	return &harness{
		db:       db,
		obs:      obs,
		engine:   engine,
		votes:    service.NewVoteService(db, reads, engine, o.allowSelfVote, obs, discard),
		requests: service.NewRequestService(db, reads, engine, discard).WithClock(func() time.Time { return fixedNow }),
		users:    service.NewUserService(db, reads, engine, discard),
		stats:    service.NewStatsService(reads.Requests, reads.Votes),
	}
}

// activeRequest stores an active request with the given capacity.
func (h *harness) activeRequest(capacity int) domain.Request {
	return h.db.put(domain.Request{
		OwnerID:     uuid.New(),
		Origin:      "North Campus",
		Destination: "Central Station",
		TravelDate:  tomorrow(),
		TravelTime:  "08:30",
		CarType:     domain.CarAny,
		MaxPersons:  capacity,
		Status:      domain.StatusActive,
		CreatedAt:   fixedNow,
	})
}

// recordingObserver counts the events a service reports.
type recordingObserver struct {
	mu        sync.Mutex
	cast      map[domain.VoteDecision]int
	withdrawn int
	sweeps    []domain.SweepResult
	failed    int
}

func (r *recordingObserver) VoteCast(d domain.VoteDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cast == nil {
		r.cast = map[domain.VoteDecision]int{}
	}
	r.cast[d]++
}

func (r *recordingObserver) VoteWithdrawn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawn++
}

func (r *recordingObserver) SweepFinished(res domain.SweepResult, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, res)
}

func (r *recordingObserver) SweepFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}
