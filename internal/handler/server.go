// Package handler implements the HTTP handlers for the rideshare API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, request.go, vote.go, ...) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/service"
)

// RequestServicer defines the request operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type RequestServicer interface {
	Create(ctx context.Context, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error)
	Get(ctx context.Context, id, caller uuid.UUID) (domain.RequestDetails, error)
	Search(ctx context.Context, f domain.RequestFilter, p domain.PaginationParams) ([]domain.Request, int64, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]domain.Request, error)
	Update(ctx context.Context, id, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error)
	Cancel(ctx context.Context, id, owner uuid.UUID) (domain.Request, error)
	Delete(ctx context.Context, id, owner uuid.UUID) error
}

// VoteServicer defines the vote operations the handlers depend on.
type VoteServicer interface {
	CastVote(ctx context.Context, in service.CastVoteInput) (domain.VoteResult, error)
	WithdrawVote(ctx context.Context, voterID, requestID uuid.UUID) (domain.VoteResult, error)
	ListForRequest(ctx context.Context, requestID, caller uuid.UUID) ([]domain.Vote, error)
	ListByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error)
}

// UserServicer defines the profile operations the handlers depend on.
type UserServicer interface {
	Profile(ctx context.Context, id uuid.UUID) (domain.User, error)
	UpsertProfile(ctx context.Context, u domain.User) (domain.User, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) (domain.AccountDeletion, error)
}

// StatsServicer defines the rollups the handlers depend on.
type StatsServicer interface {
	CleanupStats(ctx context.Context) (domain.StatusCounts, error)
	UserStats(ctx context.Context, user uuid.UUID) (domain.UserStats, error)
}

// SweepTrigger runs an on-demand sweep. *scheduler.Scheduler satisfies it.
type SweepTrigger interface {
	Trigger(ctx context.Context) (domain.SweepResult, error)
}

// Services groups the Server's dependencies. Nil fields are allowed in tests
// that only exercise part of the API.
type Services struct {
	Requests RequestServicer
	Votes    VoteServicer
	Users    UserServicer
	Stats    StatsServicer
	Sweeps   SweepTrigger
}

// Server holds every handler's dependencies.
type Server struct {
	requests RequestServicer
	votes    VoteServicer
	users    UserServicer
	stats    StatsServicer
	sweeps   SweepTrigger
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(svc Services, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		requests: svc.Requests,
		votes:    svc.Votes,
		users:    svc.Users,
		stats:    svc.Stats,
		sweeps:   svc.Sweeps,
		log:      log,
	}
}
