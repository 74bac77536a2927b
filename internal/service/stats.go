package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
)

// StatsService serves the read-only rollups behind the admin and profile screens.
type StatsService struct {
	requests repo.RequestRepo
	votes    repo.VoteRepo
}

// NewStatsService constructs a StatsService.
func NewStatsService(requests repo.RequestRepo, votes repo.VoteRepo) *StatsService {
	return &StatsService{requests: requests, votes: votes}
}

// CleanupStats returns the number of requests in each status. Every status
// is present, zero if no request is in it.
func (s *StatsService) CleanupStats(ctx context.Context) (domain.StatusCounts, error) {
	counts, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.StatsService.CleanupStats: %w", err)
	}
	return fill(counts), nil
}

// UserStats returns the caller's request and vote rollup. The two grouped
// queries run concurrently.
func (s *StatsService) UserStats(ctx context.Context, user uuid.UUID) (domain.UserStats, error) {
	var (
		reqCounts  domain.StatusCounts
		voteCounts map[domain.VoteDecision]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reqCounts, err = s.requests.CountByOwnerStatus(gctx, user)
		return err
	})
	g.Go(func() error {
		var err error
		voteCounts, err = s.votes.CountByVoterDecision(gctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.UserStats{}, fmt.Errorf("service.StatsService.UserStats: %w", err)
	}

	reqCounts = fill(reqCounts)
	var out domain.UserStats
	out.Requests.Total = reqCounts.Total()
	out.Requests.Active = reqCounts[domain.StatusActive]
	out.Requests.Completed = reqCounts[domain.StatusCompleted]
	out.Votes.Accepted = voteCounts[domain.VoteAccepted]
	out.Votes.Rejected = voteCounts[domain.VoteRejected]
	out.Votes.Total = out.Votes.Accepted + out.Votes.Rejected
	return out, nil
}

func fill(c domain.StatusCounts) domain.StatusCounts {
	out := domain.NewStatusCounts()
	for k, v := range c {
		out[k] = v
	}
	return out
}
