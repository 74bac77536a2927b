package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
)

// UserService manages the local profile mirror of identity-provider accounts.
type UserService struct {
	store  repo.Store
	reads  repo.Repos
	engine *OccupancyEngine
	log    *slog.Logger
}

// NewUserService constructs a UserService.
func NewUserService(store repo.Store, reads repo.Repos, engine *OccupancyEngine, log *slog.Logger) *UserService {
	return &UserService{store: store, reads: reads, engine: engine, log: log}
}

// Profile returns the caller's profile.
// Returns domain.ErrNotFound if the caller never saved one.
func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, err := s.reads.Users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Profile: %w", err)
	}
	return u, nil
}

// UpsertProfile validates and saves the caller's profile.
func (s *UserService) UpsertProfile(ctx context.Context, u domain.User) (domain.User, error) {
	u, err := validateProfile(u)
	if err != nil {
		return domain.User{}, err
	}
	result, err := s.reads.Users.Upsert(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.UpsertProfile: %w", err)
	}
	return result, nil
}

// DeleteAccount removes a user in one transaction. Their active requests are
// cancelled, their votes are deleted, and every request that lost an accepted
// vote is recomputed so its occupancy still matches its votes. Owned requests
// stay behind as history.
//
// Every request the deletion touches is row-locked up front in ascending id
// order, the same order DeleteByVoter reports, so two concurrent deletions
// cannot deadlock on each other's requests.
func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID) (domain.AccountDeletion, error) {
	var out domain.AccountDeletion
	err := s.store.InTx(ctx, func(repos repo.Repos) error {
		touched, err := touchedRequests(ctx, repos, id)
		if err != nil {
			return err
		}
		for _, reqID := range touched {
			if _, err := repos.Requests.GetByIDForUpdate(ctx, reqID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		cancelled, err := repos.Requests.CancelActiveByOwner(ctx, id)
		if err != nil {
			return err
		}
		out.CancelledRequests = cancelled

		deleted, affected, err := repos.Votes.DeleteByVoter(ctx, id)
		if err != nil {
			return err
		}
		out.DeletedVotes = deleted

		for _, reqID := range affected {
			req, err := repos.Requests.GetByIDForUpdate(ctx, reqID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if _, err := s.engine.apply(ctx, repos, req); err != nil {
				return err
			}
			out.RecomputedIDs = append(out.RecomputedIDs, reqID)
		}

		if err := repos.Users.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return domain.AccountDeletion{}, fmt.Errorf("service.UserService.DeleteAccount: %w", err)
	}

	s.log.InfoContext(ctx, "account deleted",
		"user_id", id,
		"cancelled_requests", out.CancelledRequests,
		"deleted_votes", out.DeletedVotes,
		"recomputed_requests", len(out.RecomputedIDs),
	)
	return out, nil
}

// touchedRequests returns, sorted by id, the user's active requests and the
// requests holding one of their accepted votes.
func touchedRequests(ctx context.Context, repos repo.Repos, user uuid.UUID) ([]uuid.UUID, error) {
	owned, err := repos.Requests.ListByOwner(ctx, user)
	if err != nil {
		return nil, err
	}
	votes, err := repos.Votes.ListByVoter(ctx, user)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, r := range owned {
		if r.Status == domain.StatusActive {
			ids = append(ids, r.ID)
		}
	}
	for _, v := range votes {
		if v.Decision == domain.VoteAccepted {
			ids = append(ids, v.RequestID)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(ids), nil
}
