package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
)

// CastVoteInput is a voter's decision on a request.
type CastVoteInput struct {
	VoterID   uuid.UUID
	RequestID uuid.UUID
	Decision  domain.VoteDecision
	Note      string
}

// VoteService records votes and keeps request occupancy in step with them.
// The vote write and the occupancy recompute share one transaction holding
// the request's row lock, so concurrent accepts cannot overshoot capacity.
type VoteService struct {
	store         repo.Store
	reads         repo.Repos
	engine        *OccupancyEngine
	allowSelfVote bool
	obs           Observer
	log           *slog.Logger
}

// NewVoteService constructs a VoteService. reads serves the non-transactional
// queries; store runs every write.
func NewVoteService(store repo.Store, reads repo.Repos, engine *OccupancyEngine, allowSelfVote bool, obs Observer, log *slog.Logger) *VoteService {
	return &VoteService{
		store:         store,
		reads:         reads,
		engine:        engine,
		allowSelfVote: allowSelfVote,
		obs:           observerOrNoop(obs),
		log:           log,
	}
}

// CastVote creates the voter's vote on a request or replaces their earlier
// decision and note. Returns domain.ErrValidation for bad input,
// domain.ErrNotFound if the request is gone, and domain.ErrInvalidState if
// the request is not active or an accept would exceed its capacity.
func (s *VoteService) CastVote(ctx context.Context, in CastVoteInput) (domain.VoteResult, error) {
	if err := validateVote(in); err != nil {
		return domain.VoteResult{}, err
	}

	res, err := s.cast(ctx, in, false)
	if errors.Is(err, domain.ErrConstraintViolation) {
		// Another writer inserted the same (voter, request) key between our
		// lookup and insert. Retry once as an upsert.
		s.log.WarnContext(ctx, "duplicate vote key, retrying as upsert",
			"request_id", in.RequestID, "voter_id", in.VoterID)
		res, err = s.cast(ctx, in, true)
	}
	if err != nil {
		return domain.VoteResult{}, fmt.Errorf("service.VoteService.CastVote: %w", err)
	}

	s.obs.VoteCast(in.Decision)
	s.log.InfoContext(ctx, "vote cast",
		"request_id", in.RequestID,
		"voter_id", in.VoterID,
		"decision", in.Decision,
		"occupancy", res.Request.CurrentOccupancy,
		"status", res.Request.Status,
	)
	return res, nil
}

func (s *VoteService) cast(ctx context.Context, in CastVoteInput, upsert bool) (domain.VoteResult, error) {
	var res domain.VoteResult
	err := s.store.InTx(ctx, func(repos repo.Repos) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, in.RequestID)
		if err != nil {
			return err
		}

		existing, err := repos.Votes.Get(ctx, in.VoterID, in.RequestID)
		hasVote := err == nil
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		// Re-sending an unchanged vote succeeds even after the request left
		// active, e.g. the retry of the accept that completed it.
		if req.Status != domain.StatusActive && hasVote &&
			existing.Decision == in.Decision && existing.Note == in.Note {
			res = domain.VoteResult{Vote: existing, Request: req}
			return nil
		}

		if req.Status != domain.StatusActive {
			return fmt.Errorf("%w: request is %s", domain.ErrInvalidState, req.Status)
		}
		if !s.allowSelfVote && req.OwnerID == in.VoterID {
			return fmt.Errorf("%w: cannot vote on your own request", domain.ErrValidation)
		}

		if in.Decision == domain.VoteAccepted && !(hasVote && existing.Decision == domain.VoteAccepted) {
			accepted, err := repos.Votes.CountForRequest(ctx, req.ID, domain.VoteAccepted)
			if err != nil {
				return err
			}
			if accepted >= req.MaxPersons {
				return fmt.Errorf("%w: request is full", domain.ErrInvalidState)
			}
		}

		v := domain.Vote{
			VoterID:   in.VoterID,
			RequestID: in.RequestID,
			Decision:  in.Decision,
			Note:      in.Note,
		}
		if hasVote || upsert {
			v, err = repos.Votes.UpsertDecision(ctx, v)
		} else {
			v, err = repos.Votes.Create(ctx, v)
		}
		if err != nil {
			return err
		}

		updated, err := s.engine.apply(ctx, repos, req)
		if err != nil {
			return err
		}
		res = domain.VoteResult{Vote: v, Request: updated}
		return nil
	})
	return res, err
}

// WithdrawVote deletes the voter's vote on a request, if any, and recomputes
// the request. A missing vote is not an error. Returns domain.ErrNotFound if
// the request itself does not exist.
func (s *VoteService) WithdrawVote(ctx context.Context, voterID, requestID uuid.UUID) (domain.VoteResult, error) {
	var (
		res     domain.VoteResult
		removed bool
	)
	err := s.store.InTx(ctx, func(repos repo.Repos) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		switch err := repos.Votes.Delete(ctx, voterID, requestID); {
		case err == nil:
			removed = true
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		updated, err := s.engine.apply(ctx, repos, req)
		if err != nil {
			return err
		}
		res = domain.VoteResult{Request: updated}
		return nil
	})
	if err != nil {
		return domain.VoteResult{}, fmt.Errorf("service.VoteService.WithdrawVote: %w", err)
	}

	if removed {
		s.obs.VoteWithdrawn()
		s.log.InfoContext(ctx, "vote withdrawn",
			"request_id", requestID,
			"voter_id", voterID,
			"occupancy", res.Request.CurrentOccupancy,
			"status", res.Request.Status,
		)
	}
	return res, nil
}

// ListForRequest returns every vote on a request. Only the request owner may
// see them; anyone else gets domain.ErrForbidden.
func (s *VoteService) ListForRequest(ctx context.Context, requestID, caller uuid.UUID) ([]domain.Vote, error) {
	req, err := s.reads.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("service.VoteService.ListForRequest: %w", err)
	}
	if req.OwnerID != caller {
		return nil, fmt.Errorf("service.VoteService.ListForRequest: %w", domain.ErrForbidden)
	}

	votes, err := s.reads.Votes.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("service.VoteService.ListForRequest: %w", err)
	}
	return votes, nil
}

// ListByVoter returns the caller's own votes, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *VoteService) ListByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error) {
	votes, err := s.reads.Votes.ListByVoter(ctx, voterID)
	if err != nil {
		return nil, fmt.Errorf("service.VoteService.ListByVoter: %w", err)
	}
	if votes == nil {
		return []domain.Vote{}, nil
	}
	return votes, nil
}

// validateVote rejects bad input before any write.
func validateVote(in CastVoteInput) error {
	if !in.Decision.Valid() {
		return fmt.Errorf("%w: status must be either accepted or rejected", domain.ErrValidation)
	}
	if utf8.RuneCountInString(in.Note) > domain.MaxNoteLength {
		return fmt.Errorf("%w: note must be at most %d characters", domain.ErrValidation, domain.MaxNoteLength)
	}
	return nil
}
