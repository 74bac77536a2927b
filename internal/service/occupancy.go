package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
)

// OccupancyEngine derives a request's occupancy from its accepted votes and
// moves it between active and completed. Cancelled and expired requests get
// their counter refreshed but keep their status.
type OccupancyEngine struct {
	store  repo.Store
	reopen bool
}

// NewOccupancyEngine constructs an engine. reopen selects whether a completed
// request goes back to active when a seat frees up.
func NewOccupancyEngine(store repo.Store, reopen bool) *OccupancyEngine {
	return &OccupancyEngine{store: store, reopen: reopen}
}

// Recompute locks the request and reconciles it in its own transaction.
// Returns domain.ErrNotFound if the request does not exist.
func (e *OccupancyEngine) Recompute(ctx context.Context, id uuid.UUID) (domain.Request, error) {
	var result domain.Request
	err := e.store.InTx(ctx, func(repos repo.Repos) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		result, err = e.apply(ctx, repos, req)
		return err
	})
	if err != nil {
		return domain.Request{}, fmt.Errorf("service.OccupancyEngine.Recompute: %w", err)
	}
	return result, nil
}

// apply runs inside the caller's transaction; req must already be row-locked.
func (e *OccupancyEngine) apply(ctx context.Context, repos repo.Repos, req domain.Request) (domain.Request, error) {
	accepted, err := repos.Votes.CountForRequest(ctx, req.ID, domain.VoteAccepted)
	if err != nil {
		return domain.Request{}, err
	}

	status := req.Reconcile(accepted, e.reopen)
	if accepted == req.CurrentOccupancy && status == req.Status {
		return req, nil
	}
	return repos.Requests.UpdateStatusAndOccupancy(ctx, req.ID, accepted, status)
}
