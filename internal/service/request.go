package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
)

// RequestService implements the owner-facing request operations.
// Writes that touch occupancy take the request's row lock so they serialize
// with concurrent votes.
type RequestService struct {
	store  repo.Store
	reads  repo.Repos
	engine *OccupancyEngine
	now    func() time.Time
	log    *slog.Logger
}

// NewRequestService constructs a RequestService.
func NewRequestService(store repo.Store, reads repo.Repos, engine *OccupancyEngine, log *slog.Logger) *RequestService {
	return &RequestService{
		store:  store,
		reads:  reads,
		engine: engine,
		now:    time.Now,
		log:    log,
	}
}

// WithClock overrides the time source used for "not in the past" checks.
func (s *RequestService) WithClock(now func() time.Time) *RequestService {
	s.now = now
	return s
}

// Create validates and persists a new active request with no occupants.
// Returns domain.ErrValidation if input violates business rules.
func (s *RequestService) Create(ctx context.Context, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error) {
	in, err := normalizeRequest(in, s.now())
	if err != nil {
		return domain.Request{}, err
	}

	result, err := s.reads.Requests.Create(ctx, domain.Request{
		OwnerID:     owner,
		Origin:      in.Origin,
		Destination: in.Destination,
		TravelDate:  in.TravelDate,
		TravelTime:  in.TravelTime,
		CarType:     in.CarType,
		MaxPersons:  in.MaxPersons,
		Status:      domain.StatusActive,
	})
	if err != nil {
		return domain.Request{}, fmt.Errorf("service.RequestService.Create: %w", err)
	}
	return result, nil
}

// Get returns a request. Votes are included only when caller owns it.
func (s *RequestService) Get(ctx context.Context, id, caller uuid.UUID) (domain.RequestDetails, error) {
	req, err := s.reads.Requests.GetByID(ctx, id)
	if err != nil {
		return domain.RequestDetails{}, fmt.Errorf("service.RequestService.Get: %w", err)
	}

	details := domain.RequestDetails{Request: req}
	if req.OwnerID == caller {
		votes, err := s.reads.Votes.ListByRequest(ctx, id)
		if err != nil {
			return domain.RequestDetails{}, fmt.Errorf("service.RequestService.Get: %w", err)
		}
		details.Votes = votes
	}
	return details, nil
}

// Search returns one page of requests matching f plus the total match count.
// An empty status filter means active.
func (s *RequestService) Search(ctx context.Context, f domain.RequestFilter, p domain.PaginationParams) ([]domain.Request, int64, error) {
	if f.Status == "" {
		f.Status = domain.StatusActive
	}
	if !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, f.Status)
	}
	if f.CarType != "" && !f.CarType.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown car type %q", domain.ErrValidation, f.CarType)
	}
	if f.MinSeats < 0 || f.MinSeats > domain.MaxPersons {
		return nil, 0, fmt.Errorf("%w: min seats must be between 0 and %d", domain.ErrValidation, domain.MaxPersons)
	}

	items, total, err := s.reads.Requests.Search(ctx, f, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.RequestService.Search: %w", err)
	}
	if items == nil {
		items = []domain.Request{}
	}
	return items, total, nil
}

// ListByOwner returns every request the owner has posted, newest first.
func (s *RequestService) ListByOwner(ctx context.Context, owner uuid.UUID) ([]domain.Request, error) {
	items, err := s.reads.Requests.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("service.RequestService.ListByOwner: %w", err)
	}
	if items == nil {
		return []domain.Request{}, nil
	}
	return items, nil
}

// Update replaces the editable fields of an active request the caller owns.
// Max persons may not drop below the current occupancy; lowering it to
// exactly the occupancy completes the request.
func (s *RequestService) Update(ctx context.Context, id, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error) {
	in, err := normalizeRequest(in, s.now())
	if err != nil {
		return domain.Request{}, err
	}

	var result domain.Request
	err = s.store.InTx(ctx, func(repos repo.Repos) error {
		req, err := lockOwned(ctx, repos, id, owner)
		if err != nil {
			return err
		}
		if req.Status != domain.StatusActive {
			return fmt.Errorf("%w: only active requests can be edited", domain.ErrInvalidState)
		}
		if in.MaxPersons < req.CurrentOccupancy {
			return fmt.Errorf("%w: max persons cannot be below current occupancy (%d)",
				domain.ErrValidation, req.CurrentOccupancy)
		}

		req.Origin = in.Origin
		req.Destination = in.Destination
		req.TravelDate = in.TravelDate
		req.TravelTime = in.TravelTime
		req.CarType = in.CarType
		req.MaxPersons = in.MaxPersons

		updated, err := repos.Requests.Update(ctx, req)
		if err != nil {
			return err
		}
		result, err = s.engine.apply(ctx, repos, updated)
		return err
	})
	if err != nil {
		return domain.Request{}, fmt.Errorf("service.RequestService.Update: %w", err)
	}
	return result, nil
}

// Cancel moves an active request the caller owns to cancelled.
func (s *RequestService) Cancel(ctx context.Context, id, owner uuid.UUID) (domain.Request, error) {
	var result domain.Request
	err := s.store.InTx(ctx, func(repos repo.Repos) error {
		req, err := lockOwned(ctx, repos, id, owner)
		if err != nil {
			return err
		}
		if req.Status != domain.StatusActive {
			return fmt.Errorf("%w: request is %s", domain.ErrInvalidState, req.Status)
		}
		result, err = repos.Requests.UpdateStatusAndOccupancy(ctx, id, req.CurrentOccupancy, domain.StatusCancelled)
		return err
	})
	if err != nil {
		return domain.Request{}, fmt.Errorf("service.RequestService.Cancel: %w", err)
	}

	s.log.InfoContext(ctx, "request cancelled", "request_id", id, "owner_id", owner)
	return result, nil
}

// Delete removes a request the caller owns together with its votes.
func (s *RequestService) Delete(ctx context.Context, id, owner uuid.UUID) error {
	var votes int64
	err := s.store.InTx(ctx, func(repos repo.Repos) error {
		if _, err := lockOwned(ctx, repos, id, owner); err != nil {
			return err
		}
		n, err := repos.Votes.DeleteByRequest(ctx, id)
		if err != nil {
			return err
		}
		votes = n
		return repos.Requests.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("service.RequestService.Delete: %w", err)
	}

	s.log.InfoContext(ctx, "request deleted", "request_id", id, "owner_id", owner, "votes_deleted", votes)
	return nil
}

// lockOwned row-locks a request and checks that owner posted it.
func lockOwned(ctx context.Context, repos repo.Repos, id, owner uuid.UUID) (domain.Request, error) {
	req, err := repos.Requests.GetByIDForUpdate(ctx, id)
	if err != nil {
		return domain.Request{}, err
	}
	if req.OwnerID != owner {
		return domain.Request{}, fmt.Errorf("%w: not the owner of this request", domain.ErrForbidden)
	}
	return req, nil
}
