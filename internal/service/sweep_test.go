package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
	"github.com/studentride/rideshare/backend/internal/service"
)

func newSweep(h *harness, window time.Duration) *service.SweepService {
	return service.NewSweepService(h.db.Repos().Requests, window, h.obs, discard).
		WithClock(func() time.Time { return fixedNow })
}

func TestSweepService_ExpiresPastTravelDate(t *testing.T) {
	h := newHarness()
	req := h.activeRequest(3)
	req.TravelDate = fixedNow.AddDate(0, 0, -1).Truncate(24 * time.Hour)
	h.db.put(req)

	res, err := newSweep(h, 0).Sweep(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Expired, int64(1))
	assert.Equal(t, domain.StatusExpired, h.db.request(req.ID).Status)
}

func TestSweepService_ExpiresOldRequests(t *testing.T) {
	h := newHarness()
	old := h.activeRequest(3)
	old.CreatedAt = fixedNow.Add(-25 * time.Hour)
	h.db.put(old)
	fresh := h.activeRequest(3)
	fresh.CreatedAt = fixedNow.Add(-23 * time.Hour)
	h.db.put(fresh)

	res, err := newSweep(h, 24*time.Hour).Sweep(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Expired)
	assert.Equal(t, domain.StatusExpired, h.db.request(old.ID).Status)
	assert.Equal(t, domain.StatusActive, h.db.request(fresh.ID).Status)
}

func TestSweepService_TodayIsNotStale(t *testing.T) {
	h := newHarness()
	req := h.activeRequest(3)
	req.TravelDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	h.db.put(req)

	res, err := newSweep(h, 0).Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Equal(t, domain.StatusActive, h.db.request(req.ID).Status)
}

func TestSweepService_CompletesFullRequests(t *testing.T) {
	h := newHarness()
	req := h.activeRequest(2)
	req.CurrentOccupancy = 2
	h.db.put(req)

	res, err := newSweep(h, 0).Sweep(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Completed)
	got := h.db.request(req.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.CurrentOccupancy)
}

func TestSweepService_ExpiryWinsOverCompletion(t *testing.T) {
	h := newHarness()
	req := h.activeRequest(2)
	req.CurrentOccupancy = 2
	req.TravelDate = fixedNow.AddDate(0, 0, -2).Truncate(24 * time.Hour)
	h.db.put(req)

	res, err := newSweep(h, 0).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SweepResult{Expired: 1, Completed: 0}, res)
	assert.Equal(t, domain.StatusExpired, h.db.request(req.ID).Status)
}

func TestSweepService_Idempotent(t *testing.T) {
	h := newHarness()
	stale := h.activeRequest(3)
	stale.TravelDate = fixedNow.AddDate(0, 0, -1).Truncate(24 * time.Hour)
	h.db.put(stale)
	full := h.activeRequest(1)
	full.CurrentOccupancy = 1
	h.db.put(full)
	sweep := newSweep(h, 0)

	first, err := sweep.Sweep(context.Background())
	require.NoError(t, err)
	second, err := sweep.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SweepResult{Expired: 1, Completed: 1}, first)
	assert.Equal(t, domain.SweepResult{}, second)
	assert.Len(t, h.obs.sweeps, 2)
}

func TestSweepService_LeavesCancelledAlone(t *testing.T) {
	h := newHarness()
	req := h.activeRequest(1)
	req.Status = domain.StatusCancelled
	req.CurrentOccupancy = 1
	req.TravelDate = fixedNow.AddDate(0, 0, -3).Truncate(24 * time.Hour)
	req.CreatedAt = fixedNow.AddDate(0, 0, -5)
	h.db.put(req)

	res, err := newSweep(h, 0).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SweepResult{}, res)
	assert.Equal(t, domain.StatusCancelled, h.db.request(req.ID).Status)
}

// batchRequests records the predicates passed to BatchUpdateStatus.
type batchRequests struct {
	repo.RequestRepo
	batch func(pred domain.StatusPredicate, to domain.RequestStatus) (int64, error)
}

func (b batchRequests) BatchUpdateStatus(_ context.Context, pred domain.StatusPredicate, to domain.RequestStatus) (int64, error) {
	return b.batch(pred, to)
}

func TestSweepService_Predicates(t *testing.T) {
	var calls []domain.StatusPredicate
	var targets []domain.RequestStatus
	requests := batchRequests{batch: func(pred domain.StatusPredicate, to domain.RequestStatus) (int64, error) {
		calls = append(calls, pred)
		targets = append(targets, to)
		return 0, nil
	}}
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.FixedZone("CET", 3600))
	sweep := service.NewSweepService(requests, 6*time.Hour, nil, discard).
		WithClock(func() time.Time { return now })

	_, err := sweep.Sweep(context.Background())
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, []domain.RequestStatus{domain.StatusExpired, domain.StatusCompleted}, targets, "expire runs first")

	expire := calls[0]
	assert.Equal(t, domain.StatusActive, expire.From)
	require.NotNil(t, expire.StaleBefore)
	require.NotNil(t, expire.CreatedBefore)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *expire.StaleBefore)
	assert.True(t, expire.CreatedBefore.Equal(now.Add(-6*time.Hour)))
	assert.False(t, expire.Full)

	complete := calls[1]
	assert.Equal(t, domain.StatusActive, complete.From)
	assert.True(t, complete.Full)
	assert.Nil(t, complete.StaleBefore)
}

func TestSweepService_StoreFailure(t *testing.T) {
	h := newHarness()
	boom := errors.New("connection refused")
	requests := batchRequests{batch: func(domain.StatusPredicate, domain.RequestStatus) (int64, error) {
		return 0, boom
	}}
	sweep := service.NewSweepService(requests, 0, h.obs, discard)

	_, err := sweep.Sweep(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, h.obs.failed)
	assert.Empty(t, h.obs.sweeps)
}

// Occupancy and sweep together: two accepts on a two-seat request complete it.
func TestSweepService_AfterVotes(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	req := h.activeRequest(2)
	for range 2 {
		_, err := h.votes.CastVote(ctx, accept(uuid.New(), req.ID))
		require.NoError(t, err)
	}

	_, err := newSweep(h, 0).Sweep(ctx)
	require.NoError(t, err)

	got := h.db.request(req.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.CurrentOccupancy)
	assert.Equal(t, got.CurrentOccupancy, h.db.acceptedVotes(req.ID))
}
