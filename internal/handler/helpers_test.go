package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/studentride/rideshare/backend/internal/auth"
	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/handler"
	"github.com/studentride/rideshare/backend/internal/service"
)

const testSecret = "handler-test-secret"

// ---- mocks -----------------------------------------------------------------
// Each mock is a set of function fields. Set only the ones your test needs;
// calling an unset one panics, which fails the test loudly.

type mockRequests struct {
	create      func(ctx context.Context, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error)
	get         func(ctx context.Context, id, caller uuid.UUID) (domain.RequestDetails, error)
	search      func(ctx context.Context, f domain.RequestFilter, p domain.PaginationParams) ([]domain.Request, int64, error)
	listByOwner func(ctx context.Context, owner uuid.UUID) ([]domain.Request, error)
	update      func(ctx context.Context, id, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error)
	cancel      func(ctx context.Context, id, owner uuid.UUID) (domain.Request, error)
	delete      func(ctx context.Context, id, owner uuid.UUID) error
}

func (m *mockRequests) Create(ctx context.Context, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error) {
	return m.create(ctx, owner, in)
}
func (m *mockRequests) Get(ctx context.Context, id, caller uuid.UUID) (domain.RequestDetails, error) {
	return m.get(ctx, id, caller)
}
func (m *mockRequests) Search(ctx context.Context, f domain.RequestFilter, p domain.PaginationParams) ([]domain.Request, int64, error) {
	return m.search(ctx, f, p)
}
func (m *mockRequests) ListByOwner(ctx context.Context, owner uuid.UUID) ([]domain.Request, error) {
	return m.listByOwner(ctx, owner)
}
func (m *mockRequests) Update(ctx context.Context, id, owner uuid.UUID, in domain.RequestUpdate) (domain.Request, error) {
	return m.update(ctx, id, owner, in)
}
func (m *mockRequests) Cancel(ctx context.Context, id, owner uuid.UUID) (domain.Request, error) {
	return m.cancel(ctx, id, owner)
}
func (m *mockRequests) Delete(ctx context.Context, id, owner uuid.UUID) error {
	return m.delete(ctx, id, owner)
}

type mockVotes struct {
	cast           func(ctx context.Context, in service.CastVoteInput) (domain.VoteResult, error)
	withdraw       func(ctx context.Context, voterID, requestID uuid.UUID) (domain.VoteResult, error)
	listForRequest func(ctx context.Context, requestID, caller uuid.UUID) ([]domain.Vote, error)
	listByVoter    func(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error)
}

func (m *mockVotes) CastVote(ctx context.Context, in service.CastVoteInput) (domain.VoteResult, error) {
	return m.cast(ctx, in)
}
func (m *mockVotes) WithdrawVote(ctx context.Context, voterID, requestID uuid.UUID) (domain.VoteResult, error) {
	return m.withdraw(ctx, voterID, requestID)
}
func (m *mockVotes) ListForRequest(ctx context.Context, requestID, caller uuid.UUID) ([]domain.Vote, error) {
	return m.listForRequest(ctx, requestID, caller)
}
func (m *mockVotes) ListByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error) {
	return m.listByVoter(ctx, voterID)
}

type mockUsers struct {
	profile       func(ctx context.Context, id uuid.UUID) (domain.User, error)
	upsertProfile func(ctx context.Context, u domain.User) (domain.User, error)
	deleteAccount func(ctx context.Context, id uuid.UUID) (domain.AccountDeletion, error)
}

func (m *mockUsers) Profile(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.profile(ctx, id)
}
func (m *mockUsers) UpsertProfile(ctx context.Context, u domain.User) (domain.User, error) {
	return m.upsertProfile(ctx, u)
}
func (m *mockUsers) DeleteAccount(ctx context.Context, id uuid.UUID) (domain.AccountDeletion, error) {
	return m.deleteAccount(ctx, id)
}

type mockStats struct {
	cleanup func(ctx context.Context) (domain.StatusCounts, error)
	user    func(ctx context.Context, user uuid.UUID) (domain.UserStats, error)
}

func (m *mockStats) CleanupStats(ctx context.Context) (domain.StatusCounts, error) {
	return m.cleanup(ctx)
}
func (m *mockStats) UserStats(ctx context.Context, user uuid.UUID) (domain.UserStats, error) {
	return m.user(ctx, user)
}

type mockSweeps struct {
	trigger func(ctx context.Context) (domain.SweepResult, error)
}

func (m *mockSweeps) Trigger(ctx context.Context) (domain.SweepResult, error) {
	return m.trigger(ctx)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.RequestServicer = (*mockRequests)(nil)
	_ handler.VoteServicer    = (*mockVotes)(nil)
	_ handler.UserServicer    = (*mockUsers)(nil)
	_ handler.StatsServicer   = (*mockStats)(nil)
	_ handler.SweepTrigger    = (*mockSweeps)(nil)
)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into the router behind
// the real JWT middleware. This mirrors how main.go wires it in production.
func newHTTPHandler(svc handler.Services) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := handler.NewServer(svc, log)
	return handler.Routes(srv, auth.Middleware(auth.NewVerifier(testSecret)))
}

// tokenFor signs a short-lived token for the given user.
func tokenFor(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	tok, err := auth.NewVerifier(testSecret).Sign(auth.Identity{
		UserID: id,
		Role:   role,
		Email:  "rider@example.edu",
	}, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends one request as user (uuid.Nil means anonymous) and returns the recorder.
func do(t *testing.T, h http.Handler, method, target string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doRole(t, h, method, target, user, "", body)
}

func doRole(t *testing.T, h http.Handler, method, target string, user uuid.UUID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, target, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, user, role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error.Code
}

func requestFixture(owner uuid.UUID) domain.Request {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return domain.Request{
		ID:               uuid.New(),
		OwnerID:          owner,
		Origin:           "Campus North",
		Destination:      "Central Station",
		TravelDate:       time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		TravelTime:       "08:30",
		CarType:          domain.CarSedan,
		MaxPersons:       3,
		CurrentOccupancy: 1,
		Status:           domain.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
