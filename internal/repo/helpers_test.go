package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
	"github.com/studentride/rideshare/backend/testutil"
)

// newTestTx opens a transaction against the test database that is rolled
// back when the test finishes, giving free per-test isolation.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// newTestRepos returns every repository bound to a rolled-back transaction.
func newTestRepos(t *testing.T) repo.Repos {
	t.Helper()
	return repo.NewRepos(newTestTx(t))
}

// requestFixture returns an active request travelling tomorrow.
// Callers can override individual fields after calling this function.
func requestFixture() domain.Request {
	return domain.Request{
		OwnerID:     uuid.New(),
		Origin:      "North Campus",
		Destination: "Central Station",
		TravelDate:  time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1),
		TravelTime:  "08:30",
		CarType:     domain.CarAny,
		MaxPersons:  3,
	}
}

func mustCreateRequest(t *testing.T, r repo.RequestRepo, req domain.Request) domain.Request {
	t.Helper()
	created, err := r.Create(context.Background(), req)
	require.NoError(t, err)
	return created
}
