// Package repo contains all database access logic for the rideshare API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/studentride/rideshare/backend/internal/domain"
)

// pgUniqueViolation is the SQLSTATE Postgres raises for a duplicate key.
const pgUniqueViolation = "23505"

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// beginner is satisfied by *pgxpool.Pool and by pgx.Tx (which nests via a savepoint).
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repos bundles the repositories bound to a single connection or transaction.
type Repos struct {
	Requests RequestRepo
	Votes    VoteRepo
	Users    UserRepo
}

// NewRepos builds every repository on top of the same db handle.
func NewRepos(db db) Repos {
	return Repos{
		Requests: NewRequestRepo(db),
		Votes:    NewVoteRepo(db),
		Users:    NewUserRepo(db),
	}
}

// Store runs multi-entity writes as one atomic unit.
// The service layer depends on this interface so it can be faked in unit tests.
type Store interface {
	// InTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; fn's error is returned unchanged.
	InTx(ctx context.Context, fn func(Repos) error) error
}

type pgStore struct {
	db beginner
}

// NewStore constructs a Store backed by the provided connection.
// In production pass *pgxpool.Pool; in tests a pgx.Tx gives savepoint nesting.
func NewStore(db beginner) Store {
	return &pgStore{db: db}
}

func (s *pgStore) InTx(ctx context.Context, fn func(Repos) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// mapWriteErr turns a unique-key failure into domain.ErrConstraintViolation
// and leaves every other error untouched.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, pgErr.ConstraintName)
	}
	return err
}
