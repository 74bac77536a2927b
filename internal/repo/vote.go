package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/studentride/rideshare/backend/internal/domain"
)

// VoteRepo defines the persistence operations for votes.
// A vote is logically keyed by (voter_id, request_id).
type VoteRepo interface {
	// Create inserts a new vote. Returns domain.ErrConstraintViolation if the
	// voter already has a vote on the request.
	Create(ctx context.Context, v domain.Vote) (domain.Vote, error)

	// UpsertDecision inserts the vote or, if one exists for the same
	// (voter, request), replaces its decision and note.
	UpsertDecision(ctx context.Context, v domain.Vote) (domain.Vote, error)

	// Get returns the voter's vote on a request.
	// Returns domain.ErrNotFound if there is none.
	Get(ctx context.Context, voterID, requestID uuid.UUID) (domain.Vote, error)

	// Delete removes the voter's vote on a request.
	// Returns domain.ErrNotFound if there is none.
	Delete(ctx context.Context, voterID, requestID uuid.UUID) error

	// DeleteByRequest removes every vote on a request and returns how many went.
	DeleteByRequest(ctx context.Context, requestID uuid.UUID) (int64, error)

	// DeleteByVoter removes every vote cast by voter and returns the distinct
	// request IDs that lost an accepted vote, in ascending order.
	DeleteByVoter(ctx context.Context, voterID uuid.UUID) (deleted int64, affected []uuid.UUID, err error)

	// CountForRequest counts votes on a request with the given decision.
	CountForRequest(ctx context.Context, requestID uuid.UUID, decision domain.VoteDecision) (int, error)

	// ListByRequest returns every vote on a request, oldest first.
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Vote, error)

	// ListByVoter returns every vote cast by voter, newest first.
	ListByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error)

	// CountByVoterDecision groups voter's votes by decision.
	CountByVoterDecision(ctx context.Context, voterID uuid.UUID) (map[domain.VoteDecision]int64, error)
}

// pgVoteRepo is the Postgres implementation of VoteRepo.
type pgVoteRepo struct {
	db db
}

// NewVoteRepo constructs a VoteRepo backed by the provided db connection.
func NewVoteRepo(db db) VoteRepo {
	return &pgVoteRepo{db: db}
}

const voteColumns = `id, voter_id, request_id, status, note, created_at, updated_at`

func (r *pgVoteRepo) Create(ctx context.Context, v domain.Vote) (domain.Vote, error) {
	q := `
		INSERT INTO votes (voter_id, request_id, status, note)
		VALUES (@voter_id, @request_id, @status, @note)
		RETURNING ` + voteColumns

	result, err := scanVote(r.db.QueryRow(ctx, q, voteArgs(v)))
	if err != nil {
		return domain.Vote{}, fmt.Errorf("repo.VoteRepo.Create: %w", mapWriteErr(err))
	}
	return result, nil
}

// UpsertDecision keeps the original id and created_at on conflict so the
// vote's identity survives a change of mind.
func (r *pgVoteRepo) UpsertDecision(ctx context.Context, v domain.Vote) (domain.Vote, error) {
	q := `
		INSERT INTO votes (voter_id, request_id, status, note)
		VALUES (@voter_id, @request_id, @status, @note)
		ON CONFLICT (voter_id, request_id) DO UPDATE
		SET status     = EXCLUDED.status,
		    note       = EXCLUDED.note,
		    updated_at = now()
		RETURNING ` + voteColumns

	result, err := scanVote(r.db.QueryRow(ctx, q, voteArgs(v)))
	if err != nil {
		return domain.Vote{}, fmt.Errorf("repo.VoteRepo.UpsertDecision: %w", err)
	}
	return result, nil
}

func (r *pgVoteRepo) Get(ctx context.Context, voterID, requestID uuid.UUID) (domain.Vote, error) {
	q := `SELECT ` + voteColumns + ` FROM votes WHERE voter_id = @voter_id AND request_id = @request_id`

	result, err := scanVote(r.db.QueryRow(ctx, q, pgx.NamedArgs{"voter_id": voterID, "request_id": requestID}))
	if err != nil {
		return domain.Vote{}, fmt.Errorf("repo.VoteRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgVoteRepo) Delete(ctx context.Context, voterID, requestID uuid.UUID) error {
	const q = `DELETE FROM votes WHERE voter_id = @voter_id AND request_id = @request_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"voter_id": voterID, "request_id": requestID})
	if err != nil {
		return fmt.Errorf("repo.VoteRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VoteRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgVoteRepo) DeleteByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	const q = `DELETE FROM votes WHERE request_id = @request_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"request_id": requestID})
	if err != nil {
		return 0, fmt.Errorf("repo.VoteRepo.DeleteByRequest: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgVoteRepo) DeleteByVoter(ctx context.Context, voterID uuid.UUID) (int64, []uuid.UUID, error) {
	const q = `
		WITH deleted AS (
			DELETE FROM votes WHERE voter_id = @voter_id
			RETURNING request_id, status
		)
		SELECT
			(SELECT count(*) FROM deleted),
			COALESCE(
				(SELECT array_agg(DISTINCT request_id ORDER BY request_id)
				 FROM deleted WHERE status = @accepted),
				'{}'
			)`

	var (
		n   int64
		ids []pgtype.UUID
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"voter_id": voterID,
		"accepted": string(domain.VoteAccepted),
	}).Scan(&n, &ids)
	if err != nil {
		return 0, nil, fmt.Errorf("repo.VoteRepo.DeleteByVoter: %w", err)
	}

	affected := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		affected = append(affected, uuid.UUID(id.Bytes))
	}
	return n, affected, nil
}

func (r *pgVoteRepo) CountForRequest(ctx context.Context, requestID uuid.UUID, decision domain.VoteDecision) (int, error) {
	const q = `SELECT count(*) FROM votes WHERE request_id = @request_id AND status = @status`

	var n int
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"request_id": requestID,
		"status":     string(decision),
	}).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repo.VoteRepo.CountForRequest: %w", err)
	}
	return n, nil
}

func (r *pgVoteRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Vote, error) {
	q := `SELECT ` + voteColumns + ` FROM votes WHERE request_id = @request_id ORDER BY created_at`

	votes, err := r.list(ctx, q, pgx.NamedArgs{"request_id": requestID})
	if err != nil {
		return nil, fmt.Errorf("repo.VoteRepo.ListByRequest: %w", err)
	}
	return votes, nil
}

func (r *pgVoteRepo) ListByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error) {
	q := `SELECT ` + voteColumns + ` FROM votes WHERE voter_id = @voter_id ORDER BY created_at DESC`

	votes, err := r.list(ctx, q, pgx.NamedArgs{"voter_id": voterID})
	if err != nil {
		return nil, fmt.Errorf("repo.VoteRepo.ListByVoter: %w", err)
	}
	return votes, nil
}

func (r *pgVoteRepo) CountByVoterDecision(ctx context.Context, voterID uuid.UUID) (map[domain.VoteDecision]int64, error) {
	const q = `SELECT status, count(*) FROM votes WHERE voter_id = @voter_id GROUP BY status`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"voter_id": voterID})
	if err != nil {
		return nil, fmt.Errorf("repo.VoteRepo.CountByVoterDecision: %w", err)
	}
	defer rows.Close()

	counts := map[domain.VoteDecision]int64{
		domain.VoteAccepted: 0,
		domain.VoteRejected: 0,
	}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("repo.VoteRepo.CountByVoterDecision: scan: %w", err)
		}
		counts[domain.VoteDecision(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.VoteRepo.CountByVoterDecision: rows: %w", err)
	}
	return counts, nil
}

func (r *pgVoteRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Vote, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := []domain.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return votes, nil
}

func voteArgs(v domain.Vote) pgx.NamedArgs {
	return pgx.NamedArgs{
		"voter_id":   v.VoterID,
		"request_id": v.RequestID,
		"status":     string(v.Decision),
		"note":       v.Note,
	}
}

// scanVote maps a single votes row into a domain.Vote.
func scanVote(s scanner) (domain.Vote, error) {
	var (
		v         domain.Vote
		id        pgtype.UUID
		voterID   pgtype.UUID
		requestID pgtype.UUID
		status    string
	)

	err := s.Scan(&id, &voterID, &requestID, &status, &v.Note, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vote{}, domain.ErrNotFound
		}
		return domain.Vote{}, err
	}

	v.ID = uuid.UUID(id.Bytes)
	v.VoterID = uuid.UUID(voterID.Bytes)
	v.RequestID = uuid.UUID(requestID.Bytes)
	v.Decision = domain.VoteDecision(status)
	return v, nil
}
