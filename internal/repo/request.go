package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/studentride/rideshare/backend/internal/domain"
)

// RequestRepo defines the persistence operations for ride requests.
// The service layer depends on this interface, not the concrete Postgres implementation.
type RequestRepo interface {
	// Create inserts a new request and returns the persisted record (with
	// DB-generated id, created_at, and updated_at populated).
	Create(ctx context.Context, r domain.Request) (domain.Request, error)

	// GetByID retrieves a single request by primary key.
	// Returns domain.ErrNotFound if no request with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Request, error)

	// GetByIDForUpdate is GetByID with a row lock held until the surrounding
	// transaction ends. Concurrent votes on the same request serialize here.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Request, error)

	// Search returns one page of requests matching f and the total match count,
	// ordered by travel date then creation time.
	Search(ctx context.Context, f domain.RequestFilter, p domain.PaginationParams) ([]domain.Request, int64, error)

	// ListByOwner returns every request posted by owner, newest first.
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]domain.Request, error)

	// Update overwrites the owner-editable fields of a request.
	// Returns domain.ErrNotFound if the request does not exist.
	Update(ctx context.Context, r domain.Request) (domain.Request, error)

	// UpdateStatusAndOccupancy sets occupancy and status in one statement.
	// Returns domain.ErrNotFound if the request does not exist.
	UpdateStatusAndOccupancy(ctx context.Context, id uuid.UUID, occupancy int, status domain.RequestStatus) (domain.Request, error)

	// Delete removes a request. Its votes must already be gone.
	// Returns domain.ErrNotFound if the request does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// BatchUpdateStatus moves every row matching pred to status `to` in one
	// set-based statement and returns the number of rows changed.
	BatchUpdateStatus(ctx context.Context, pred domain.StatusPredicate, to domain.RequestStatus) (int64, error)

	// CancelActiveByOwner moves all of owner's active requests to cancelled.
	CancelActiveByOwner(ctx context.Context, owner uuid.UUID) (int64, error)

	// CountByStatus groups every request by status.
	CountByStatus(ctx context.Context) (domain.StatusCounts, error)

	// CountByOwnerStatus groups owner's requests by status.
	CountByOwnerStatus(ctx context.Context, owner uuid.UUID) (domain.StatusCounts, error)
}

// pgRequestRepo is the Postgres implementation of RequestRepo.
type pgRequestRepo struct {
	db db
}

// NewRequestRepo constructs a RequestRepo backed by the provided db connection.
func NewRequestRepo(db db) RequestRepo {
	return &pgRequestRepo{db: db}
}

const requestColumns = `id, owner_id, origin, destination, travel_date, travel_time, car_type,
		       max_persons, current_occupancy, status, created_at, updated_at`

func (r *pgRequestRepo) Create(ctx context.Context, req domain.Request) (domain.Request, error) {
	q := `
		INSERT INTO requests (owner_id, origin, destination, travel_date, travel_time, car_type, max_persons)
		VALUES (@owner_id, @origin, @destination, @travel_date, @travel_time, @car_type, @max_persons)
		RETURNING ` + requestColumns

	args := pgx.NamedArgs{
		"owner_id":    req.OwnerID,
		"origin":      req.Origin,
		"destination": req.Destination,
		"travel_date": pgtype.Date{Time: req.TravelDate, Valid: true},
		"travel_time": req.TravelTime,
		"car_type":    string(req.CarType),
		"max_persons": req.MaxPersons,
	}

	result, err := scanRequest(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Request{}, fmt.Errorf("repo.RequestRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE id = @id`

	result, err := scanRequest(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Request{}, fmt.Errorf("repo.RequestRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgRequestRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE id = @id FOR UPDATE`

	result, err := scanRequest(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Request{}, fmt.Errorf("repo.RequestRepo.GetByIDForUpdate: %w", err)
	}
	return result, nil
}

// Search builds its WHERE clause from fixed fragments; only values travel as args.
func (r *pgRequestRepo) Search(ctx context.Context, f domain.RequestFilter, p domain.PaginationParams) ([]domain.Request, int64, error) {
	var conds []string
	args := pgx.NamedArgs{}

	if f.Status != "" {
		conds = append(conds, "status = @status")
		args["status"] = string(f.Status)
	}
	if f.Origin != "" {
		conds = append(conds, "origin ILIKE '%' || @origin::text || '%'")
		args["origin"] = f.Origin
	}
	if f.Destination != "" {
		conds = append(conds, "destination ILIKE '%' || @destination::text || '%'")
		args["destination"] = f.Destination
	}
	if f.TravelDate != nil {
		conds = append(conds, "travel_date = @travel_date")
		args["travel_date"] = pgtype.Date{Time: *f.TravelDate, Valid: true}
	}
	if f.CarType != "" {
		conds = append(conds, "car_type = @car_type")
		args["car_type"] = string(f.CarType)
	}
	if f.MinSeats > 0 {
		conds = append(conds, "max_persons - current_occupancy >= @min_seats")
		args["min_seats"] = f.MinSeats
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	countQ := `SELECT count(*) FROM requests ` + where
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.RequestRepo.Search: count: %w", err)
	}

	args["limit"] = p.Limit
	args["offset"] = p.Offset()
	q := `
		SELECT ` + requestColumns + `
		FROM requests
		` + where + `
		ORDER BY travel_date, travel_time, created_at
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.RequestRepo.Search: %w", err)
	}
	defer rows.Close()

	requests := []domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.RequestRepo.Search: scan: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.RequestRepo.Search: rows: %w", err)
	}
	return requests, total, nil
}

func (r *pgRequestRepo) ListByOwner(ctx context.Context, owner uuid.UUID) ([]domain.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE owner_id = @owner_id ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"owner_id": owner})
	if err != nil {
		return nil, fmt.Errorf("repo.RequestRepo.ListByOwner: %w", err)
	}
	defer rows.Close()

	requests := []domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.RequestRepo.ListByOwner: scan: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RequestRepo.ListByOwner: rows: %w", err)
	}
	return requests, nil
}

func (r *pgRequestRepo) Update(ctx context.Context, req domain.Request) (domain.Request, error) {
	q := `
		UPDATE requests
		SET origin      = @origin,
		    destination = @destination,
		    travel_date = @travel_date,
		    travel_time = @travel_time,
		    car_type    = @car_type,
		    max_persons = @max_persons,
		    updated_at  = now()
		WHERE id = @id
		RETURNING ` + requestColumns

	args := pgx.NamedArgs{
		"id":          req.ID,
		"origin":      req.Origin,
		"destination": req.Destination,
		"travel_date": pgtype.Date{Time: req.TravelDate, Valid: true},
		"travel_time": req.TravelTime,
		"car_type":    string(req.CarType),
		"max_persons": req.MaxPersons,
	}

	result, err := scanRequest(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Request{}, fmt.Errorf("repo.RequestRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgRequestRepo) UpdateStatusAndOccupancy(ctx context.Context, id uuid.UUID, occupancy int, status domain.RequestStatus) (domain.Request, error) {
	q := `
		UPDATE requests
		SET current_occupancy = @occupancy,
		    status            = @status,
		    updated_at        = now()
		WHERE id = @id
		RETURNING ` + requestColumns

	args := pgx.NamedArgs{
		"id":        id,
		"occupancy": occupancy,
		"status":    string(status),
	}

	result, err := scanRequest(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Request{}, fmt.Errorf("repo.RequestRepo.UpdateStatusAndOccupancy: %w", err)
	}
	return result, nil
}

func (r *pgRequestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM requests WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.RequestRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.RequestRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgRequestRepo) BatchUpdateStatus(ctx context.Context, pred domain.StatusPredicate, to domain.RequestStatus) (int64, error) {
	conds := []string{"status = @from"}
	args := pgx.NamedArgs{
		"from": string(pred.From),
		"to":   string(to),
	}

	var age []string
	if pred.StaleBefore != nil {
		age = append(age, "travel_date < @stale_before")
		args["stale_before"] = pgtype.Date{Time: *pred.StaleBefore, Valid: true}
	}
	if pred.CreatedBefore != nil {
		age = append(age, "created_at < @created_before")
		args["created_before"] = *pred.CreatedBefore
	}
	if len(age) > 0 {
		conds = append(conds, "("+strings.Join(age, " OR ")+")")
	}
	if pred.Full {
		conds = append(conds, "current_occupancy >= max_persons")
	}

	q := `
		UPDATE requests
		SET status = @to, updated_at = now()
		WHERE ` + strings.Join(conds, " AND ")

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("repo.RequestRepo.BatchUpdateStatus: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgRequestRepo) CancelActiveByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	const q = `
		UPDATE requests
		SET status = @cancelled, updated_at = now()
		WHERE owner_id = @owner_id AND status = @active`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"owner_id":  owner,
		"active":    string(domain.StatusActive),
		"cancelled": string(domain.StatusCancelled),
	})
	if err != nil {
		return 0, fmt.Errorf("repo.RequestRepo.CancelActiveByOwner: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgRequestRepo) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	const q = `SELECT status, count(*) FROM requests GROUP BY status`

	counts, err := r.countGrouped(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("repo.RequestRepo.CountByStatus: %w", err)
	}
	return counts, nil
}

func (r *pgRequestRepo) CountByOwnerStatus(ctx context.Context, owner uuid.UUID) (domain.StatusCounts, error) {
	const q = `SELECT status, count(*) FROM requests WHERE owner_id = @owner_id GROUP BY status`

	counts, err := r.countGrouped(ctx, q, pgx.NamedArgs{"owner_id": owner})
	if err != nil {
		return nil, fmt.Errorf("repo.RequestRepo.CountByOwnerStatus: %w", err)
	}
	return counts, nil
}

func (r *pgRequestRepo) countGrouped(ctx context.Context, q string, args pgx.NamedArgs) (domain.StatusCounts, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := domain.NewStatusCounts()
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.RequestStatus(status)] = n
	}
	return counts, rows.Err()
}

// scanRequest maps one requests row into a domain.Request.
func scanRequest(s scanner) (domain.Request, error) {
	var (
		req        domain.Request
		id         pgtype.UUID
		owner      pgtype.UUID
		travelDate pgtype.Date
		carType    string
		status     string
	)

	err := s.Scan(
		&id, &owner, &req.Origin, &req.Destination, &travelDate, &req.TravelTime, &carType,
		&req.MaxPersons, &req.CurrentOccupancy, &status, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Request{}, domain.ErrNotFound
		}
		return domain.Request{}, err
	}

	req.ID = uuid.UUID(id.Bytes)
	req.OwnerID = uuid.UUID(owner.Bytes)
	req.TravelDate = travelDate.Time
	req.CarType = domain.CarType(carType)
	req.Status = domain.RequestStatus(status)
	return req, nil
}
