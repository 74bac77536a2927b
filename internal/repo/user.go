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

// UserRepo defines the persistence operations for the local user mirror.
type UserRepo interface {
	// Upsert inserts the user or overwrites email, name, and phone of an
	// existing row with the same ID.
	Upsert(ctx context.Context, u domain.User) (domain.User, error)

	// GetByID returns domain.ErrNotFound if the user has no local row.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// Delete returns domain.ErrNotFound if the user has no local row.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgUserRepo is the Postgres implementation of UserRepo.
type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

func (r *pgUserRepo) Upsert(ctx context.Context, u domain.User) (domain.User, error) {
	const q = `
		INSERT INTO users (id, email, name, phone)
		VALUES (@id, @email, @name, @phone)
		ON CONFLICT (id) DO UPDATE
		SET email      = EXCLUDED.email,
		    name       = EXCLUDED.name,
		    phone      = EXCLUDED.phone,
		    updated_at = now()
		RETURNING id, email, name, phone, created_at, updated_at`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
		"phone": u.Phone,
	}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Upsert: %w", err)
	}
	return result, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const q = `SELECT id, email, name, phone, created_at, updated_at FROM users WHERE id = @id`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM users WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.UserRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.UserRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u  domain.User
		id pgtype.UUID
	)
	err := s.Scan(&id, &u.Email, &u.Name, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	u.ID = uuid.UUID(id.Bytes)
	return u, nil
}
