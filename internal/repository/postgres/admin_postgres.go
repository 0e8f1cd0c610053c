package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

// AdminPostgres is a PostgreSQL implementation of repository.AdminRepository.
type AdminPostgres struct {
	db *sql.DB
}

func NewAdminPostgres(db *sql.DB) *AdminPostgres {
	return &AdminPostgres{db: db}
}

var _ repository.AdminRepository = (*AdminPostgres)(nil)

// FindByEmail fetches an admin by case-insensitive email.
func (r *AdminPostgres) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM admins
		WHERE email = $1
	`
	var a model.Admin
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(email)).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Upsert inserts the admin or replaces the password hash when the email exists.
func (r *AdminPostgres) Upsert(ctx context.Context, admin *model.Admin) (*model.Admin, error) {
	const q = `
		INSERT INTO admins (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING id, email, password_hash, created_at
	`
	var out model.Admin
	if err := r.db.QueryRowContext(ctx, q, strings.ToLower(admin.Email), admin.PasswordHash).Scan(
		&out.ID,
		&out.Email,
		&out.PasswordHash,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}
