package postgres

import (
	"context"
	"testing"
	"time"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminPostgres_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAdminPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("admin-1", "owner@example.com", "$2a$10$hash", time.Now())

		mock.ExpectQuery("SELECT (.+) FROM admins WHERE email = ?").
			WithArgs("owner@example.com").
			WillReturnRows(rows)

		a, err := repo.FindByEmail(ctx, "Owner@Example.com")

		assert.NoError(t, err)
		assert.Equal(t, "admin-1", a.ID)
		assert.Equal(t, "$2a$10$hash", a.PasswordHash)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM admins WHERE email = ?").
			WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

		a, err := repo.FindByEmail(ctx, "ghost@example.com")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, a)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminPostgres_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAdminPostgres(db)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO admins").
		WithArgs("owner@example.com", "new-hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("admin-1", "owner@example.com", "new-hash", now))

	out, err := repo.Upsert(context.Background(), &model.Admin{Email: "OWNER@example.com", PasswordHash: "new-hash"})

	require.NoError(t, err)
	assert.Equal(t, "admin-1", out.ID)
	assert.Equal(t, "new-hash", out.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}
