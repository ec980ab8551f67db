package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("Ana", "ana@example.com", sqlmock.AnyArg(), "USER").
		WillReturnResult(sqlmock.NewResult(5, 1))

	id, err := repo.Create(context.Background(), " Ana ", "  Ana@Example.com ", "secret123", "USER", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(context.Background(), "Ana", "ana@example.com", "secret123", "USER", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_EnsureAdmin(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users .* ON DUPLICATE KEY UPDATE role=VALUES\(role\)`).
		WithArgs("Admin User", "admin@hotel.com", sqlmock.AnyArg(), "ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.EnsureAdmin(context.Background(), " Admin User ", "Admin@Hotel.com", "admin-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM users WHERE email=\? LIMIT 1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
			AddRow(5, "Ana", "ana@example.com", "hash", "ADMIN", true, now, now))
	mock.ExpectQuery(`FROM users WHERE id=\? LIMIT 1`).
		WithArgs(uint64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := repo.GetByEmail(context.Background(), "ANA@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, _, err = repo.Contact(context.Background(), 6)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	cols := []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 5, "live", now.Add(time.Hour), nil, now))
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, 5, "revoked", now.Add(time.Hour), now, now))
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, 5, "expired", now.Add(-time.Hour), nil, now))

	uid, err := repo.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), uid)

	_, err = repo.ValidateRefresh(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = repo.ValidateRefresh(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
