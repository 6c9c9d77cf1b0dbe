package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
)

const userColumns = `id, email, normalized_email, password_hash, first_name, last_name,
	active, failed_login_attempts, locked_until, last_login_at, created_at, updated_at`

const (
	getUserByNormalizedEmail = `SELECT ` + userColumns + ` FROM users WHERE normalized_email = ?`
	getUserByID              = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	createUser = `INSERT INTO users (
	id, email, normalized_email, password_hash, first_name, last_name,
	active, failed_login_attempts, locked_until, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	recordSuccessfulLogin = `UPDATE users
SET last_login_at = ?, failed_login_attempts = 0, locked_until = NULL, updated_at = ?
WHERE id = ?`

	incrementFailedAttempts = `UPDATE users
SET failed_login_attempts = failed_login_attempts + 1, updated_at = ?
WHERE id = ?
RETURNING failed_login_attempts`

	resetFailedAttempts = `UPDATE users SET failed_login_attempts = 0, updated_at = ? WHERE id = ?`
	setLockedUntil      = `UPDATE users SET locked_until = ?, updated_at = ? WHERE id = ?`
	setActive           = `UPDATE users SET active = ?, updated_at = ? WHERE id = ?`
	updatePasswordHash  = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	countUsers          = `SELECT COUNT(*) FROM users`
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, getUserByNormalizedEmail, normalizedEmail))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, getUserByID, id))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	createdAt, updatedAt := u.CreatedAt, u.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := r.db.ExecContext(ctx, createUser,
		u.ID,
		u.Email,
		u.NormalizedEmail,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Active,
		u.FailedLoginAttempts,
		mapOptionalTime(u.LockedUntil),
		createdAt.UTC(),
		updatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error {
	at = at.UTC()
	return requireOneRow(r.db.ExecContext(ctx, recordSuccessfulLogin, at, at, userID))
}

func (r *usersRepo) IncrementFailedAttempts(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, incrementFailedAttempts, time.Now().UTC(), userID).Scan(&n)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

func (r *usersRepo) ResetFailedAttempts(ctx context.Context, userID string) error {
	return requireOneRow(r.db.ExecContext(ctx, resetFailedAttempts, time.Now().UTC(), userID))
}

func (r *usersRepo) SetLockedUntil(ctx context.Context, userID string, until *time.Time) error {
	return requireOneRow(r.db.ExecContext(ctx, setLockedUntil, mapOptionalTime(until), time.Now().UTC(), userID))
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return requireOneRow(r.db.ExecContext(ctx, setActive, active, time.Now().UTC(), userID))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return requireOneRow(r.db.ExecContext(ctx, updatePasswordHash, hash, time.Now().UTC(), userID))
}

func (r *usersRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countUsers).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u           domain.User
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.NormalizedEmail,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Active,
		&u.FailedLoginAttempts,
		&lockedUntil,
		&lastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}
