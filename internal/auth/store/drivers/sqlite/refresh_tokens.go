package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
	"github.com/afci/trajet/internal/auth/store"
)

const refreshTokenColumns = `id, user_id, token_hash, issued_at, expires_at, revoked, revoked_at,
	user_agent, ip_address, created_at, updated_at`

const (
	insertRefreshToken = `INSERT INTO refresh_tokens (
	id, user_id, token_hash, issued_at, expires_at, revoked, revoked_at,
	user_agent, ip_address, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	getRefreshTokenByHash = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = ?`
	getRefreshTokenByID   = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE id = ?`

	// The revoked = 0 guard is the check-and-set that makes rotation single use.
	markRefreshTokenRevoked = `UPDATE refresh_tokens
SET revoked = 1, revoked_at = ?, updated_at = ?
WHERE id = ? AND revoked = 0`

	refreshTokenExists = `SELECT 1 FROM refresh_tokens WHERE id = ?`

	listActiveRefreshTokens = `SELECT ` + refreshTokenColumns + `
FROM refresh_tokens
WHERE user_id = ? AND revoked = 0 AND expires_at > ?
ORDER BY issued_at DESC, id`

	deleteExpiredRefreshTokens = `DELETE FROM refresh_tokens WHERE expires_at <= ?`
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) Insert(ctx context.Context, t domain.RefreshToken) error {
	createdAt, updatedAt := t.CreatedAt, t.UpdatedAt
	if createdAt.IsZero() {
		createdAt = t.IssuedAt
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := r.db.ExecContext(ctx, insertRefreshToken,
		t.ID,
		t.UserID,
		t.TokenHash,
		t.IssuedAt.UTC(),
		t.ExpiresAt.UTC(),
		t.Revoked,
		mapOptionalTime(t.RevokedAt),
		t.UserAgent,
		t.SourceIP,
		createdAt.UTC(),
		updatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) FindBySecretHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	return scanRefreshToken(r.db.QueryRowContext(ctx, getRefreshTokenByHash, hash))
}

func (r *refreshTokensRepo) GetByID(ctx context.Context, id string) (domain.RefreshToken, error) {
	return scanRefreshToken(r.db.QueryRowContext(ctx, getRefreshTokenByID, id))
}

func (r *refreshTokensRepo) MarkRevoked(ctx context.Context, id string, at time.Time) (bool, error) {
	at = at.UTC()
	res, err := r.db.ExecContext(ctx, markRefreshTokenRevoked, at, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	// Nothing changed: either already revoked or unknown.
	var one int
	if err := r.db.QueryRowContext(ctx, refreshTokenExists, id).Scan(&one); err != nil {
		return false, mapNotFound(err)
	}
	return false, nil
}

func (r *refreshTokensRepo) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, listActiveRefreshTokens, userID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []domain.RefreshToken{}
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredRefreshTokens, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.Revoked,
		&revokedAt,
		&t.UserAgent,
		&t.SourceIP,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.IssuedAt = t.IssuedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.RevokedAt = mapNullTimePtr(revokedAt)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

var _ store.RefreshTokens = (*refreshTokensRepo)(nil)
