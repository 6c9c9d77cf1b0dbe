package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
	"github.com/afci/trajet/internal/auth/metrics"
	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/pkg/cryptox"
	"github.com/afci/trajet/pkg/jwtx"
	"github.com/afci/trajet/pkg/slogx"
	"github.com/google/uuid"
)

var ErrInvalidRefresh = errors.New("invalid_refresh_token")

// RefreshService owns the refresh token lifecycle. The secret handed to
// clients is never stored; records are found by its fingerprint.
type RefreshService struct {
	Store   store.Store
	Tokens  jwtx.Signer
	TTL     time.Duration
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (s *RefreshService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *RefreshService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Issue creates and persists a new refresh token for userID and returns the
// record along with the secret to hand to the client.
func (s *RefreshService) Issue(ctx context.Context, userID string, meta domain.ClientMetadata) (domain.RefreshToken, string, error) {
	return s.issue(ctx, s.Store.RefreshTokens(), userID, meta, s.now())
}

func (s *RefreshService) issue(
	ctx context.Context,
	repo store.RefreshTokens,
	userID string,
	meta domain.ClientMetadata,
	now time.Time,
) (domain.RefreshToken, string, error) {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.RefreshToken{}, "", fmt.Errorf("generate refresh secret: %w", err)
	}

	now = now.UTC()
	t := domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(secret),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl()),
		UserAgent: meta.UserAgent,
		SourceIP:  meta.SourceIP,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Insert(ctx, t); err != nil {
		return domain.RefreshToken{}, "", fmt.Errorf("store refresh token: %w", err)
	}
	return t, secret, nil
}

// Revoke marks the token revoked. Revoking an already revoked token is a
// no-op; unknown ids return store.ErrNotFound.
func (s *RefreshService) Revoke(ctx context.Context, tokenID string) error {
	changed, err := s.Store.RefreshTokens().MarkRevoked(ctx, tokenID, s.now())
	if err != nil {
		return err
	}
	if changed {
		slogx.FromContext(ctx).Info("refresh token revoked", slog.String("refresh_token_id", tokenID))
	}
	return nil
}

// IsUsable reports whether t may still be exchanged at now.
func (s *RefreshService) IsUsable(t domain.RefreshToken, now time.Time) bool {
	return t.IsUsable(now)
}

// Rotate exchanges a usable refresh secret for a new access token and a new
// refresh token, revoking the presented one. Of two concurrent rotations of
// the same secret exactly one succeeds; the other gets ErrInvalidRefresh.
func (s *RefreshService) Rotate(ctx context.Context, secret string, meta domain.ClientMetadata) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)
	if secret == "" {
		s.Metrics.RefreshRotation(metrics.OutcomeInvalid)
		return domain.LoginResult{}, ErrInvalidRefresh
	}
	now := s.now()

	var result domain.LoginResult
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.RefreshTokens().FindBySecretHash(ctx, cryptox.FingerprintToken(secret))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return fmt.Errorf("lookup refresh token: %w", err)
		}
		if !current.IsUsable(now) {
			return ErrInvalidRefresh
		}

		won, err := tx.RefreshTokens().MarkRevoked(ctx, current.ID, now)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if !won {
			return ErrInvalidRefresh
		}

		user, err := tx.Users().GetUserByID(ctx, current.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return fmt.Errorf("lookup user: %w", err)
		}
		if !user.Active || user.IsLocked(now) {
			return ErrInvalidRefresh
		}

		roles, err := tx.Roles().RolesForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("resolve roles: %w", err)
		}
		access, err := s.Tokens.Issue(user.Email, roles)
		if err != nil {
			return fmt.Errorf("issue access token: %w", err)
		}
		next, nextSecret, err := s.issue(ctx, tx.RefreshTokens(), user.ID, meta, now)
		if err != nil {
			return err
		}

		result = newLoginResult(user, roles, access, next, nextSecret)
		l.Info("refresh token rotated",
			slog.String("user_id", user.ID),
			slog.String("revoked_refresh_token_id", current.ID),
			slog.String("refresh_token_id", next.ID),
		)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefresh) {
			s.Metrics.RefreshRotation(metrics.OutcomeInvalid)
		} else {
			s.Metrics.RefreshRotation(metrics.OutcomeError)
		}
		return domain.LoginResult{}, err
	}

	s.Metrics.RefreshRotation(metrics.OutcomeSuccess)
	return result, nil
}

// RevokeBySecret revokes the token behind secret. Unknown secrets are not an
// error so logout never reveals whether a token existed.
func (s *RefreshService) RevokeBySecret(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	t, err := s.Store.RefreshTokens().FindBySecretHash(ctx, cryptox.FingerprintToken(secret))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup refresh token: %w", err)
	}
	return s.Revoke(ctx, t.ID)
}

// ListActive returns the user's unrevoked, unexpired tokens, newest first.
func (s *RefreshService) ListActive(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	return s.Store.RefreshTokens().ListActiveForUser(ctx, userID, s.now())
}

// RevokeForUser revokes tokenID only when it belongs to userID. A token of
// another user is reported as store.ErrNotFound.
func (s *RefreshService) RevokeForUser(ctx context.Context, userID, tokenID string) error {
	t, err := s.Store.RefreshTokens().GetByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return store.ErrNotFound
	}
	return s.Revoke(ctx, tokenID)
}

// PurgeExpired deletes tokens whose expiry is already past.
func (s *RefreshService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.Store.RefreshTokens().DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.Metrics.RefreshPurged(n)
	return n, nil
}
