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
)

const (
	DefaultMaxFailedLogins = 5
	DefaultLockoutDuration = 15 * time.Minute
)

var (
	ErrUnknownIdentity    = errors.New("unknown_identity")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrAccountDisabled    = errors.New("account_disabled")
)

// PasswordVerifier checks a candidate password against a stored hash.
// VerifyDummy does the same amount of work without a hash to compare to.
// Verify must return cryptox.ErrPasswordMismatch for a wrong password; any
// other error means the stored hash is unusable.
type PasswordVerifier interface {
	PasswordHasher
	Verify(password, encodedHash string) error
	VerifyDummy(password string)
	NeedsRehash(encodedHash string) bool
}

// AuthService runs the login pipeline: lookup, lock check, password check,
// active check, then token issuance.
type AuthService struct {
	Store     store.Store
	Tokens    jwtx.Signer
	Passwords PasswordVerifier
	Refresh   *RefreshService
	Metrics   *metrics.Metrics

	// MaxFailedLogins consecutive bad passwords lock the account for
	// LockoutDuration. Zero values fall back to the defaults.
	MaxFailedLogins int
	LockoutDuration time.Duration

	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login authenticates email/password and, on success, returns a fresh
// access token, a new refresh token and the caller's principal summary.
// Every failure returns one of the sentinel errors above or a wrapped
// storage error, and leaves no refresh token behind.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.ClientMetadata) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)
	now := s.now()
	normalized := domain.NormalizeEmail(email)

	user, err := s.Store.Users().FindByNormalizedEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Passwords.VerifyDummy(password)
			s.Metrics.LoginAttempt(metrics.OutcomeUnknownIdentity)
			l.Info("login rejected", slog.String("reason", "unknown_identity"))
			return domain.LoginResult{}, ErrUnknownIdentity
		}
		s.Metrics.LoginAttempt(metrics.OutcomeError)
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsLocked(now) {
		s.Metrics.LoginAttempt(metrics.OutcomeLocked)
		l.Info("login rejected", slog.String("reason", "account_locked"), slog.String("user_id", user.ID))
		return domain.LoginResult{}, ErrAccountLocked
	}

	if err := s.Passwords.Verify(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			s.Metrics.LoginAttempt(metrics.OutcomeError)
			l.Error("stored password hash unusable", slog.String("user_id", user.ID), slog.Any("err", err))
			return domain.LoginResult{}, fmt.Errorf("verify password: %w", err)
		}
		if lockErr := s.recordFailure(ctx, user, now); lockErr != nil {
			s.Metrics.LoginAttempt(metrics.OutcomeError)
			return domain.LoginResult{}, lockErr
		}
		s.Metrics.LoginAttempt(metrics.OutcomeInvalidCredentials)
		l.Info("login rejected", slog.String("reason", "invalid_credentials"), slog.String("user_id", user.ID))
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	if !user.Active {
		s.Metrics.LoginAttempt(metrics.OutcomeDisabled)
		l.Info("login rejected", slog.String("reason", "account_disabled"), slog.String("user_id", user.ID))
		return domain.LoginResult{}, ErrAccountDisabled
	}

	upgraded := s.rehash(ctx, user, password)

	var result domain.LoginResult
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		roles, err := tx.Roles().RolesForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("resolve roles: %w", err)
		}

		access, err := s.Tokens.Issue(user.Email, roles)
		if err != nil {
			return fmt.Errorf("issue access token: %w", err)
		}

		refresh, secret, err := s.Refresh.issue(ctx, tx.RefreshTokens(), user.ID, meta, now)
		if err != nil {
			return err
		}

		if err := tx.Users().RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
			return fmt.Errorf("record login: %w", err)
		}
		if upgraded != "" {
			if err := tx.Users().UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
				return fmt.Errorf("upgrade password hash: %w", err)
			}
		}

		result = newLoginResult(user, roles, access, refresh, secret)
		return nil
	})
	if err != nil {
		s.Metrics.LoginAttempt(metrics.OutcomeError)
		return domain.LoginResult{}, err
	}

	s.Metrics.LoginAttempt(metrics.OutcomeSuccess)
	l.Info("login succeeded",
		slog.String("user_id", user.ID),
		slog.String("refresh_token_id", result.Tokens.RefreshTokenID),
	)
	return result, nil
}

// rehash returns a fresh bcrypt hash when the stored one is legacy or weaker
// than the configured cost, or "" when nothing should change. A hashing
// failure keeps the old hash; the login itself already succeeded.
func (s *AuthService) rehash(ctx context.Context, user domain.User, password string) string {
	if !s.Passwords.NeedsRehash(user.PasswordHash) {
		return ""
	}
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		slogx.FromContext(ctx).Warn("password hash upgrade skipped",
			slog.String("user_id", user.ID),
			slog.Any("err", err),
		)
		return ""
	}
	return hash
}

// recordFailure bumps the failure counter and locks the account once it
// reaches the configured maximum.
func (s *AuthService) recordFailure(ctx context.Context, user domain.User, now time.Time) error {
	maxFailed := s.MaxFailedLogins
	if maxFailed <= 0 {
		maxFailed = DefaultMaxFailedLogins
	}
	lockout := s.LockoutDuration
	if lockout <= 0 {
		lockout = DefaultLockoutDuration
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Users().IncrementFailedAttempts(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("increment failed attempts: %w", err)
		}
		if n < maxFailed {
			return nil
		}

		until := now.Add(lockout)
		if err := tx.Users().SetLockedUntil(ctx, user.ID, &until); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if err := tx.Users().ResetFailedAttempts(ctx, user.ID); err != nil {
			return fmt.Errorf("reset failed attempts: %w", err)
		}
		slogx.FromContext(ctx).Warn("account locked after repeated failures",
			slog.String("user_id", user.ID),
			slog.Int("failed_attempts", n),
			slog.Time("locked_until", until),
		)
		return nil
	})
}

func newLoginResult(user domain.User, roles []string, access jwtx.AccessToken, refresh domain.RefreshToken, secret string) domain.LoginResult {
	return domain.LoginResult{
		Tokens: domain.TokenPair{
			AccessToken:      access.Token,
			AccessIssuedAt:   access.IssuedAt,
			AccessExpiresAt:  access.ExpiresAt,
			RefreshToken:     secret,
			RefreshTokenID:   refresh.ID,
			RefreshIssuedAt:  refresh.IssuedAt,
			RefreshExpiresAt: refresh.ExpiresAt,
		},
		Principal: domain.PrincipalSummary{
			SubjectID: access.Subject,
			UserID:    user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Roles:     append([]string(nil), roles...),
		},
	}
}
