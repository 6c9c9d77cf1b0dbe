package store

import (
	"context"
	"errors"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by each driver. It
// exposes sub-repositories so a Tx can hand out the same repos bound to the
// transaction, and so nobody accidentally nests transactions.
type Store interface {
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store.
type Users interface {
	// FindByNormalizedEmail is the login lookup. ErrNotFound when absent.
	FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (domain.User, error)

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// CreateUser inserts a new user, ErrAlreadyExists on a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	// RecordSuccessfulLogin sets last_login_at and clears the failure
	// counter and any lock.
	RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error

	// IncrementFailedAttempts bumps the counter and returns its new value.
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)

	ResetFailedAttempts(ctx context.Context, userID string) error

	// SetLockedUntil locks the account until the given time, nil unlocks.
	SetLockedUntil(ctx context.Context, userID string, until *time.Time) error

	SetActive(ctx context.Context, userID string, active bool) error

	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	Count(ctx context.Context) (int, error)
}

// Roles resolves role codes for users.
type Roles interface {
	// RolesForUser returns the active role codes held by a user, sorted.
	RolesForUser(ctx context.Context, userID string) ([]string, error)

	GetRoleByCode(ctx context.Context, code string) (domain.Role, error)

	ListAll(ctx context.Context) ([]domain.Role, error)

	// CreateRole inserts a role, ErrAlreadyExists on a duplicate code.
	CreateRole(ctx context.Context, r domain.Role) error

	// AssignRole is idempotent.
	AssignRole(ctx context.Context, userID, roleID string) error
}

// RefreshTokens persists refresh token records.
type RefreshTokens interface {
	Insert(ctx context.Context, t domain.RefreshToken) error

	// FindBySecretHash looks a token up by the fingerprint of its secret.
	FindBySecretHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	GetByID(ctx context.Context, id string) (domain.RefreshToken, error)

	// MarkRevoked flips revoked from false to true in a single conditional
	// update. It reports whether this call did the flip, so of two
	// concurrent callers exactly one sees true. ErrNotFound for unknown ids.
	MarkRevoked(ctx context.Context, id string, at time.Time) (bool, error)

	// ListActiveForUser returns unrevoked, unexpired tokens, newest first.
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error)

	// DeleteExpired removes tokens that expired before the given time and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
