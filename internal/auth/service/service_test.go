package service

import (
	"context"
	"testing"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/internal/auth/store/drivers/sqlite"
	"github.com/afci/trajet/pkg/cryptox"
	"github.com/afci/trajet/pkg/idx"
	"github.com/afci/trajet/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

var testMeta = domain.ClientMetadata{UserAgent: "go-test", SourceIP: "198.51.100.4"}

// fixture wires the services over an in-memory store and a movable clock.
type fixture struct {
	store     *sqlite.Store
	passwords *cryptox.Passwords
	signer    *jwtx.HS256
	auth      *AuthService
	refresh   *RefreshService
	accounts  *AccountService
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	passwords, err := cryptox.NewPasswords(4)
	require.NoError(t, err)

	f := &fixture{
		store:     st,
		passwords: passwords,
		now:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.signer, err = jwtx.NewHS256([]byte(testSecret), "trajet-test", 15*time.Minute, jwtx.WithClock(clock))
	require.NoError(t, err)

	f.refresh = &RefreshService{
		Store:  st,
		Tokens: f.signer,
		TTL:    24 * time.Hour,
		Now:    clock,
	}
	f.auth = &AuthService{
		Store:           st,
		Tokens:          f.signer,
		Passwords:       passwords,
		Refresh:         f.refresh,
		MaxFailedLogins: 3,
		LockoutDuration: 10 * time.Minute,
		Now:             clock,
	}
	f.accounts = &AccountService{Store: st, Now: clock}
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) createUser(t *testing.T, email, password string, roles ...string) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := f.passwords.Hash(password)
	require.NoError(t, err)

	u := domain.User{
		ID:              idx.New().String(),
		Email:           email,
		NormalizedEmail: domain.NormalizeEmail(email),
		PasswordHash:    hash,
		FirstName:       "Camille",
		LastName:        "Durand",
		Active:          true,
	}
	require.NoError(t, f.store.Users().CreateUser(ctx, u))

	for _, code := range roles {
		role, err := f.store.Roles().GetRoleByCode(ctx, code)
		require.NoError(t, err)
		require.NoError(t, f.store.Roles().AssignRole(ctx, u.ID, role.ID))
	}
	return u
}

func (f *fixture) user(t *testing.T, id string) domain.User {
	t.Helper()
	u, err := f.store.Users().GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// refreshRows counts the unrevoked refresh tokens of userID, expired ones
// included.
func (f *fixture) refreshRows(t *testing.T, userID string) int {
	t.Helper()
	tokens, err := f.store.RefreshTokens().ListActiveForUser(context.Background(), userID, time.Time{})
	require.NoError(t, err)
	return len(tokens)
}

var _ store.Store = (*sqlite.Store)(nil)
