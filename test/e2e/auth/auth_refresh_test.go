//go:build e2e

package auth_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/afci/trajet/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRefreshRotation verifies a refresh token can be exchanged exactly once.
func TestRefreshRotation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	first, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)

	second, err := client.Refresh(t.Context(), first.RefreshToken)
	require.NoError(t, err)
	assertTokenResponse(t, second)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = client.Refresh(t.Context(), first.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	_, err = client.Refresh(t.Context(), second.RefreshToken)
	require.NoError(t, err)
}

// TestConcurrentRefresh verifies that of many parallel exchanges of one
// refresh token exactly one succeeds.
func TestConcurrentRefresh(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	login, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)

	const workers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		others []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Refresh(t.Context(), login.RefreshToken)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, authsdk.ErrInvalidGrant):
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	require.Equal(t, 1, wins)
}

// TestLogout verifies logout revokes the refresh token and always succeeds.
func TestLogout(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	login, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)

	require.NoError(t, client.Logout(t.Context(), login.RefreshToken))
	require.NoError(t, client.Logout(t.Context(), login.RefreshToken))
	require.NoError(t, client.Logout(t.Context(), "never-issued"))

	_, err = client.Refresh(t.Context(), login.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
}

// TestSessions verifies a user can list and revoke their refresh tokens.
func TestSessions(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	other, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)
	session := adminSession(t, client)

	list, err := session.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Sessions, 2)

	require.NoError(t, session.RevokeSession(t.Context(), list.Sessions[1].ID))

	list, err = session.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)

	// Exactly one of the two refresh tokens survived.
	_, errOther := client.Refresh(t.Context(), other.RefreshToken)
	_, errOwn := client.Refresh(t.Context(), session.RefreshToken())
	require.True(t, (errOther == nil) != (errOwn == nil), "other=%v own=%v", errOther, errOwn)

	err = session.RevokeSession(t.Context(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, authsdk.ErrNotFound)
}
