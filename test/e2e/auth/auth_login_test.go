//go:build e2e

package auth_test

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/afci/trajet/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLoginSuccess verifies the bootstrapped admin can log in and reach the
// admin-only route.
func TestLoginSuccess(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	resp, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)
	assertTokenResponse(t, resp)
	require.Equal(t, adminEmail, resp.SubjectID)
	require.Equal(t, []string{"ADMIN"}, resp.Roles)
	require.Equal(t, []string{"ROLE_ADMIN"}, resp.Authorities)

	session := adminSession(t, client)
	require.True(t, session.HasRole("ADMIN"))

	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, adminEmail, me.Email)

	ping, err := session.AdminPing(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ping.Status)
	require.Equal(t, adminEmail, ping.Subject)
	require.Equal(t, []string{"ROLE_ADMIN"}, ping.Authorities)

	roles, err := session.ListRoles(t.Context())
	require.NoError(t, err)
	require.Len(t, roles, 3)
}

// TestLoginOpacity verifies an unknown email and a wrong password cannot be
// told apart from the response.
func TestLoginOpacity(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	_, unknownErr := client.Login(t.Context(), "ghost@example.com", adminPassword)
	_, wrongErr := client.Login(t.Context(), adminEmail, "wrong-password")

	require.ErrorIs(t, unknownErr, authsdk.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, authsdk.ErrInvalidCredentials)

	var a, b *authsdk.APIError
	require.True(t, errors.As(unknownErr, &a))
	require.True(t, errors.As(wrongErr, &b))
	require.Equal(t, *a, *b)
}

// TestLockout verifies repeated failures lock the account even for the
// correct password.
func TestLockout(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	for range 5 {
		_, err := client.Login(t.Context(), adminEmail, "wrong-password")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
	}

	_, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.ErrorIs(t, err, authsdk.ErrAccountLocked)
}

// TestProtectedRoutesFailClosed verifies missing or bogus credentials get 401,
// including on routes that do not exist.
func TestProtectedRoutesFailClosed(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	tests := []struct {
		name  string
		path  string
		token string
	}{
		{"me without token", "/api/auth/me", ""},
		{"me with garbage token", "/api/auth/me", "not.a.jwt"},
		{"admin without token", "/api/admin/ping", ""},
		{"unknown route", "/api/does-not-exist", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, baseURL+tt.path, nil)
			require.NoError(t, err)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
		})
	}
}
