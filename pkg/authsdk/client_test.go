package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeServer answers the auth endpoints with canned tokens. Each refresh
// hands out a new generation of tokens.
type fakeServer struct {
	t          *testing.T
	generation atomic.Int32
	expiresIn  int
}

func (f *fakeServer) tokens() TokenResponse {
	gen := f.generation.Load()
	return TokenResponse{
		AccessToken:  "access-" + string(rune('0'+gen)),
		TokenType:    "Bearer",
		ExpiresIn:    f.expiresIn,
		RefreshToken: "refresh-" + string(rune('0'+gen)),
		SubjectID:    "user@example.com",
		Roles:        []string{"FORMATEUR"},
		Authorities:  []string{"ROLE_FORMATEUR"},
	}
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "Secret123!" {
			ErrInvalidCredentials.WriteError(w)
			return
		}
		_ = json.NewEncoder(w).Encode(f.tokens())
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		if req.RefreshToken != f.tokens().RefreshToken {
			ErrInvalidGrant.WriteError(w)
			return
		}
		f.generation.Add(1)
		_ = json.NewEncoder(w).Encode(f.tokens())
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.tokens().AccessToken {
			ErrUnauthorized.WriteError(w)
			return
		}
		_ = json.NewEncoder(w).Encode(MeResponse{SubjectID: "user@example.com", Roles: []string{"FORMATEUR"}})
	})
	mux.HandleFunc("DELETE /api/auth/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "known" {
			ErrNotFound.WriteError(w)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newFake(t *testing.T, expiresIn int) (*fakeServer, *SDKClient) {
	t.Helper()
	f := &fakeServer{t: t, expiresIn: expiresIn}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, NewSDKClient(srv.URL + "/")
}

func TestAuthenticateWithPassword(t *testing.T) {
	ctx := context.Background()
	_, client := newFake(t, 900)

	t.Run("wrong password", func(t *testing.T) {
		_, err := client.AuthenticateWithPassword(ctx, "user@example.com", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "invalid email or password", apiErr.Description)
	})

	t.Run("session", func(t *testing.T) {
		session, err := client.AuthenticateWithPassword(ctx, "user@example.com", "Secret123!")
		require.NoError(t, err)
		require.Equal(t, "access-0", session.AccessToken())
		require.True(t, session.HasRole("FORMATEUR"))
		require.False(t, session.HasRole("ADMIN"))

		me, err := session.Me(ctx)
		require.NoError(t, err)
		require.Equal(t, "user@example.com", me.SubjectID)

		require.NoError(t, session.RevokeSession(ctx, "known"))
		require.ErrorIs(t, session.RevokeSession(ctx, "other"), ErrNotFound)

		require.NoError(t, session.Logout(ctx))
		require.Error(t, session.Logout(ctx), "refresh token is gone after logout")
	})
}

func TestSessionRefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	// An expires_in inside the refresh buffer makes every call refresh first.
	f, client := newFake(t, 1)

	session, err := client.AuthenticateWithPassword(ctx, "user@example.com", "Secret123!")
	require.NoError(t, err)

	_, err = session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), f.generation.Load())
	require.Equal(t, "access-1", session.AccessToken())
	require.Equal(t, "refresh-1", session.RefreshToken())
}

func TestRefreshRejected(t *testing.T) {
	_, client := newFake(t, 900)

	_, err := client.AuthenticateWithRefreshToken(context.Background(), "stale")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestParseErrorResponseFallback(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadGateway}
	err := parseErrorResponse(resp, []byte("<html>bad gateway</html>"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)

	require.NoError(t, parseErrorResponse(&http.Response{StatusCode: http.StatusOK}, nil))
}
