package httpx_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTokens(t *testing.T, ttl time.Duration) *jwtx.HS256 {
	t.Helper()
	svc, err := jwtx.NewHS256([]byte(testSecret), "test", ttl)
	require.NoError(t, err)
	return svc
}

var allowAll = httpx.AccountCheckerFunc(func(context.Context, string) error { return nil })

// captureHandler records the principal seen by the route.
type captureHandler struct {
	called    bool
	principal jwtx.Principal
	ok        bool
}

func (c *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.called = true
	c.principal, c.ok = httpx.PrincipalFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func withBearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer    ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := httpx.BearerToken(req)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAuthnMiddleware(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	valid, err := tokens.Issue("user@example.com", []string{"FORMATEUR"})
	require.NoError(t, err)

	expired, err := newTokens(t, 0).Issue("user@example.com", []string{"FORMATEUR"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		accounts httpx.AccountChecker
		wantSub  string
	}{
		{"valid token", valid.Token, allowAll, "user@example.com"},
		{"no token", "", allowAll, ""},
		{"garbage token", "not-a-jwt", allowAll, ""},
		{"expired token", expired.Token, allowAll, ""},
		{"tampered token", valid.Token[:len(valid.Token)-2] + "xx", allowAll, ""},
		{"account disabled since issue", valid.Token, httpx.AccountCheckerFunc(func(context.Context, string) error {
			return fmt.Errorf("%w: account_disabled", httpx.ErrAccountRejected)
		}), ""},
		{"nil account checker", valid.Token, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture := &captureHandler{}
			h := httpx.AuthnMiddleware(tokens, tt.accounts)(capture)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, withBearer(tt.token))

			// The middleware itself never rejects.
			require.True(t, capture.called)
			require.Equal(t, http.StatusOK, rec.Code)

			if tt.wantSub == "" {
				require.False(t, capture.ok)
				return
			}
			require.True(t, capture.ok)
			require.Equal(t, tt.wantSub, capture.principal.Subject)
			require.Equal(t, []string{"FORMATEUR"}, capture.principal.Roles)
		})
	}
}

func TestAuthnMiddlewareRechecksSubject(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	tok, err := tokens.Issue("user@example.com", nil)
	require.NoError(t, err)

	var checked string
	accounts := httpx.AccountCheckerFunc(func(_ context.Context, subject string) error {
		checked = subject
		return nil
	})

	httpx.AuthnMiddleware(tokens, accounts)(&captureHandler{}).ServeHTTP(httptest.NewRecorder(), withBearer(tok.Token))
	require.Equal(t, "user@example.com", checked)
}

func TestAuthnMiddlewareCheckerOutage(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	tok, err := tokens.Issue("user@example.com", nil)
	require.NoError(t, err)

	down := httpx.AccountCheckerFunc(func(context.Context, string) error {
		return errors.New("lookup user: database is locked")
	})
	capture := &captureHandler{}
	h := httpx.Chain(capture, httpx.AuthnMiddleware(tokens, down), httpx.RequireAuthenticated())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withBearer(tok.Token))

	require.False(t, capture.called)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"server_error","error_description":"internal server error"}`, rec.Body.String())

	t.Run("anonymous requests skip the checker", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withBearer(""))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAuthenticated(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	tok, err := tokens.Issue("user@example.com", nil)
	require.NoError(t, err)

	expired, err := newTokens(t, 0).Issue("user@example.com", nil)
	require.NoError(t, err)

	h := httpx.Chain(&captureHandler{}, httpx.AuthnMiddleware(tokens, allowAll), httpx.RequireAuthenticated())

	t.Run("authenticated passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withBearer(tok.Token))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	for name, token := range map[string]string{"missing": "", "expired": expired.Token, "garbage": "a.b.c"} {
		t.Run(name+" token is 401", func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, withBearer(token))

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))
			require.JSONEq(t, `{"error":"unauthorized","error_description":"Authentication is required"}`, rec.Body.String())
		})
	}
}

func TestRequireAnyRole(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	admin, err := tokens.Issue("admin@example.com", []string{"ADMIN"})
	require.NoError(t, err)
	trainer, err := tokens.Issue("user@example.com", []string{"FORMATEUR"})
	require.NoError(t, err)

	h := httpx.Chain(&captureHandler{}, httpx.AuthnMiddleware(tokens, allowAll), httpx.RequireAnyRole("ADMIN"))

	t.Run("role present", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withBearer(admin.Token))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("role missing is 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withBearer(trainer.Token))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `scope="ROLE_ADMIN"`)
	})

	t.Run("anonymous is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withBearer(""))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	httpx.Chain(okHandler, mw("outer"), mw("inner")).ServeHTTP(httptest.NewRecorder(), requestFrom("1.1.1.1:1"))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"email":"a@b.c"}`, false},
		{"unknown field", `{"email":"a@b.c","extra":1}`, true},
		{"trailing data", `{"email":"a@b.c"}{"email":"x"}`, true},
		{"not json", `email=a`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst body
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			err := httpx.DecodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr {
				require.ErrorIs(t, err, httpx.ErrBadRequestBody)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "a@b.c", dst.Email)
		})
	}
}
