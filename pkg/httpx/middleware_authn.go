package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/afci/trajet/pkg/jwtx"
	"github.com/afci/trajet/pkg/slogx"
)

// ErrAccountRejected marks an AccountChecker error as an authentication
// outcome. Any other checker error is treated as an infrastructure failure.
var ErrAccountRejected = errors.New("account rejected")

// AccountChecker confirms that the account behind a token subject may still
// act: it exists, is active and is not locked. A refusal must wrap
// ErrAccountRejected.
type AccountChecker interface {
	CheckAccount(ctx context.Context, subject string) error
}

// AccountCheckerFunc adapts a function to AccountChecker.
type AccountCheckerFunc func(ctx context.Context, subject string) error

func (f AccountCheckerFunc) CheckAccount(ctx context.Context, subject string) error {
	return f(ctx, subject)
}

// AuthnMiddleware resolves the bearer token, if any, into a principal on the
// request context. A missing or invalid token, or an account that fails the
// recheck, just leaves the request unauthenticated and route policy decides
// what happens next. A nil checker means no request is ever authenticated.
//
// If the checker fails for any other reason the request stops here with 500.
func AuthnMiddleware(v jwtx.Verifier, accounts AccountChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			p, err := v.Verify(raw)
			if err != nil {
				log.Debug("bearer token rejected", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			if accounts == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := accounts.CheckAccount(ctx, p.Subject); err != nil {
				if errors.Is(err, ErrAccountRejected) {
					log.Info("account recheck failed", "sub", p.Subject, "err", err)
					next.ServeHTTP(w, r)
					return
				}
				log.Error("account recheck unavailable", "sub", p.Subject, "err", err)
				WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
				return
			}

			ctx = ContextWithPrincipal(ctx, p)
			ctx = slogx.With(ctx, "sub", p.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
