package httpx

import (
	"net/http"
	"strings"

	"github.com/afci/trajet/pkg/jwtx"
)

// RequireAuthenticated rejects requests without a principal with 401.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRole the caller must be authenticated and hold at least one of
// the given roles. Roles may be bare codes or prefixed scopes.
func RequireAnyRole(roles ...string) Middleware {
	scopes := jwtx.RoleScopes(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			for _, role := range scopes {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeInsufficientScope(w, scopes...)
		})
	}
}

// RFC 6750 challenge for a request that carried no usable credentials.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="trajet"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication is required")
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeInsufficientScope(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role")
}
