package httpx

import (
	"context"

	"github.com/afci/trajet/pkg/jwtx"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// ContextWithPrincipal attaches an authenticated principal to ctx.
func ContextWithPrincipal(ctx context.Context, p jwtx.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal set by AuthnMiddleware. The
// boolean is false for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (jwtx.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(jwtx.Principal)
	if !ok || p.Subject == "" {
		return jwtx.Principal{}, false
	}
	return p, true
}
