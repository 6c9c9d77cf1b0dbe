package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants, overridable per deployment.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims. The subject is the account email,
// roles carries bare role codes ("ADMIN", "FORMATEUR").
type Claims struct {
	jwt.RegisteredClaims

	// Role codes held by the subject at issue time.
	Roles []string `json:"roles,omitempty"`
}

// NewAccessClaims builds the claims for one access token. Timestamps are
// truncated to the second so exp is always exactly iat + ttl once encoded.
func NewAccessClaims(subject string, roles []string, ttl time.Duration, issuer string, now time.Time) Claims {
	iat := now.UTC().Truncate(time.Second)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
		Roles: roles,
	}
}

// Principal returns the identity carried by the claims.
func (c Claims) Principal() Principal {
	return NewPrincipal(c.Subject, c.Roles)
}
