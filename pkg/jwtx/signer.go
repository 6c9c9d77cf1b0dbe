package jwtx

import "time"

// Signer is our interface for anything that can mint access tokens.
type Signer interface {
	Alg() string
	Issue(subject string, roles []string) (AccessToken, error)
}

// AccessToken is a freshly signed token plus the values encoded in it.
type AccessToken struct {
	Token     string
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL is the lifetime encoded in the token.
func (t AccessToken) TTL() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}
