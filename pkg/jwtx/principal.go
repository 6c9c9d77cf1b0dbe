package jwtx

import "slices"

// Principal is the authenticated identity resolved from a verified token.
// It only lives for the duration of a request.
type Principal struct {
	Subject string
	Roles   []string
}

// NewPrincipal copies roles so the principal never aliases caller memory.
func NewPrincipal(subject string, roles []string) Principal {
	return Principal{Subject: subject, Roles: slices.Clone(roles)}
}

// HasRole accepts either a bare code or a prefixed scope.
func (p Principal) HasRole(role string) bool {
	want := RoleFromScope(role)
	for _, r := range p.Roles {
		if RoleFromScope(r) == want {
			return true
		}
	}
	return false
}

// Authorities returns the principal's roles as prefixed authorization scopes.
func (p Principal) Authorities() []string {
	return RoleScopes(p.Roles)
}
