package jwtx

import "strings"

// RolePrefix marks a role code once it is exposed as an authorization scope.
const RolePrefix = "ROLE_"

// RoleScope maps a stored role code to its authorization scope.
//
//	"admin"      -> "ROLE_ADMIN"
//	" FORMATEUR" -> "ROLE_FORMATEUR"
//	"ROLE_ADMIN" -> "ROLE_ADMIN"
//	""           -> ""
func RoleScope(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}
	if strings.HasPrefix(c, RolePrefix) {
		return c
	}
	return RolePrefix + c
}

// RoleScopes maps every code, skipping blanks and duplicates while keeping order.
func RoleScopes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		s := RoleScope(code)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// RoleFromScope is the inverse of RoleScope and returns the bare code.
func RoleFromScope(scope string) string {
	return strings.TrimPrefix(RoleScope(scope), RolePrefix)
}
