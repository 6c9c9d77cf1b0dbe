package jwtx_test

import (
	"testing"

	"github.com/afci/trajet/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRoleScope(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"ADMIN", "ROLE_ADMIN"},
		{"FORMATEUR", "ROLE_FORMATEUR"},
		{"RESPONSABLE_ACCESSIBILITE", "ROLE_RESPONSABLE_ACCESSIBILITE"},
		{"admin", "ROLE_ADMIN"},
		{"  formateur ", "ROLE_FORMATEUR"},
		{"ROLE_ADMIN", "ROLE_ADMIN"},
		{"role_admin", "ROLE_ADMIN"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			require.Equal(t, tt.want, jwtx.RoleScope(tt.code))
		})
	}
}

func TestRoleScopes(t *testing.T) {
	got := jwtx.RoleScopes([]string{"FORMATEUR", "admin", "", "ROLE_ADMIN", "FORMATEUR"})
	require.Equal(t, []string{"ROLE_FORMATEUR", "ROLE_ADMIN"}, got)

	require.Empty(t, jwtx.RoleScopes(nil))
}

func TestRoleFromScope(t *testing.T) {
	require.Equal(t, "ADMIN", jwtx.RoleFromScope("ROLE_ADMIN"))
	require.Equal(t, "ADMIN", jwtx.RoleFromScope("admin"))
	require.Equal(t, "", jwtx.RoleFromScope(""))
}

func TestPrincipal(t *testing.T) {
	roles := []string{"FORMATEUR"}
	p := jwtx.NewPrincipal("user@example.com", roles)

	roles[0] = "ADMIN"
	require.Equal(t, []string{"FORMATEUR"}, p.Roles)
	require.Equal(t, []string{"ROLE_FORMATEUR"}, p.Authorities())
	require.True(t, p.HasRole("formateur"))
	require.False(t, p.HasRole("ADMIN"))
}
