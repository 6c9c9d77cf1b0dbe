package cryptox

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

func newTestPasswords(t *testing.T) *Passwords {
	t.Helper()
	p, err := NewPasswords(bcrypt.MinCost)
	require.NoError(t, err)
	return p
}

func encodeArgon2id(password string, salt []byte) string {
	const mem, iters, par = 19 * 1024, 2, 1
	hash := argon2.IDKey([]byte(password), salt, iters, mem, par, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		mem, iters, par,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func TestNewPasswords(t *testing.T) {
	p, err := NewPasswords(0)
	require.NoError(t, err)
	require.Equal(t, DefaultBcryptCost, p.Cost())

	_, err = NewPasswords(bcrypt.MaxCost + 1)
	require.Error(t, err)

	_, err = NewPasswords(1)
	require.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	p := newTestPasswords(t)

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"empty password", ""},
		{"unicode password", "mot de passé 🔒"},
		{"whitespace password", "   spaces   "},
		{"max length", strings.Repeat("a", 72)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := p.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$2a$"), "hash should be bcrypt")

			require.NoError(t, p.Verify(tt.password, hash))
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	p := newTestPasswords(t)

	hash1, err := p.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := p.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	require.NoError(t, p.Verify("samepassword", hash1))
	require.NoError(t, p.Verify("samepassword", hash2))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73), bcrypt.MinCost)
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	p := newTestPasswords(t)
	hash, err := p.Hash("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{"wrong-password", "Correct-Password", "correct-password ", "", "correct-passwor"} {
		t.Run(wrong, func(t *testing.T) {
			require.ErrorIs(t, p.Verify(wrong, hash), ErrPasswordMismatch)
		})
	}
}

func TestVerifyPassword_ExistingBcryptHash(t *testing.T) {
	// Hashes written by other bcrypt implementations use the $2b$ prefix.
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123!"), bcrypt.MinCost)
	require.NoError(t, err)
	converted := "$2b$" + string(hash)[4:]

	require.NoError(t, VerifyPassword("Secret123!", converted))
	require.ErrorIs(t, VerifyPassword("secret123!", converted), ErrPasswordMismatch)
}

func TestVerifyPassword_LegacyArgon2id(t *testing.T) {
	hash := encodeArgon2id("legacy-password", []byte("0123456789abcdef"))

	require.NoError(t, VerifyPassword("legacy-password", hash))
	require.ErrorIs(t, VerifyPassword("other-password", hash), ErrPasswordMismatch)
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	tests := []struct {
		name        string
		invalidHash string
	}{
		{"empty hash", ""},
		{"plain text", "Secret123!"},
		{"unknown algorithm", "$scrypt$ln=15,r=8,p=1$c2FsdA$aGFzaA"},
		{"truncated bcrypt", "$2a$10$short"},
		{"missing argon parts", "$argon2id$v=19$m=19456"},
		{"malformed argon parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid argon salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid argon hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong argon version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword("test-password", tt.invalidHash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	p, err := NewPasswords(6)
	require.NoError(t, err)

	current, err := p.Hash("Secret123!")
	require.NoError(t, err)
	weaker, err := HashPassword("Secret123!", bcrypt.MinCost)
	require.NoError(t, err)

	require.False(t, p.NeedsRehash(current))
	require.True(t, p.NeedsRehash(weaker))
	require.True(t, p.NeedsRehash(encodeArgon2id("Secret123!", []byte("0123456789abcdef"))))
	require.True(t, p.NeedsRehash("$2a$10$short"))
}

func TestVerifyDummy(t *testing.T) {
	p := newTestPasswords(t)
	require.NotPanics(t, func() {
		p.VerifyDummy("anything")
		p.VerifyDummy("")
	})
	require.NotEmpty(t, p.dummy)
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		password, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, password, 16)
		require.NotContains(t, seen, password, "duplicate password generated")
		seen[password] = true

		for _, c := range password {
			valid := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			require.True(t, valid, "password should only contain alphanumeric characters")
		}
	}
}
