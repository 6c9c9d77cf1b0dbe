package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for new password hashes.
const DefaultBcryptCost = 12

// bcrypt silently ignores input past this many bytes.
const maxPasswordBytes = 72

var (
	ErrPasswordMismatch = errors.New("password does not match")
	ErrPasswordTooLong  = errors.New("password exceeds 72 bytes")
	ErrUnsupportedHash  = errors.New("unsupported password hash format")
)

// Passwords hashes new passwords with bcrypt and verifies stored hashes in
// either bcrypt or legacy Argon2id PHC form. Safe for concurrent use.
type Passwords struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswords returns a hasher using cost, or DefaultBcryptCost when cost is 0.
func NewPasswords(cost int) (*Passwords, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Passwords{cost: cost}, nil
}

// Cost reports the configured bcrypt work factor.
func (p *Passwords) Cost() int { return p.cost }

// Hash returns a bcrypt hash of password.
func (p *Passwords) Hash(password string) (string, error) {
	return HashPassword(password, p.cost)
}

// Verify compares password against encodedHash in constant time.
func (p *Passwords) Verify(password, encodedHash string) error {
	return VerifyPassword(password, encodedHash)
}

// NeedsRehash reports whether encodedHash should be replaced after the next
// successful verification: legacy formats and bcrypt below the configured cost.
func (p *Passwords) NeedsRehash(encodedHash string) bool {
	if !isBcrypt(encodedHash) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(encodedHash))
	return err != nil || cost < p.cost
}

// VerifyDummy burns the same work as a real bcrypt comparison. Callers use
// it when there is no stored hash to compare against so response timing
// does not reveal whether an account exists.
func (p *Passwords) VerifyDummy(password string) {
	p.dummyOnce.Do(func() {
		// Error ignored: a nil dummy just makes the comparison below fail fast.
		p.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(password))
}

// HashPassword generates a bcrypt hash at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a stored hash. It
// returns ErrPasswordMismatch on a wrong password and a different error when
// the stored hash itself is unusable.
func VerifyPassword(password, encodedHash string) error {
	switch {
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		if err != nil {
			return fmt.Errorf("invalid hash format: %w", err)
		}
		return nil
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return verifyArgon2id(password, encodedHash)
	default:
		return ErrUnsupportedHash
	}
}

func isBcrypt(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}

// GeneratePassword returns a random 16 character alphanumeric password.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
