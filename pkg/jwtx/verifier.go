package jwtx

import "errors"

// Verifier validates a JWT and gives you back the principal if it's legit.
type Verifier interface {
	Verify(token string) (Principal, error)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(token string) (Principal, error)

func (f VerifierFunc) Verify(token string) (Principal, error) { return f(token) }

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")

	ErrKeyTooShort = errors.New("jwtx: signing key shorter than 32 bytes")
	ErrInvalidTTL  = errors.New("jwtx: negative token ttl")
)

// Classify reduces any verification error to one of the three token errors.
// Unknown errors count as malformed.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidSig):
		return ErrInvalidSig
	case errors.Is(err, ErrExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
