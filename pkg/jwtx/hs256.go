package jwtx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the smallest HMAC secret accepted, in bytes.
const MinKeyLength = 32

// segmentEncoding matches the parser's strict decoding so a segment that we
// accept here is never rejected later for encoding reasons.
var segmentEncoding = base64.RawURLEncoding.Strict()

// HS256 signs and verifies access tokens with a single shared secret. It is
// immutable after construction and safe for concurrent use.
type HS256 struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// HS256Option tweaks an HS256 at construction.
type HS256Option func(*HS256)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) HS256Option {
	return func(h *HS256) { h.now = now }
}

// NewHS256 builds the token service. The secret is used as raw bytes and is
// never decoded, so any byte sequence of at least MinKeyLength works.
func NewHS256(secret []byte, issuer string, ttl time.Duration, opts ...HS256Option) (*HS256, error) {
	if len(secret) < MinKeyLength {
		return nil, fmt.Errorf("%w: got %d", ErrKeyTooShort, len(secret))
	}
	if ttl < 0 {
		return nil, ErrInvalidTTL
	}

	h := &HS256{
		key:    append([]byte(nil), secret...),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(h.now),
	)
	return h, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

// TTL is the configured access-token lifetime.
func (h *HS256) TTL() time.Duration { return h.ttl }

// Issue signs a token for subject carrying the given role codes.
func (h *HS256) Issue(subject string, roles []string) (AccessToken, error) {
	if subject == "" {
		return AccessToken{}, errors.New("jwtx: empty subject")
	}

	claims := NewAccessClaims(subject, roles, h.ttl, h.issuer, h.now())
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.key)
	if err != nil {
		return AccessToken{}, fmt.Errorf("jwtx: sign: %w", err)
	}

	return AccessToken{
		Token:     signed,
		Subject:   subject,
		Roles:     append([]string(nil), roles...),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks structure, then signature, then expiry. The returned error
// always wraps exactly one of ErrMalformed, ErrInvalidSig or ErrExpired.
func (h *HS256) Verify(tokenStr string) (Principal, error) {
	if err := checkStructure(tokenStr); err != nil {
		return Principal{}, err
	}

	claims := &Claims{}
	_, err := h.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return h.key, nil
	})
	if err != nil {
		return Principal{}, classifyParseError(err)
	}

	return claims.Principal(), nil
}

// checkStructure decodes the header and payload on their own so that any
// failure there is reported as malformed, whatever the signature holds.
func checkStructure(tokenStr string) error {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(parts))
	}

	var header map[string]any
	if err := decodeSegment(parts[0], &header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}

	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	if claims.Subject == "" {
		return fmt.Errorf("%w: missing sub", ErrMalformed)
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp", ErrMalformed)
	}
	return nil
}

func decodeSegment(seg string, dst any) error {
	raw, err := segmentEncoding.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// classifyParseError runs after checkStructure, so a malformed report from
// the parser can only come from the signature segment.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
