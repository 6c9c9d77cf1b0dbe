package app

import (
	"fmt"
	"log/slog"

	"github.com/afci/trajet/pkg/jwtx"
)

// InitTokenService builds the HS256 signer/verifier from the configured
// shared secret.
//
// The secret is used as raw bytes. Every instance sharing it accepts the
// others' tokens, and rotating it invalidates every outstanding access token
// (refresh tokens are opaque and unaffected).
func InitTokenService(cfg Config, logger *slog.Logger) (*jwtx.HS256, error) {
	tokens, err := jwtx.NewHS256([]byte(cfg.JWTSecret), cfg.Issuer, cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	logger.Info("token service ready",
		"algorithm", tokens.Alg(),
		"issuer", cfg.Issuer,
		"access_ttl", cfg.AccessTokenTTL,
		"refresh_ttl", cfg.RefreshTokenTTL,
	)
	return tokens, nil
}
