package session

import (
	"strings"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"
)

// Config controls access-token verification.
type Config struct {
	// Secret is the provider's HS256 signing key.
	Secret []byte

	// Audience, when set, must appear in the "aud" claim.
	Audience string

	// Issuer, when set, must equal the "iss" claim.
	Issuer string

	// AccessTokenTTL is used by Issue only.
	AccessTokenTTL time.Duration

	// ClockSkew is tolerated on exp/nbf/iat.
	ClockSkew time.Duration
}

// DefaultConfig returns the provider's defaults without a secret.
func DefaultConfig() Config {
	return Config{
		Audience:       "authenticated",
		AccessTokenTTL: time.Hour,
		ClockSkew:      30 * time.Second,
	}
}

// Validate returns ErrConfig when the configuration cannot verify tokens.
func (c Config) Validate() error {
	if _, err := token.CheckSecret(string(c.Secret), token.MinSecretBytes); err != nil {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	if strings.TrimSpace(c.Audience) != c.Audience || strings.TrimSpace(c.Issuer) != c.Issuer {
		return ErrConfig
	}
	return nil
}
