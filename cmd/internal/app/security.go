package app

import (
	"errors"
	"fmt"

	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"
)

// ValidateSecurityConfig enforces the security policy at startup.
//
// A configured secret is always checked. With RequireSecrets every secret
// must be present: the provider signing key, the legacy link key and the
// staff key of the live feed.
func ValidateSecurityConfig(cfg Config) error {
	if cfg.AuthJWTSecret != "" || cfg.RequireSecrets {
		if _, err := token.CheckSecret(cfg.AuthJWTSecret, token.MinSecretBytes); err != nil {
			return secretError("BENEFICIOS_AUTH_JWT_SECRET", err)
		}
	}

	if cfg.RequireSecrets {
		if _, err := token.CheckSecret(cfg.LegacyJWTSecret, token.MinSecretBytes); err != nil {
			return secretError("BENEFICIOS_LEGACY_JWT_SECRET", err)
		}
		if _, err := token.CheckSecret(cfg.FeedStaffKey, 16); err != nil {
			return secretError("BENEFICIOS_FEED_STAFF_KEY", err)
		}
	}
	return nil
}

func secretError(key string, err error) error {
	switch {
	case errors.Is(err, token.ErrSecretMissing):
		return fmt.Errorf("security policy: %s is missing", key)
	case errors.Is(err, token.ErrSecretTooShort):
		return fmt.Errorf("security policy: %s is too short", key)
	default:
		return fmt.Errorf("security policy: %s: %w", key, err)
	}
}

// authSecret returns the provider signing key. Without one (development) an
// ephemeral random key is generated, so no bearer credential verifies.
func authSecret(cfg Config, log Logger) ([]byte, error) {
	if cfg.AuthJWTSecret != "" {
		return token.CheckSecret(cfg.AuthJWTSecret, token.MinSecretBytes)
	}
	key, err := token.NewRandomHex(token.MinSecretBytes)
	if err != nil {
		return nil, err
	}
	log.Warn("auth.secret.ephemeral", "hint", "set BENEFICIOS_AUTH_JWT_SECRET to accept member sessions")
	return []byte(key), nil
}

// legacySigner returns nil when legacy links are disabled.
func legacySigner(cfg Config, log Logger) *token.LegacySigner {
	secret, err := token.CheckSecret(cfg.LegacyJWTSecret, 0)
	if err != nil {
		log.Info("legacy.disabled")
		return nil
	}
	if len(secret) < token.MinSecretBytes {
		log.Warn("legacy.secret.short", "bytes", len(secret))
	}
	return token.NewLegacySigner(secret)
}
