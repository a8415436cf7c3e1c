package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLegacyTTL matches the lifetime the old generator used.
const DefaultLegacyTTL = 5 * time.Minute

// LegacyClaims is the verified content of a legacy signed token.
type LegacyClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// LegacySigner mints and verifies legacy HS256 tokens with a shared secret.
type LegacySigner struct {
	secret []byte
}

// NewLegacySigner builds a signer. An empty secret disables the legacy path:
// Parse then rejects everything.
func NewLegacySigner(secret []byte) *LegacySigner {
	return &LegacySigner{secret: secret}
}

// Enabled reports whether a secret is configured.
func (s *LegacySigner) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Mint signs a token for subject that expires at now+ttl.
func (s *LegacySigner) Mint(subject string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrSecretMissing
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if ttl <= 0 {
		ttl = DefaultLegacyTTL
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	exp := now.Add(ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies signature and expiry at now and returns the claims.
// Only HS256 is accepted and an exp claim is required.
func (s *LegacySigner) Parse(raw string, now time.Time) (LegacyClaims, error) {
	if !s.Enabled() {
		return LegacyClaims{}, ErrInvalidToken
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return LegacyClaims{}, ErrInvalidToken
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var claims jwt.RegisteredClaims
	_, err := p.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return LegacyClaims{}, errors.Join(ErrInvalidToken, err)
	}

	out := LegacyClaims{Subject: strings.TrimSpace(claims.Subject)}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if out.Subject == "" {
		return out, ErrMissingSubject
	}
	return out, nil
}
