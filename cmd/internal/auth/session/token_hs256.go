package session

import (
	"errors"
	"strings"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the minimal identity envelope propagated to handlers.
type AccessClaims struct {
	MemberID  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(memberID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

type hs256Manager struct {
	cfg Config
}

// NewHS256Manager builds an AccessTokenManager for the provider's HS256 tokens.
func NewHS256Manager(cfg Config) (AccessTokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	return &hs256Manager{cfg: cfg}, nil
}

type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

func (m *hs256Manager) Issue(memberID string, now time.Time) (string, time.Time, error) {
	id, err := identity.ParseMemberID(memberID)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	exp := now.Add(m.cfg.AccessTokenTTL)

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: "authenticated",
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *hs256Manager) Verify(raw string, now time.Time) (AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AccessClaims{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.cfg.ClockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if m.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience))
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}

	var claims accessClaims
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	})
	if err != nil {
		return AccessClaims{}, errors.Join(ErrInvalidToken, err)
	}

	// Anonymous provider sessions carry no member subject.
	memberID, err := identity.ParseMemberID(claims.Subject)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{MemberID: memberID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
