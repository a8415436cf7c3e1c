package qrtoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"
)

// Memberships is the membership view the issuer and verifier depend on.
// *membership.Service satisfies it.
type Memberships interface {
	Current(ctx context.Context, memberID string, now time.Time) (membership.Snapshot, error)
}

// Issued is the result of an issuance.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
	Reused    bool
}

// Issuer mints QR tokens for authenticated members.
type Issuer struct {
	tokens      Store
	memberships Memberships
	log         *slog.Logger

	ttl         time.Duration
	reuseWindow time.Duration
	newValue    func() (string, error)
}

// IssuerOption configures the Issuer.
type IssuerOption func(*Issuer) error

// WithTTL sets the token lifetime.
func WithTTL(d time.Duration) IssuerOption {
	return func(i *Issuer) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		i.ttl = d
		return nil
	}
}

// WithReuseWindow sets how long a freshly issued token is handed out again.
func WithReuseWindow(d time.Duration) IssuerOption {
	return func(i *Issuer) error {
		if d < 0 {
			return ErrInvalidInput
		}
		i.reuseWindow = d
		return nil
	}
}

// WithIssuerLogger sets the logger.
func WithIssuerLogger(log *slog.Logger) IssuerOption {
	return func(i *Issuer) error {
		if log != nil {
			i.log = log
		}
		return nil
	}
}

// NewIssuer constructs an Issuer with the default TTL and reuse window.
func NewIssuer(tokens Store, memberships Memberships, opts ...IssuerOption) (*Issuer, error) {
	if tokens == nil || memberships == nil {
		return nil, ErrInvalidInput
	}
	i := &Issuer{
		tokens:      tokens,
		memberships: memberships,
		log:         slog.Default(),
		ttl:         DefaultTTL,
		reuseWindow: DefaultReuseWindow,
		newValue:    token.NewQRTokenValue,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	if i.reuseWindow > i.ttl {
		return nil, fmt.Errorf("%w: reuse window %s exceeds ttl %s", ErrInvalidInput, i.reuseWindow, i.ttl)
	}
	return i, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a usable token for memberID.
//
// The caller has already authenticated memberID. Issuance is refused with
// ErrMembershipInactive unless the member's membership is active at now.
// A token created within the reuse window is returned unchanged; otherwise a
// new one is stored. Two concurrent calls may both create a token; the extra
// live token is harmless and no locking is done.
func (i *Issuer) Issue(ctx context.Context, memberID string, now time.Time) (Issued, error) {
	if i == nil {
		return Issued{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Issued{}, err
	}
	id, err := identity.ParseMemberID(memberID)
	if err != nil {
		return Issued{}, errors.Join(ErrInvalidInput, err)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	snap, err := i.memberships.Current(ctx, id, now)
	if err != nil {
		return Issued{}, err
	}
	if !snap.Active {
		return Issued{}, ErrMembershipInactive
	}

	existing, err := i.tokens.FindReusable(ctx, id, now, now.Add(-i.reuseWindow))
	switch {
	case err == nil:
		i.log.Debug("qr.issue.reuse", "member_id", id, "expires_at", existing.ExpiresAt)
		return Issued{Token: existing.Value, ExpiresAt: existing.ExpiresAt, TTL: i.ttl, Reused: true}, nil
	case !errors.Is(err, ErrNotFound):
		return Issued{}, err
	}

	value, err := i.newValue()
	if err != nil {
		return Issued{}, err
	}
	created, err := i.tokens.Create(ctx, Token{
		Value:     value,
		MemberID:  id,
		CreatedAt: now,
		ExpiresAt: now.Add(i.ttl),
	})
	if err != nil {
		return Issued{}, err
	}

	i.log.Debug("qr.issue.new", "member_id", id, "expires_at", created.ExpiresAt)
	return Issued{Token: created.Value, ExpiresAt: created.ExpiresAt, TTL: i.ttl}, nil
}
