package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"
	"github.com/fFrancko/beneficios-mvp-web/cmd/identity/ids"
)

// DefaultRenewalPeriod is the coverage added by one successful payment.
const DefaultRenewalPeriod = 30 * 24 * time.Hour

// Service answers membership questions and applies renewals.
type Service struct {
	store         Store
	renewalPeriod time.Duration
}

// Option configures the Service.
type Option func(*Service) error

// WithRenewalPeriod overrides DefaultRenewalPeriod.
func WithRenewalPeriod(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		s.renewalPeriod = d
		return nil
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{store: store, renewalPeriod: DefaultRenewalPeriod}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Current returns the live snapshot of memberID's authoritative record at now.
//
// A member without a record gets NoMembership and a nil error. When the table
// is missing, NoMembership is returned together with ErrNotProvisioned so the
// caller can choose between degrading and failing.
func (s *Service) Current(ctx context.Context, memberID string, now time.Time) (Snapshot, error) {
	if s == nil || s.store == nil {
		return Snapshot{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rec, err := s.store.Authoritative(ctx, memberID)
	switch {
	case err == nil:
		return SnapshotOf(rec, now), nil
	case errors.Is(err, ErrNotFound):
		return NoMembership(), nil
	case errors.Is(err, ErrNotProvisioned):
		return NoMembership(), err
	default:
		return Snapshot{}, err
	}
}

// RenewInput describes one renewal or manual grant.
type RenewInput struct {
	MemberID    string
	Period      time.Duration
	Provider    string
	RenewalMode string
	Now         time.Time
}

// Renew extends memberID's coverage by Period (default DefaultRenewalPeriod),
// flips the status to active and stamps last_payment_at. The first renewal
// creates the record. Coverage is prorated forward; see ExtendValidUntil.
func (s *Service) Renew(ctx context.Context, in RenewInput) (Record, error) {
	if s == nil || s.store == nil {
		return Record{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	memberID, err := identity.ParseMemberID(in.MemberID)
	if err != nil {
		return Record{}, errors.Join(ErrInvalidInput, err)
	}
	period := in.Period
	if period == 0 {
		period = s.renewalPeriod
	}
	if period < 0 {
		return Record{}, ErrInvalidInput
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	provider := strings.TrimSpace(in.Provider)
	if provider == "" {
		provider = defaultProvider
	}
	mode := strings.TrimSpace(in.RenewalMode)
	if mode == "" {
		mode = RenewalManual
	}

	return s.store.Update(ctx, memberID, func(current *Record) (Record, error) {
		var next Record
		if current != nil {
			next = *current
		} else {
			id, err := ids.NewULID(now)
			if err != nil {
				return Record{}, err
			}
			next = Record{ID: id, MemberID: memberID, CreatedAt: now}
		}

		validUntil := ExtendValidUntil(next.ValidUntil, period, now)
		paidAt := now

		next.Status = StatusActive
		next.ValidUntil = &validUntil
		next.LastPaymentAt = &paidAt
		next.Provider = provider
		next.RenewalMode = mode
		next.UpdatedAt = now
		return next, nil
	})
}
