package qrtoken

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/audit"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"
)

// LegacyParser verifies legacy signed tokens. *token.LegacySigner satisfies it.
type LegacyParser interface {
	Parse(raw string, now time.Time) (token.LegacyClaims, error)
}

// Verifier answers "is this credential valid right now".
type Verifier struct {
	tokens      Store
	memberships Memberships
	directory   identity.Directory
	legacy      LegacyParser
	audit       audit.Recorder
	log         *slog.Logger
}

// VerifierOption configures the Verifier.
type VerifierOption func(*Verifier)

// WithLegacyParser enables the legacy signed-token path.
func WithLegacyParser(p LegacyParser) VerifierOption {
	return func(v *Verifier) { v.legacy = p }
}

// WithAuditRecorder sets where verification events go. Wrap slow recorders
// in audit.Async.
func WithAuditRecorder(r audit.Recorder) VerifierOption {
	return func(v *Verifier) {
		if r != nil {
			v.audit = r
		}
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(log *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		if log != nil {
			v.log = log
		}
	}
}

// NewVerifier constructs a Verifier.
func NewVerifier(tokens Store, memberships Memberships, directory identity.Directory, opts ...VerifierOption) (*Verifier, error) {
	if tokens == nil || memberships == nil || directory == nil {
		return nil, ErrInvalidInput
	}
	v := &Verifier{
		tokens:      tokens,
		memberships: memberships,
		directory:   directory,
		audit:       audit.Nop{},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify resolves raw against the stored tokens first and the legacy format
// second. A stored token that is valid and belongs to an active member is
// consumed; a second Verify of the same value reports ReasonAlreadyUsed.
//
// Errors are reserved for infrastructure failures; every answerable outcome
// is a Result. An empty raw returns ErrInvalidInput.
func (v *Verifier) Verify(ctx context.Context, raw string, now time.Time, meta RequestMeta) (Result, error) {
	if v == nil {
		return Result{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stored, err := v.tokens.Get(ctx, raw)
	switch {
	case err == nil:
		return v.verifyStored(ctx, stored, now, meta)
	case errors.Is(err, ErrNotFound):
	case errors.Is(err, ErrNotProvisioned):
		v.log.Warn("verify.qr_tokens.missing", "err", err)
	default:
		return Result{}, err
	}

	if v.legacy != nil {
		res, ok, err := v.verifyLegacy(ctx, raw, now, meta)
		if err != nil || ok {
			return res, err
		}
	}

	return Result{Reason: ReasonInvalidOrMalformed}, nil
}

func (v *Verifier) verifyStored(ctx context.Context, t Token, now time.Time, meta RequestMeta) (Result, error) {
	profile, snap, err := v.resolve(ctx, t.MemberID, now)
	if err != nil {
		return Result{}, err
	}

	expiresAt := t.ExpiresAt
	res := Result{
		Kind:       KindDBToken,
		MemberID:   t.MemberID,
		ExpiresAt:  &expiresAt,
		Member:     profile,
		Membership: snap,
	}

	if t.Usable(now) && snap.Active {
		current, err := v.tokens.Consume(ctx, t.Value, now)
		switch {
		case err == nil:
			res.Valid = true
		case errors.Is(err, ErrNotActive):
			// Lost a race with a concurrent scan (or a revoke); report from the fresh row.
			t = current
		default:
			return Result{}, err
		}
	}
	if !res.Valid {
		res.Reason = storedReason(t, now, snap.Active)
	}

	v.record(ctx, res, meta, now)
	return res, nil
}

// verifyLegacy reports ok=false when raw is not a verifiable legacy token,
// letting Verify fall through to invalid_or_malformed.
func (v *Verifier) verifyLegacy(ctx context.Context, raw string, now time.Time, meta RequestMeta) (Result, bool, error) {
	claims, err := v.legacy.Parse(raw, now)
	switch {
	case errors.Is(err, token.ErrMissingSubject):
		res := Result{Kind: KindLegacy, Reason: ReasonMissingSub}
		v.record(ctx, res, meta, now)
		return res, true, nil
	case err != nil:
		return Result{}, false, nil
	}

	memberID, err := identity.ParseMemberID(claims.Subject)
	if err != nil {
		// No member can own this subject, so it resolves to no membership.
		v.log.Info("verify.legacy.bad_subject")
		res := Result{
			Kind:       KindLegacy,
			Reason:     ReasonMembershipInactive,
			Membership: membership.NoMembership(),
		}
		if !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			res.ExpiresAt = &exp
		}
		v.record(ctx, res, meta, now)
		return res, true, nil
	}

	profile, snap, err := v.resolve(ctx, memberID, now)
	if err != nil {
		return Result{}, true, err
	}

	res := Result{
		Kind:       KindLegacy,
		Valid:      snap.Active,
		MemberID:   memberID,
		Member:     profile,
		Membership: snap,
	}
	if !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt
		res.ExpiresAt = &exp
	}
	if !res.Valid {
		res.Reason = ReasonMembershipInactive
	}

	v.record(ctx, res, meta, now)
	return res, true, nil
}

// resolve loads the member profile and membership snapshot. Missing profiles
// and missing tables degrade to "no profile" and "no membership".
func (v *Verifier) resolve(ctx context.Context, memberID string, now time.Time) (*identity.Profile, membership.Snapshot, error) {
	var profile *identity.Profile
	p, err := v.directory.GetProfile(ctx, memberID)
	switch {
	case err == nil:
		profile = &p
	case identity.IsNotFound(err):
	case identity.IsNotProvisioned(err):
		v.log.Warn("verify.profiles.missing", "err", err)
	default:
		return nil, membership.Snapshot{}, err
	}

	snap, err := v.memberships.Current(ctx, memberID, now)
	switch {
	case err == nil:
	case errors.Is(err, membership.ErrNotProvisioned):
		v.log.Warn("verify.memberships.missing", "err", err)
	default:
		return nil, membership.Snapshot{}, err
	}
	return profile, snap, nil
}

// record emits the audit event. Failures are logged and dropped.
func (v *Verifier) record(ctx context.Context, res Result, meta RequestMeta, now time.Time) {
	ev := audit.Event{
		Result:    string(res.Reason),
		Kind:      string(res.Kind),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
	if res.Valid {
		ev.Result = audit.ResultValid
	}
	if res.MemberID != "" {
		id := res.MemberID
		ev.MemberID = &id
	}
	if err := v.audit.Record(ctx, ev); err != nil {
		v.log.Warn("verify.audit.fail", "kind", ev.Kind, "result", ev.Result, "err", err)
	}
}
