package qrtoken

import (
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
)

// Kind tags which credential format produced a Result.
type Kind string

const (
	KindDBToken Kind = "db_token"
	KindLegacy  Kind = "jwt"
)

// Reason is the fixed vocabulary explaining an invalid Result.
type Reason string

const (
	ReasonExpired            Reason = "expired"
	ReasonRevoked            Reason = "revoked"
	ReasonAlreadyUsed        Reason = "already_used"
	ReasonMembershipInactive Reason = "membership_inactive_or_expired"
	ReasonInvalidOrMalformed Reason = "invalid_or_malformed"
	ReasonMissingSub         Reason = "missing_sub"
)

// Result is the outcome of one verification.
//
// Kind is empty only for ReasonInvalidOrMalformed, when neither format matched.
// Valid and Reason are exclusive: a valid Result has no Reason.
type Result struct {
	Kind       Kind
	Valid      bool
	Reason     Reason
	MemberID   string
	ExpiresAt  *time.Time
	Member     *identity.Profile
	Membership membership.Snapshot
}

// Matched reports whether the credential was recognized by either format.
func (r Result) Matched() bool { return r.Reason != ReasonInvalidOrMalformed }

// RequestMeta identifies who asked, for the audit log.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// storedReason picks the reason for an invalid stored token.
// Priority: expired, revoked, already used, then membership.
func storedReason(t Token, now time.Time, membershipActive bool) Reason {
	switch {
	case t.Expired(now):
		return ReasonExpired
	case t.Revoked:
		return ReasonRevoked
	case t.Used():
		return ReasonAlreadyUsed
	case !membershipActive:
		return ReasonMembershipInactive
	default:
		return ""
	}
}
