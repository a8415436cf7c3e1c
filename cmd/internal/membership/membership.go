// Package membership owns the membership record: the authoritative-record query,
// the single definition of "currently active", and prorated renewals.
package membership

import (
	"strings"
	"time"
)

// Status is the subscription state reported by the payment side.
type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusTrialing Status = "trialing"
	StatusUnknown  Status = "unknown"
)

// ParseStatus maps stored text onto Status. Unrecognized values become StatusUnknown.
func ParseStatus(s string) Status {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusActive, StatusPastDue, StatusCanceled, StatusTrialing:
		return st
	default:
		return StatusUnknown
	}
}

// Provider and renewal-mode tags. They are informational only.
const (
	ProviderManual  = "manual"
	RenewalManual   = "manual"
	RenewalGateway  = "gateway"
	defaultProvider = ProviderManual
)

// Record is one row of a member's membership history.
type Record struct {
	ID            string
	MemberID      string
	Status        Status
	ValidUntil    *time.Time
	LastPaymentAt *time.Time
	Provider      string
	RenewalMode   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive is the only definition of an active membership: an active or
// trialing status with a coverage window that has not lapsed at now.
// A nil validUntil is never active.
func IsActive(status Status, validUntil *time.Time, now time.Time) bool {
	if status != StatusActive && status != StatusTrialing {
		return false
	}
	if validUntil == nil {
		return false
	}
	return !validUntil.Before(now)
}

// Active reports IsActive for this record at now.
func (r Record) Active(now time.Time) bool {
	return IsActive(r.Status, r.ValidUntil, now)
}

// Authoritative picks the record that answers "membership for this member":
// latest valid_until (nil sorts last), then latest created_at.
func Authoritative(records []Record) (Record, bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if precedes(r, best) {
			best = r
		}
	}
	return best, true
}

func precedes(a, b Record) bool {
	switch {
	case a.ValidUntil != nil && b.ValidUntil == nil:
		return true
	case a.ValidUntil == nil && b.ValidUntil != nil:
		return false
	case a.ValidUntil != nil && b.ValidUntil != nil && !a.ValidUntil.Equal(*b.ValidUntil):
		return a.ValidUntil.After(*b.ValidUntil)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// ExtendValidUntil returns the new coverage end after a renewal of period.
// The extension is anchored at max(validUntil, now), so renewing early keeps
// the remaining days instead of discarding them.
func ExtendValidUntil(validUntil *time.Time, period time.Duration, now time.Time) time.Time {
	anchor := now
	if validUntil != nil && validUntil.After(now) {
		anchor = *validUntil
	}
	return anchor.Add(period)
}

// Snapshot is the membership view attached to verification and status responses.
type Snapshot struct {
	Found         bool
	Status        Status
	ValidUntil    *time.Time
	LastPaymentAt *time.Time
	Provider      string
	RenewalMode   string
	Active        bool
}

// SnapshotOf derives the view of rec at now.
func SnapshotOf(rec Record, now time.Time) Snapshot {
	return Snapshot{
		Found:         true,
		Status:        rec.Status,
		ValidUntil:    rec.ValidUntil,
		LastPaymentAt: rec.LastPaymentAt,
		Provider:      rec.Provider,
		RenewalMode:   rec.RenewalMode,
		Active:        rec.Active(now),
	}
}

// NoMembership is reported when a member has no record or the table is missing.
func NoMembership() Snapshot {
	return Snapshot{Status: StatusPastDue}
}
