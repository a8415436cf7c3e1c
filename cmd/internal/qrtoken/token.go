package qrtoken

import "time"

// Default lifetimes. A displayed QR code rotates roughly once per reuse
// window and a captured one is useless after TTL.
const (
	DefaultTTL         = 120 * time.Second
	DefaultReuseWindow = 60 * time.Second
)

// Token is one stored verification credential. Only UsedAt and Revoked ever
// change after creation.
type Token struct {
	Value     string
	MemberID  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	UsedAt    *time.Time
}

// Expired reports whether the token lapsed before now. A token is still
// valid at exactly ExpiresAt.
func (t Token) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }

// Used reports whether the token was consumed.
func (t Token) Used() bool { return t.UsedAt != nil }

// Usable reports whether the token can still be consumed at now.
func (t Token) Usable(now time.Time) bool {
	return !t.Expired(now) && !t.Revoked && !t.Used()
}
