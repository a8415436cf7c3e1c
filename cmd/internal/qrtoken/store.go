package qrtoken

import (
	"context"
	"time"
)

// Store is the persistence boundary for QR tokens.
//
// Consume is the correctness-critical operation: it must set used_at with a
// single conditional write guarded by "used_at IS NULL AND NOT revoked AND
// expires_at >= now", so two concurrent consumers can never both succeed.
type Store interface {
	// Get returns the token with exactly this value, or ErrNotFound.
	Get(ctx context.Context, value string) (Token, error)

	// FindReusable returns the newest token for memberID that is unused,
	// unrevoked, unexpired at now and created after createdAfter, or ErrNotFound.
	FindReusable(ctx context.Context, memberID string, now, createdAfter time.Time) (Token, error)

	// Create inserts a new token.
	Create(ctx context.Context, t Token) (Token, error)

	// Consume atomically marks the token used at now. When the guard fails it
	// returns the current row together with ErrNotActive; unknown values
	// return ErrNotFound.
	Consume(ctx context.Context, value string, now time.Time) (Token, error)

	// Revoke sets the administrative kill-switch. Revoking twice is a no-op.
	Revoke(ctx context.Context, value string) (Token, error)
}
