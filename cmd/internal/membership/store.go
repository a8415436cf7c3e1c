package membership

import "context"

// Store is the persistence boundary for membership records.
type Store interface {
	// Authoritative returns the authoritative record for memberID, or ErrNotFound.
	Authoritative(ctx context.Context, memberID string) (Record, error)

	// Update loads the authoritative record (nil when the member has none),
	// applies fn and persists the returned record. Postgres runs this under a
	// row lock so concurrent renewals are serialized.
	Update(ctx context.Context, memberID string, fn func(current *Record) (Record, error)) (Record, error)
}
