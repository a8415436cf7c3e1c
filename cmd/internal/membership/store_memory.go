package membership

import (
	"context"
	"sync"
)

// MemoryStore keeps membership history in process. It is used when no
// database is configured and by tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]Record
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record)}
}

// Insert appends a history row as-is.
func (s *MemoryStore) Insert(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.MemberID] = append(s.records[rec.MemberID], rec)
}

// Authoritative implements Store.
func (s *MemoryStore) Authoritative(ctx context.Context, memberID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := Authoritative(s.records[memberID])
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Update implements Store. The whole read-modify-write runs under the store lock.
func (s *MemoryStore) Update(ctx context.Context, memberID string, fn func(current *Record) (Record, error)) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.records[memberID]
	var current *Record
	if rec, ok := Authoritative(history); ok {
		current = &rec
	}

	next, err := fn(current)
	if err != nil {
		return Record{}, err
	}

	for i := range history {
		if history[i].ID == next.ID {
			history[i] = next
			return next, nil
		}
	}
	s.records[memberID] = append(history, next)
	return next, nil
}
