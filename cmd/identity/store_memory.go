package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Directory used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Put inserts or replaces a profile.
func (s *MemoryStore) Put(p Profile) error {
	id, err := ParseMemberID(p.ID)
	if err != nil {
		return err
	}
	p.ID = id

	s.mu.Lock()
	s.profiles[id] = p
	s.mu.Unlock()
	return nil
}

// GetProfile implements Directory.
func (s *MemoryStore) GetProfile(ctx context.Context, memberID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	id, err := ParseMemberID(memberID)
	if err != nil {
		return Profile{}, err
	}

	s.mu.RLock()
	p, ok := s.profiles[id]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, NotFoundError{Op: "identity.GetProfile", Resource: "profile"}
	}
	return p, nil
}
