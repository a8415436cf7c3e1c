package qrtoken

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	byValue  map[string]*Token
	byMember map[string][]*Token
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byValue:  make(map[string]*Token),
		byMember: make(map[string][]*Token),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, value string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byValue[value]
	if !ok {
		return Token{}, ErrNotFound
	}
	return clone(t), nil
}

// FindReusable implements Store.
func (s *MemoryStore) FindReusable(ctx context.Context, memberID string, now, createdAfter time.Time) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *Token
	for _, t := range s.byMember[memberID] {
		if t.Used() || t.Revoked || !t.ExpiresAt.After(now) || !t.CreatedAt.After(createdAfter) {
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return Token{}, ErrNotFound
	}
	return clone(best), nil
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, t Token) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	if strings.TrimSpace(t.Value) == "" || strings.TrimSpace(t.MemberID) == "" {
		return Token{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byValue[t.Value]; exists {
		return Token{}, ErrInvalidInput
	}
	stored := clone(&t)
	s.byValue[t.Value] = &stored
	s.byMember[t.MemberID] = append(s.byMember[t.MemberID], &stored)
	return clone(&stored), nil
}

// Consume implements Store. The check and the write happen under one lock.
func (s *MemoryStore) Consume(ctx context.Context, value string, now time.Time) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byValue[value]
	if !ok {
		return Token{}, ErrNotFound
	}
	if !t.Usable(now) {
		return clone(t), ErrNotActive
	}
	usedAt := now
	t.UsedAt = &usedAt
	return clone(t), nil
}

// Revoke implements Store.
func (s *MemoryStore) Revoke(ctx context.Context, value string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byValue[value]
	if !ok {
		return Token{}, ErrNotFound
	}
	t.Revoked = true
	return clone(t), nil
}

func clone(t *Token) Token {
	out := *t
	if t.UsedAt != nil {
		u := *t.UsedAt
		out.UsedAt = &u
	}
	return out
}
