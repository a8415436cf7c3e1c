package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window is a per-key sliding window.
type window struct {
	events []time.Time
}

func (w *window) allow(now time.Time, cfg Config) bool {
	cut := now.Add(-cfg.Window)
	dst := w.events[:0]
	for _, t := range w.events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	w.events = dst

	if len(w.events) >= cfg.Limit {
		return false
	}
	w.events = append(w.events, now)
	return true
}

// MemoryLimiter is an in-process Limiter for single-instance deployments.
type MemoryLimiter struct {
	cfg Config

	mu        sync.Mutex
	keys      map[string]*window
	lastSweep time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter with safe defaults when inputs are invalid.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:  cfg.normalized(),
		keys: make(map[string]*window),
	}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	w, ok := m.keys[key]
	if !ok {
		w = &window{events: make([]time.Time, 0, 8)}
		m.keys[key] = w
	}
	return w.allow(now, m.cfg), nil
}

// sweep drops keys idle for a full window. Runs at most once per window.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.cfg.Window {
		return
	}
	m.lastSweep = now
	cut := now.Add(-m.cfg.Window)
	for k, w := range m.keys {
		if len(w.events) == 0 || !w.events[len(w.events)-1].After(cut) {
			delete(m.keys, k)
		}
	}
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
