// Package ratelimit throttles anonymous verification requests per client key.
package ratelimit

import (
	"context"
	"time"
)

// Defaults for the verify endpoint.
const (
	DefaultLimit  = 30
	DefaultWindow = time.Minute
)

// Limiter reports whether one more event for key is allowed at now.
//
// Implementations record the event when they allow it. Callers treat errors
// as "allowed": a broken limiter must never block verification.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, error)
}

// Config is the sliding-window policy shared by all implementations.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) normalized() Config {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// Unlimited allows everything.
type Unlimited struct{}

// Allow implements Limiter.
func (Unlimited) Allow(context.Context, string, time.Time) (bool, error) { return true, nil }
