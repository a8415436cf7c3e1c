package ratelimit

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	l := NewMemoryLimiter(Config{Limit: 3, Window: 10 * time.Second})
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		ok, err := l.Allow(ctx, "203.0.113.7", now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.True(t, ok, "event %d", i+1)
	}
	ok, _ := l.Allow(ctx, "203.0.113.7", now.Add(3*time.Second))
	assert.False(t, ok)

	// Other keys are independent.
	ok, _ = l.Allow(ctx, "198.51.100.1", now.Add(3*time.Second))
	assert.True(t, ok)

	// The first event leaves the window.
	ok, _ = l.Allow(ctx, "203.0.113.7", now.Add(10*time.Second+time.Millisecond))
	assert.True(t, ok)
}

func TestMemoryLimiter_SweepsIdleKeys(t *testing.T) {
	l := NewMemoryLimiter(Config{Limit: 1, Window: time.Second})
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, k := range []string{"a", "b", "c"} {
		_, _ = l.Allow(ctx, k, now)
	}
	assert.Equal(t, 3, l.Len())

	_, _ = l.Allow(ctx, "d", now.Add(5*time.Second))
	assert.Equal(t, 1, l.Len())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.normalized()
	assert.Equal(t, DefaultLimit, cfg.Limit)
	assert.Equal(t, DefaultWindow, cfg.Window)
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	raw := strings.TrimSpace(os.Getenv("BENEFICIOS_REDIS_URL"))
	if raw == "" {
		t.Skip("redis test skipped: BENEFICIOS_REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(raw)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLimiter_Allow(t *testing.T) {
	client := setupTestRedis(t)
	l, err := NewRedisLimiter(client, Config{Limit: 5, Window: time.Minute}, WithKeyPrefix("beneficios:test:"+t.Name()))
	require.NoError(t, err)

	ctx := context.Background()
	key := "203.0.113.7"
	require.NoError(t, l.Reset(ctx, key))
	t.Cleanup(func() { _ = l.Reset(context.Background(), key) })

	now := time.Now()
	for i := range 5 {
		ok, err := l.Allow(ctx, key, now.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}
	ok, err := l.Allow(ctx, key, now.Add(10*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ok, "6th request should be denied")

	ok, err = l.Allow(ctx, key, now.Add(time.Minute+time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_AllowConcurrent(t *testing.T) {
	client := setupTestRedis(t)
	l, err := NewRedisLimiter(client, Config{Limit: 5, Window: time.Minute}, WithKeyPrefix("beneficios:test:"+t.Name()))
	require.NoError(t, err)

	ctx := context.Background()
	key := "198.51.100.23"
	require.NoError(t, l.Reset(ctx, key))
	t.Cleanup(func() { _ = l.Reset(context.Background(), key) })

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
		failed  atomic.Int32
	)
	now := time.Now()
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Allow(ctx, key, now.Add(time.Duration(i)*time.Microsecond))
			if err != nil {
				failed.Add(1)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.Equal(t, int32(5), allowed.Load())
}

func TestNewRedisLimiter_NilClient(t *testing.T) {
	_, err := NewRedisLimiter(nil, Config{})
	assert.Error(t, err)
}
