package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity/ids"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in a shared Redis.
const DefaultKeyPrefix = "beneficios:ratelimit"

// RedisLimiter is a sliding-window Limiter backed by one sorted set per key,
// shared across instances.
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    Config
	prefix string
}

// RedisOption configures the RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// NewRedisLimiter constructs a RedisLimiter. The client is owned by the caller.
func NewRedisLimiter(client redis.UniversalClient, cfg Config, opts ...RedisOption) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("ratelimit: nil redis client")
	}
	l := &RedisLimiter{client: client, cfg: cfg.normalized(), prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// allowScript trims the window, counts, and records in one atomic step.
// KEYS[1] key; ARGV window start, limit, score, member, ttl ms.
var allowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '0', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Allow implements Limiter.
//
// Denied attempts are not recorded, so a client that backs off regains
// capacity once old events leave the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	member, err := ids.NewULID(now)
	if err != nil {
		return false, err
	}

	allowed, err := allowScript.Run(ctx, l.client, []string{l.key(key)},
		strconv.FormatInt(now.Add(-l.cfg.Window).UnixNano(), 10),
		l.cfg.Limit,
		strconv.FormatInt(now.UnixNano(), 10),
		member,
		(l.cfg.Window + time.Minute).Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: allow: %w", err)
	}
	return allowed == 1, nil
}

func (l *RedisLimiter) key(k string) string {
	return l.prefix + ":" + k + ":" + l.cfg.Window.String()
}

// Reset forgets all events for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}
