// Package ratelimit throttles apply attempts per worker with a fixed window
// counter in Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const script = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

const callTimeout = 250 * time.Millisecond

// Limiter decides whether another attempt under key fits the window.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RedisLimiter fails open: when Redis is unreachable every call is allowed.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
	limit  int
	window time.Duration
}

// NewRedisLimiter returns nil for a nil client; a nil *RedisLimiter allows
// everything.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(script),
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || l.limit <= 0 || l.window <= 0 {
		return true
	}
	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{key}, ttl, l.limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}

// ApplyKey scopes the counter to one worker.
func ApplyKey(laborID string) string {
	return "laborbook:apply:" + laborID
}

// Nop allows every call.
type Nop struct{}

func (Nop) Allow(context.Context, string) bool { return true }
