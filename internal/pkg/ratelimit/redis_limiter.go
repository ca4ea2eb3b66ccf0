// internal/pkg/ratelimit/redis_limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bumps the counter and starts the window on the first hit, in one
// round trip so a counter can never be left without a TTL.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter is a fixed-window attempt counter shared by all replicas.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "ratelimit:"}
}

// Allow records one attempt for key and reports whether it is still within
// max for the current window, along with the attempts left.
func (l *RedisLimiter) Allow(ctx context.Context, key string, max int64, window time.Duration) (bool, int64, error) {
	count, err := incrScript.Run(ctx, l.client, []string{l.prefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("failed to count attempt %s: %w", key, err)
	}

	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= max, remaining, nil
}
