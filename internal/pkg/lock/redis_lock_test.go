package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachable points at a port nothing listens on.
func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAcquire_BackendDown(t *testing.T) {
	l := NewRedisLocker(unreachable(t))

	release, ok, err := l.Acquire(context.Background(), "expiry-sweep", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expiry-sweep")
	assert.False(t, ok)
	assert.Nil(t, release)
}
