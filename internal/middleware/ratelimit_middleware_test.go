package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingLimiter struct {
	counts map[string]int64
	err    error
}

func (l *countingLimiter) Allow(ctx context.Context, key string, max int64, window time.Duration) (bool, int64, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.counts[key]++
	remaining := max - l.counts[key]
	if remaining < 0 {
		remaining = 0
	}
	return l.counts[key] <= max, remaining, nil
}

func limitedEngine(limiter AttemptLimiter, identityID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/offers/validate",
		func(c *gin.Context) {
			if identityID != 0 {
				c.Set("identity_id", identityID)
			}
		},
		RateLimitByIdentity(limiter, "offer-code", 2, time.Minute, zap.NewNop()),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return r
}

func post(r http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/offers/validate", nil))
	return w
}

func TestRateLimitByIdentity(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	r := limitedEngine(limiter, 5)

	w := post(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, post(r).Code)

	w = post(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	assert.Equal(t, int64(3), limiter.counts["offer-code:5"])
}

func TestRateLimitByIdentity_FailsOpen(t *testing.T) {
	r := limitedEngine(&countingLimiter{err: errors.New("redis down")}, 5)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, post(r).Code)
	}
}

func TestRateLimitByIdentity_AnonymousPassesThrough(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	r := limitedEngine(limiter, 0)

	assert.Equal(t, http.StatusOK, post(r).Code)
	assert.Empty(t, limiter.counts)
}
