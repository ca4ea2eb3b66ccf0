// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	xerrors "talentmarket-service/internal/pkg/errors"
	"talentmarket-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttemptLimiter is satisfied by *ratelimit.RedisLimiter.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string, max int64, window time.Duration) (bool, int64, error)
}

// RateLimitByIdentity caps requests per authenticated user for scope. It must
// run after Auth(). When the limiter backend fails the request is let through.
func RateLimitByIdentity(limiter AttemptLimiter, scope string, max int64, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID, ok := GetIdentityID(c)
		if !ok || limiter == nil || max <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%d", scope, identityID)
		allowed, remaining, err := limiter.Allow(c.Request.Context(), key, max, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(window.Seconds()))))
			response.Error(c, http.StatusTooManyRequests, "too many attempts, try again later", xerrors.ErrRateLimited)
			return
		}

		c.Next()
	}
}
