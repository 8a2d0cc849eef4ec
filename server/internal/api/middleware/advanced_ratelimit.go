package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yaroslav/stretchsim/server/internal/ratelimit"
)

// AdvancedRateLimitMiddleware applies per-client token buckets by request
// class with Retry-After headers.
type AdvancedRateLimitMiddleware struct {
	limiter *ratelimit.Limiter
}

// NewAdvancedRateLimitMiddleware creates a new advanced rate limit middleware.
func NewAdvancedRateLimitMiddleware(config ratelimit.Config) *AdvancedRateLimitMiddleware {
	return &AdvancedRateLimitMiddleware{
		limiter: ratelimit.NewLimiter(config),
	}
}

// RateLimitReads limits status, device and transition queries.
func (m *AdvancedRateLimitMiddleware) RateLimitReads() gin.HandlerFunc {
	return m.limit(ratelimit.LimitTypeRead, "Rate limit exceeded for queries")
}

// RateLimitMutations limits device actions, preference and WAN changes.
func (m *AdvancedRateLimitMiddleware) RateLimitMutations() gin.HandlerFunc {
	return m.limit(ratelimit.LimitTypeMutation, "Rate limit exceeded for state changes")
}

// RateLimitTicks limits manual tick batches.
func (m *AdvancedRateLimitMiddleware) RateLimitTicks() gin.HandlerFunc {
	return m.limit(ratelimit.LimitTypeTick, "Rate limit exceeded for ticks")
}

// RateLimitHealthCheck limits liveness and readiness probes.
func (m *AdvancedRateLimitMiddleware) RateLimitHealthCheck() gin.HandlerFunc {
	return m.limit(ratelimit.LimitTypeHealthCheck, "Rate limit exceeded for health checks")
}

func (m *AdvancedRateLimitMiddleware) limit(limitType ratelimit.LimitType, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := m.limiter.Allow(c.ClientIP(), limitType)
		if !allowed {
			GetLogger(c).Debug("request rate limited")
			abortRateLimited(c, message, retryAfter)
			return
		}
		c.Next()
	}
}

// Stop gracefully stops the rate limiter.
func (m *AdvancedRateLimitMiddleware) Stop() {
	m.limiter.Stop()
}
