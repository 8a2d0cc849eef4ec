package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// RateLimiter keeps one x/time/rate limiter per client and forgets clients
// that have been idle for a full cleanup interval.
type RateLimiter struct {
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter.
//
// Parameters:
//   - rps: Requests per second allowed
//   - burst: Burst size (number of requests that can be made in quick succession)
//   - cleanup: How often to forget idle clients (e.g., 1 minute)
//
// Returns:
//   - Configured RateLimiter; call Stop to end its cleanup goroutine
func NewRateLimiter(rps float64, burst int, cleanup time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		cleanup:  cleanup,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.mu.Lock()
			for id, cl := range rl.limiters {
				if now.Sub(cl.lastSeen) > rl.cleanup {
					delete(rl.limiters, id)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Allow reports whether a request from identifier may proceed.
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	cl, ok := rl.limiters[identifier]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[identifier] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// RateLimitByIP creates middleware that rate limits requests by client IP address.
//
// This is the coarse global limit; AdvancedRateLimitMiddleware adds finer
// limits per request class.
//
// Parameters:
//   - limiter: Shared limiter, see NewRateLimiter
//
// Returns:
//   - Gin middleware handler function
//
// Example:
//
//	router.Use(RateLimitByIP(NewRateLimiter(100, 200, time.Minute)))
func RateLimitByIP(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := limiter.Allow(c.ClientIP())
		metrics.RecordRateLimit(metrics.RateLimitClassGlobal, allowed)
		if !allowed {
			abortRateLimited(c, "Rate limit exceeded", 1)
			return
		}
		c.Next()
	}
}

// abortRateLimited writes a 429 in the API's error format.
func abortRateLimited(c *gin.Context, message string, retryAfter int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "rate_limit_exceeded",
		"message":     message,
		"request_id":  GetRequestID(c),
		"retry_after": retryAfter,
	})
}
