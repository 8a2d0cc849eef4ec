// Package ratelimit keeps per-client token buckets for the control API,
// one golang.org/x/time/rate limiter per client and request class.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// LimitType classifies control API requests for rate limiting.
type LimitType string

const (
	// LimitTypeRead is for status, device and transition queries.
	LimitTypeRead LimitType = "read"

	// LimitTypeMutation is for device actions, preference and WAN changes.
	LimitTypeMutation LimitType = "mutation"

	// LimitTypeTick is for manual tick batches.
	LimitTypeTick LimitType = "tick"

	// LimitTypeHealthCheck is for liveness and readiness probes.
	LimitTypeHealthCheck LimitType = "health_check"
)

// Config holds per-minute bucket sizes for each limit type.
type Config struct {
	// ReadsPerMin is the number of queries allowed per minute per client.
	ReadsPerMin int

	// MutationsPerMin is the number of state changes allowed per minute per client.
	MutationsPerMin int

	// TicksPerMin is the number of tick batches allowed per minute per client.
	TicksPerMin int

	// HealthChecksPerMin is the number of probes allowed per minute per client.
	HealthChecksPerMin int

	// IdleTimeout drops buckets not used for this long. Zero means one hour.
	IdleTimeout time.Duration
}

// DefaultConfig returns the default rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		ReadsPerMin:        600,
		MutationsPerMin:    120,
		TicksPerMin:        60,
		HealthChecksPerMin: 60,
		IdleTimeout:        time.Hour,
	}
}

func (c Config) perMinute(limitType LimitType) int {
	switch limitType {
	case LimitTypeRead:
		return c.ReadsPerMin
	case LimitTypeMutation:
		return c.MutationsPerMin
	case LimitTypeTick:
		return c.TicksPerMin
	case LimitTypeHealthCheck:
		return c.HealthChecksPerMin
	}
	return c.ReadsPerMin
}

// Limiter implements token bucket rate limiting keyed by limit type and client.
type Limiter struct {
	storage *Storage
	config  Config
	mu      sync.Mutex
	now     func() time.Time
}

// NewLimiter creates a limiter and starts its bucket cleanup.
func NewLimiter(config Config) *Limiter {
	idle := config.IdleTimeout
	if idle <= 0 {
		idle = time.Hour
	}
	l := &Limiter{
		storage: NewStorage(idle/12, idle),
		config:  config,
		now:     time.Now,
	}
	for _, lt := range []LimitType{LimitTypeRead, LimitTypeMutation, LimitTypeTick, LimitTypeHealthCheck} {
		metrics.RateLimitCapacity.WithLabelValues(string(lt)).Set(float64(config.perMinute(lt)))
	}
	return l
}

// Allow takes one token from identifier's bucket for limitType. When the
// bucket is empty it returns false and the whole seconds until a token is
// available, at least one. A limit of zero or less disables the check.
func (l *Limiter) Allow(identifier string, limitType LimitType) (allowed bool, retryAfter int) {
	perMin := l.config.perMinute(limitType)
	if perMin <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := BuildKey(identifier, limitType)
	now := l.now()
	bucket := l.storage.Get(key)
	if bucket == nil {
		bucket = NewBucket(perMin, now)
		l.storage.Set(key, bucket)
		metrics.RateLimitBuckets.Set(float64(l.storage.Count()))
	}

	ok, wait := bucket.take(now)
	metrics.RecordRateLimit(string(limitType), ok)
	if ok {
		return true, 0
	}
	return false, max(int(math.Ceil(wait.Seconds())), 1)
}

// BuildKey creates a storage key from a client identifier and limit type.
func BuildKey(identifier string, limitType LimitType) string {
	return fmt.Sprintf("%s:%s", limitType, identifier)
}

// Stop stops the bucket cleanup goroutine.
func (l *Limiter) Stop() {
	l.storage.Stop()
}

// Storage returns the limiter's bucket storage.
func (l *Limiter) Storage() *Storage {
	return l.storage
}
