package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// Bucket is one client's token bucket for one limit type.
type Bucket struct {
	limiter *rate.Limiter

	// LastSeen is when the bucket was last consulted. Idle buckets are
	// swept by Storage.
	LastSeen time.Time
}

// NewBucket returns a full bucket that holds perMin tokens and refills
// them evenly over a minute.
func NewBucket(perMin int, now time.Time) *Bucket {
	return &Bucket{
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		LastSeen: now,
	}
}

// take spends one token at now. When none is available it returns false and
// the wait until one is.
func (b *Bucket) take(now time.Time) (bool, time.Duration) {
	b.LastSeen = now
	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// TokensAt reports the tokens available at t.
func (b *Bucket) TokensAt(t time.Time) float64 {
	return b.limiter.TokensAt(t)
}

// Storage is a concurrent map of buckets. A background goroutine drops
// buckets that have been idle longer than the configured timeout.
type Storage struct {
	buckets   sync.Map
	cleanupMu sync.Mutex
	idle      time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewStorage creates a storage that sweeps every interval and drops buckets
// idle for longer than idle.
func NewStorage(interval, idle time.Duration) *Storage {
	s := &Storage{
		idle:   idle,
		stopCh: make(chan struct{}),
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.wg.Add(1)
	go s.sweep(interval)
	return s
}

// Get retrieves a bucket by key. Returns nil if not found.
func (s *Storage) Get(key string) *Bucket {
	value, ok := s.buckets.Load(key)
	if !ok {
		return nil
	}
	bucket, _ := value.(*Bucket)
	return bucket
}

// Set stores or replaces a bucket.
func (s *Storage) Set(key string, bucket *Bucket) {
	s.buckets.Store(key, bucket)
}

// Delete removes a bucket by key.
func (s *Storage) Delete(key string) {
	s.buckets.Delete(key)
}

func (s *Storage) sweep(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

// cleanup removes buckets last seen before now minus the idle timeout.
func (s *Storage) cleanup(now time.Time) {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	threshold := now.Add(-s.idle)
	live := 0
	s.buckets.Range(func(key, value any) bool {
		if bucket, ok := value.(*Bucket); !ok || bucket.LastSeen.Before(threshold) {
			s.buckets.Delete(key)
			return true
		}
		live++
		return true
	})
	metrics.RateLimitBuckets.Set(float64(live))
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (s *Storage) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Count returns the number of buckets currently stored.
func (s *Storage) Count() int {
	count := 0
	s.buckets.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
