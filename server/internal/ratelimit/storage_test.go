package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage(time.Hour, time.Hour)
	t.Cleanup(s.Stop)
	return s
}

func TestStorage_GetSetDelete(t *testing.T) {
	storage := newTestStorage(t)

	assert.Nil(t, storage.Get("missing"))

	now := time.Now()
	storage.Set("key", NewBucket(10, now))
	got := storage.Get("key")
	require.NotNil(t, got)
	assert.InDelta(t, 10.0, got.TokensAt(now), 1e-9)

	storage.Delete("key")
	assert.Nil(t, storage.Get("key"))
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	storage := newTestStorage(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				storage.Set(fmt.Sprintf("key-%d", id%10), NewBucket(j+1, time.Now()))
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				storage.Get(fmt.Sprintf("key-%d", id%10))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, storage.Count())
}

func TestStorage_Cleanup(t *testing.T) {
	storage := newTestStorage(t)
	now := time.Now()

	storage.Set("fresh", NewBucket(1, now))
	storage.Set("old", NewBucket(1, now.Add(-2*time.Hour)))
	require.Equal(t, 2, storage.Count())

	storage.cleanup(now)

	assert.NotNil(t, storage.Get("fresh"))
	assert.Nil(t, storage.Get("old"))
	assert.Equal(t, 1, storage.Count())
}

func TestStorage_BackgroundSweep(t *testing.T) {
	storage := NewStorage(10*time.Millisecond, time.Millisecond)
	defer storage.Stop()

	storage.Set("stale", NewBucket(1, time.Now().Add(-time.Second)))

	assert.Eventually(t, func() bool { return storage.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStorage_Stop(t *testing.T) {
	storage := NewStorage(time.Hour, time.Hour)
	storage.Set("key", NewBucket(1, time.Now()))

	storage.Stop()
	storage.Stop()

	assert.NotNil(t, storage.Get("key"), "buckets survive Stop")
}
