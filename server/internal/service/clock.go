package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
)

// Ticker advances a simulation.
type Ticker interface {
	Tick(count int) ([]models.Transition, error)
}

// Clock ticks a simulation on a wall-clock interval until stopped.
type Clock struct {
	ticker   Ticker
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewClock creates a stopped clock.
func NewClock(t Ticker, interval time.Duration, logger *zap.Logger) *Clock {
	return &Clock{
		ticker:   t,
		interval: interval,
		logger:   logging.Component(logger, "clock"),
	}
}

// Interval returns the tick interval.
func (c *Clock) Interval() time.Duration { return c.interval }

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start begins ticking in a background goroutine. It stops when ctx is
// cancelled or Stop is called. Starting a running clock does nothing.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx)
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()
	c.logger.Info("clock started", zap.Duration("interval", c.interval))
}

// Stop halts the clock and waits for the loop to exit.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	c.logger.Info("clock stopped")
}

// Run ticks until ctx is done. It is Start and Stop for errgroup callers.
func (c *Clock) Run(ctx context.Context) error {
	c.Start(ctx)
	<-ctx.Done()
	c.Stop()
	return nil
}

func (c *Clock) loop(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			transitions, err := c.ticker.Tick(1)
			if err != nil {
				c.logger.Error("tick failed", zap.Error(err))
				continue
			}
			for _, tr := range transitions {
				c.logger.Info("transition",
					zap.Uint64(logging.FieldTick, tr.Tick),
					zap.String("kind", string(tr.Kind)),
					zap.String("subject", tr.Subject),
					zap.String(logging.FieldFromState, tr.From),
					zap.String(logging.FieldToState, tr.To),
				)
			}
		}
	}
}
