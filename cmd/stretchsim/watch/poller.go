// Package watch follows a running stretchsim-server and reports the
// transitions of every tick it has not seen yet.
package watch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/sdk"
)

// DefaultInterval is used when PollerConfig.Interval is zero.
const DefaultInterval = time.Second

// maxBatch is the largest journal page the server hands out.
const maxBatch = 5000

// Source is the part of the SDK client the poller uses.
type Source interface {
	Status(ctx context.Context) (*models.StatusResponse, error)
	Transitions(ctx context.Context, filter sdk.TransitionFilter) (*models.TransitionListResponse, error)
}

// Poller polls the server status and fetches the transitions of new ticks
// from the journal.
type Poller struct {
	source   Source
	logger   *zap.Logger
	interval time.Duration

	// onTransitions receives the transitions of ticks (from, to], in order.
	// It is called for tick ranges without transitions too.
	onTransitions func(to uint64, transitions []models.Transition) error

	fromStart bool

	mu           sync.RWMutex
	primed       bool
	lastTick     uint64
	disconnected bool
}

// PollerConfig holds configuration for creating a Poller.
type PollerConfig struct {
	// Source is usually an *sdk.Client.
	Source Source

	// Logger is the structured logger
	Logger *zap.Logger

	// Interval is the polling interval (default: 1 second)
	Interval time.Duration

	// FromStart reports the transitions from tick 1 on the first poll.
	// Otherwise the first poll only records the current tick.
	FromStart bool

	OnTransitions func(to uint64, transitions []models.Transition) error
}

// NewPoller creates a new transition poller.
func NewPoller(config PollerConfig) *Poller {
	interval := config.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Poller{
		source:        config.Source,
		logger:        logger,
		interval:      interval,
		onTransitions: config.OnTransitions,
		fromStart:     config.FromStart,
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("watching simulation", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("watch stopped", zap.Uint64("tick", p.LastTick()))
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// LastTick returns the last tick whose transitions were reported.
func (p *Poller) LastTick() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastTick
}

// Disconnected reports whether the last poll could not reach the server.
func (p *Poller) Disconnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.disconnected
}

// Poll runs one polling cycle. Failures are logged and retried on the next
// cycle without advancing the last reported tick.
func (p *Poller) Poll(ctx context.Context) {
	status, err := p.source.Status(ctx)
	if err != nil {
		p.setDisconnected(true, err)
		return
	}
	p.setDisconnected(false, nil)

	tick := status.Snapshot.Tick

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.primed {
		p.primed = true
		if !p.fromStart {
			p.lastTick = tick
			return
		}
	}

	if tick < p.lastTick {
		p.logger.Info("simulation was reset",
			zap.Uint64("last_tick", p.lastTick),
			zap.Uint64("tick", tick))
		p.lastTick = 0
	}

	if tick == p.lastTick {
		p.logger.Debug("no new ticks", zap.Uint64("tick", tick))
		return
	}

	res, err := p.source.Transitions(ctx, sdk.TransitionFilter{
		FromTick: p.lastTick + 1,
		ToTick:   tick,
		Limit:    maxBatch,
	})
	if err != nil {
		p.logger.Error("failed to fetch transitions",
			zap.Uint64("from", p.lastTick+1),
			zap.Uint64("to", tick),
			zap.Error(err))
		return
	}
	if len(res.Transitions) == maxBatch {
		p.logger.Warn("transition batch truncated", zap.Int("limit", maxBatch))
	}

	if err := p.onTransitions(tick, res.Transitions); err != nil {
		p.logger.Error("failed to report transitions", zap.Uint64("tick", tick), zap.Error(err))
		return
	}
	p.lastTick = tick
}

// setDisconnected records the connection state and logs changes.
func (p *Poller) setDisconnected(disconnected bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	was := p.disconnected
	p.disconnected = disconnected

	if disconnected && !was {
		p.logger.Warn("server unreachable, will keep polling", zap.Error(err))
	} else if !disconnected && was {
		p.logger.Info("server reachable again")
	}
}
