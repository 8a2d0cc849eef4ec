// Package sim is the simulation root. It owns the network registry, every
// device and pod, and the random source, and it advances them one tick at
// a time in a fixed order:
//
//  1. pre_step: link flow flags reset, pod connectivity flags rotate, every
//     device receives pre_step.
//  2. step: arrays, then hosts, then mediators, each in creation order.
//  3. post_step: every device receives post_step, then the new status is
//     diffed against the previous one and the transitions are reported.
//
// A Simulation is not safe for concurrent use.
package sim

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/scenario"
	"github.com/yaroslav/stretchsim/server/internal/activecluster"
	"github.com/yaroslav/stretchsim/server/internal/array"
	"github.com/yaroslav/stretchsim/server/internal/host"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/mediator"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
	"github.com/yaroslav/stretchsim/server/internal/network"
)

// Config holds the seed and the per-component thresholds.
type Config struct {
	Seed     int64
	Pod      activecluster.Config
	Mediator mediator.Config
	Array    array.Config
}

// DefaultConfig returns seed 1 and default thresholds.
func DefaultConfig() Config {
	return Config{
		Seed:     1,
		Pod:      activecluster.DefaultConfig(),
		Mediator: mediator.DefaultConfig(),
		Array:    array.DefaultConfig(),
	}
}

// Observer receives the transitions detected at the end of every tick.
type Observer interface {
	Observe(tick uint64, transitions []models.Transition)
}

// Simulation owns the simulated system.
type Simulation struct {
	cfg    Config
	logger *zap.Logger
	rng    *rand.Rand

	registry *network.Registry
	tick     uint64

	// Creation order is the stepping order.
	arrays    []*array.FlashArray
	switches  []*network.Switch
	mediators []*mediator.Mediator
	hosts     []*host.Host
	pods      []*activecluster.Pod

	// names holds every device, controller and pod name.
	names map[string]models.DeviceKind

	schedule map[uint64][]scenario.Event

	observers []Observer
	last      *models.Snapshot
}

// New creates an empty simulation.
func New(cfg Config, logger *zap.Logger) *Simulation {
	logger = logging.Component(logger, "sim")
	s := &Simulation{cfg: cfg, logger: logger}
	s.Reset()
	return s
}

// Reset forgets all devices, links and history and reseeds the random source.
func (s *Simulation) Reset() {
	if s.registry == nil {
		s.registry = network.NewRegistry(s.logger)
	} else {
		s.registry.Reset()
	}
	s.rng = rand.New(rand.NewSource(s.cfg.Seed))
	s.tick = 0
	s.arrays = nil
	s.switches = nil
	s.mediators = nil
	s.hosts = nil
	s.pods = nil
	s.names = make(map[string]models.DeviceKind)
	s.schedule = make(map[uint64][]scenario.Event)
	s.last = nil
}

// Config returns the configuration the simulation was created with.
func (s *Simulation) Config() Config { return s.cfg }

// CurrentTick returns the number of completed ticks.
func (s *Simulation) CurrentTick() uint64 { return s.tick }

// Registry returns the network registry.
func (s *Simulation) Registry() *network.Registry { return s.registry }

// AddObserver registers o for transition reports.
func (s *Simulation) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Tick advances the simulation by one tick and returns the transitions it
// caused, including those caused by actions applied since the last tick.
func (s *Simulation) Tick() []models.Transition {
	start := time.Now()
	if s.last == nil {
		base := s.Snapshot()
		s.last = &base
	}
	s.tick++
	s.runScheduled()

	s.registry.ResetFlows()
	for _, p := range s.pods {
		p.PreStep()
	}
	s.broadcast(models.ActionPreStep)

	for _, a := range s.arrays {
		a.Step()
	}
	for _, h := range s.hosts {
		h.Step()
	}
	for _, m := range s.mediators {
		m.Step()
	}

	s.broadcast(models.ActionPostStep)

	snap := s.Snapshot()
	transitions := diff(s.tick, *s.last, snap)
	s.last = &snap
	for _, t := range transitions {
		s.logger.Debug("transition",
			zap.Uint64(logging.FieldTick, t.Tick),
			zap.String("kind", string(t.Kind)),
			zap.String("subject", t.Subject),
			zap.String(logging.FieldFromState, t.From),
			zap.String(logging.FieldToState, t.To),
		)
	}
	for _, o := range s.observers {
		o.Observe(s.tick, transitions)
	}

	metrics.TicksTotal.Inc()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	return transitions
}

type phaseHandler interface {
	Name() string
	HandleAction(models.Action) error
}

// broadcast sends a phase action to every device.
func (s *Simulation) broadcast(action models.Action) {
	devices := make([]phaseHandler, 0, len(s.arrays)+len(s.switches)+len(s.hosts)+len(s.mediators))
	for _, a := range s.arrays {
		devices = append(devices, a)
	}
	for _, sw := range s.switches {
		devices = append(devices, sw)
	}
	for _, h := range s.hosts {
		devices = append(devices, h)
	}
	for _, m := range s.mediators {
		devices = append(devices, m)
	}
	applyPhase(s.logger, s.tick, action, devices)
}

// applyPhase delivers action to each device in order. A device that
// rejects it is logged and skipped; the tick carries on.
func applyPhase(logger *zap.Logger, tick uint64, action models.Action, devices []phaseHandler) {
	for _, d := range devices {
		if err := d.HandleAction(action); err != nil {
			logger.Debug("phase action failed",
				zap.Uint64(logging.FieldTick, tick),
				zap.String(logging.FieldAction, string(action)),
				zap.String(logging.FieldDevice, d.Name()),
				zap.Error(err),
			)
		}
	}
}

// Run advances n ticks, stopping early if ctx is cancelled.
func (s *Simulation) Run(ctx context.Context, n int) ([]models.Transition, error) {
	var all []models.Transition
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		all = append(all, s.Tick()...)
	}
	return all, nil
}

// Snapshot returns the current status of every component in creation order.
func (s *Simulation) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		Tick:        s.tick,
		Arrays:      make([]models.ArrayStatus, 0, len(s.arrays)),
		Pods:        make([]models.PodStatus, 0, len(s.pods)),
		Mediators:   make([]models.MediatorStatus, 0, len(s.mediators)),
		Switches:    make([]models.SwitchStatus, 0, len(s.switches)),
		Hosts:       make([]models.HostStatus, 0, len(s.hosts)),
		Connections: make([]models.ConnectionStatus, 0),
	}
	for _, a := range s.arrays {
		snap.Arrays = append(snap.Arrays, a.Status())
	}
	for _, p := range s.pods {
		snap.Pods = append(snap.Pods, p.Status())
	}
	for _, m := range s.mediators {
		snap.Mediators = append(snap.Mediators, m.Status())
	}
	for _, sw := range s.switches {
		snap.Switches = append(snap.Switches, sw.Status())
	}
	for _, h := range s.hosts {
		snap.Hosts = append(snap.Hosts, h.Status())
	}
	for _, c := range s.registry.All() {
		snap.Connections = append(snap.Connections, c.Status())
	}
	return snap
}
