package sim

import (
	"cmp"
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/scenario"
	"github.com/yaroslav/stretchsim/server/internal/logging"
)

// ConfigFromScenario overlays the scenario's seed and thresholds on the
// defaults.
func ConfigFromScenario(sc *scenario.Scenario) Config {
	cfg := DefaultConfig()
	p := sc.Protocol
	cfg.Seed = cmp.Or(sc.Seed, cfg.Seed)
	cfg.Pod.BaselineTicks = cmp.Or(p.BaselineTicks, cfg.Pod.BaselineTicks)
	cfg.Pod.PreElectTicks = cmp.Or(p.PreElectTicks, cfg.Pod.PreElectTicks)
	cfg.Pod.WANLatencyThreshold = cmp.Or(p.WANLatencyThreshold, cfg.Pod.WANLatencyThreshold)
	cfg.Mediator.DecisionDelay = cmp.Or(p.DecisionDelay, cfg.Mediator.DecisionDelay)
	cfg.Mediator.PreferenceOverride = cmp.Or(p.PreferenceOverride, cfg.Mediator.PreferenceOverride)
	cfg.Array.ReadLatency = cmp.Or(p.ReadLatency, cfg.Array.ReadLatency)
	cfg.Array.WriteLatency = cmp.Or(p.WriteLatency, cfg.Array.WriteLatency)
	return cfg
}

// TopologyFromScenario overlays the scenario's topology on the defaults.
func TopologyFromScenario(sc *scenario.Scenario) TopologyOptions {
	opts := DefaultTopologyOptions()
	t := sc.Topology
	if t.WANLatency != nil {
		opts.WANLatency = *t.WANLatency
	}
	opts.WANBandwidth = cmp.Or(t.WANBandwidth, opts.WANBandwidth)
	opts.Replication = cmp.Or(t.Replication, opts.Replication)
	opts.UniformHostAccess = t.UniformHostAccess
	opts.PreferLocalArray = t.PreferLocalArray
	opts.FailoverPreference = t.FailoverPreference
	if t.Workload != nil {
		opts.Workload = *t.Workload
	}
	return opts
}

// NewFromScenario builds the stretched cluster a scenario describes and
// schedules its events. A nil scenario is the default one.
func NewFromScenario(sc *scenario.Scenario, logger *zap.Logger) (*Simulation, error) {
	if sc == nil {
		sc = &scenario.Scenario{}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	s := New(ConfigFromScenario(sc), logger)
	if err := s.BuildStretchedCluster(TopologyFromScenario(sc)); err != nil {
		return nil, err
	}
	for _, e := range sc.Events {
		if err := s.Schedule(e); err != nil {
			return nil, err
		}
	}
	if sc.Name != "" {
		s.logger.Info("scenario loaded",
			zap.String("scenario", sc.Name),
			zap.Int("events", len(sc.Events)),
		)
	}
	return s, nil
}

// Schedule queues e to run at the start of tick e.Tick. Events for ticks
// that have already started are rejected.
func (s *Simulation) Schedule(e scenario.Event) error {
	if e.Tick <= s.tick {
		return s.rejected("schedule event", fmt.Errorf("%w: tick %d has already run", models.ErrInvalidRequest, e.Tick))
	}
	s.schedule[e.Tick] = append(s.schedule[e.Tick], e)
	return nil
}

// Scheduled returns the number of queued events.
func (s *Simulation) Scheduled() int {
	n := 0
	for _, events := range s.schedule {
		n += len(events)
	}
	return n
}

// runScheduled applies the current tick's events in the order they were
// queued. A failing event is logged and skipped.
func (s *Simulation) runScheduled() {
	events := s.schedule[s.tick]
	delete(s.schedule, s.tick)
	for _, e := range events {
		s.logger.Info("scheduled event",
			zap.Uint64(logging.FieldTick, s.tick),
			zap.String(logging.FieldDevice, e.Target),
			zap.String(logging.FieldAction, e.Action),
		)
		_ = s.apply(e)
	}
}

func (s *Simulation) apply(e scenario.Event) error {
	pod := cmp.Or(e.Pod, StretchedPod)
	switch {
	case e.Action != "":
		return s.HandleAction(e.Target, models.Action(e.Action))
	case e.WANLatency != nil:
		return s.SetWANLatency(*e.WANLatency)
	case e.Preference != "":
		return s.SetFailoverPreference(pod, e.Preference)
	case e.ClearPreference:
		return s.ClearFailoverPreference(pod)
	}
	return fmt.Errorf("%w: empty event", models.ErrInvalidRequest)
}
