// Package service exposes the simulation to concurrent callers: the HTTP
// API and the auto-tick clock share one SimulationService, which owns the
// simulation and feeds every tick's transitions to the journal.
package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/scenario"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/sim"
	"github.com/yaroslav/stretchsim/server/internal/util"
)

// MaxTicksPerRequest bounds a single tick batch.
const MaxTicksPerRequest = 1000

// SimulationService serializes access to a simulation built from a scenario.
type SimulationService struct {
	mu       sync.Mutex
	sim      *sim.Simulation
	scenario *scenario.Scenario
	journal  *Journal
	logger   *zap.Logger
}

// NewSimulationService builds the scenario's cluster. The journal, if not
// nil, records every tick's transitions.
//
// Parameters:
//   - sc: Scenario to build; nil is the default scenario
//   - journal: Transition journal, may be nil
//   - logger: Zap logger
//
// Returns:
//   - Configured SimulationService
//   - Error if the scenario is invalid or cannot be built
func NewSimulationService(sc *scenario.Scenario, journal *Journal, logger *zap.Logger) (*SimulationService, error) {
	if sc == nil {
		sc = &scenario.Scenario{}
	}
	s := &SimulationService{
		scenario: sc,
		journal:  journal,
		logger:   logging.Component(logger, "service"),
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SimulationService) build() error {
	sm, err := sim.NewFromScenario(s.scenario, s.logger)
	if err != nil {
		return fmt.Errorf("failed to build simulation: %w", err)
	}
	if s.journal != nil {
		sm.AddObserver(s.journal)
	}
	s.sim = sm
	return nil
}

// Reset rebuilds the scenario from scratch and clears the journal.
func (s *SimulationService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.build(); err != nil {
		return err
	}
	if s.journal != nil {
		if err := s.journal.Clear(); err != nil {
			return err
		}
	}
	s.logger.Info("simulation reset", zap.String("scenario", s.scenario.Name))
	return nil
}

// Scenario returns the scenario the simulation was built from.
func (s *SimulationService) Scenario() *scenario.Scenario { return s.scenario }

// CurrentTick returns the number of completed ticks.
func (s *SimulationService) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.CurrentTick()
}

// Status returns a snapshot of the whole simulation.
func (s *SimulationService) Status() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Snapshot()
}

// Device returns the status of a named array, controller, switch, mediator,
// host, pod or connection.
func (s *SimulationService) Device(name string) (*models.DeviceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, ok := s.sim.Kind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, name)
	}
	snap := s.sim.Snapshot()
	if st, ok := findStatus(snap, kind, name); ok {
		return &models.DeviceStatus{Name: name, Kind: kind, Status: st}, nil
	}
	return nil, fmt.Errorf("%w: %s", models.ErrNotFound, name)
}

func findStatus(snap models.Snapshot, kind models.DeviceKind, name string) (any, bool) {
	switch kind {
	case models.KindArray:
		for _, a := range snap.Arrays {
			if a.Name == name {
				return a, true
			}
		}
	case models.KindController:
		for _, a := range snap.Arrays {
			for _, c := range a.Controllers {
				if c.Name == name {
					return c, true
				}
			}
		}
	case models.KindSwitch:
		for _, sw := range snap.Switches {
			if sw.Name == name {
				return sw, true
			}
		}
	case models.KindMediator:
		for _, m := range snap.Mediators {
			if m.Name == name {
				return m, true
			}
		}
	case models.KindHost:
		for _, h := range snap.Hosts {
			if h.Name == name {
				return h, true
			}
		}
	case models.KindPod:
		for _, p := range snap.Pods {
			if p.Name == name {
				return p, true
			}
		}
	case models.KindConnection:
		for _, c := range snap.Connections {
			if c.Name == name {
				return c, true
			}
		}
	}
	return nil, false
}

// Action delivers a named action to a device.
func (s *SimulationService) Action(name, action string) error {
	a, err := models.ParseAction(action)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.HandleAction(name, a)
}

// Tick advances count ticks and returns the transitions they caused.
func (s *SimulationService) Tick(count int) ([]models.Transition, error) {
	if err := util.ValidateTickCount(count, MaxTicksPerRequest); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Transition
	for i := 0; i < count; i++ {
		all = append(all, s.sim.Tick()...)
	}
	return all, nil
}

// SetFailoverPreference sets the pod's preferred array.
func (s *SimulationService) SetFailoverPreference(pod, array string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.SetFailoverPreference(pod, array)
}

// ClearFailoverPreference removes the pod's preferred array.
func (s *SimulationService) ClearFailoverPreference(pod string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.ClearFailoverPreference(pod)
}

// SetWANLatency sets the round-trip latency of the WAN.
func (s *SimulationService) SetWANLatency(total float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.SetWANLatency(total)
}
