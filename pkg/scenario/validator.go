package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yaroslav/stretchsim/models"
)

// Validate parses and checks a scenario document.
//
// This function validates:
// - Document size (must be <= 1 MiB)
// - YAML syntax, rejecting unknown fields
// - Protocol thresholds (non-negative, finite)
// - Topology options (known replication, consistent access options)
// - Events (one kind per event, known actions, non-negative latencies)
//
// Parameters:
//   - data: The scenario document as bytes
//
// Returns:
//   - *ValidationResult: Validation result with the parsed scenario
func Validate(data []byte) *ValidationResult {
	s, err := Parse(data)
	if err != nil {
		return &ValidationResult{Valid: false, Error: err}
	}
	return &ValidationResult{Valid: true, Scenario: s}
}

// Parse decodes and validates a scenario. An empty document is the default
// scenario.
func Parse(data []byte) (*Scenario, error) {
	if len(data) > MaxScenarioSize {
		return nil, ErrScenarioTooLarge
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario: %w", err)
	}
	if info.Size() > MaxScenarioSize {
		return nil, ErrScenarioTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks a scenario built in code.
func (s *Scenario) Validate() error {
	if s.Ticks < 0 || s.Ticks > MaxTicks {
		return fmt.Errorf("%w: ticks must be between 0 and %d", models.ErrInvalidScenario, MaxTicks)
	}
	if err := s.Protocol.validate(); err != nil {
		return err
	}
	if err := s.Topology.validate(); err != nil {
		return err
	}
	for i, e := range s.Events {
		if err := e.validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

func (p Protocol) validate() error {
	ints := map[string]int{
		"baseline_ticks":      p.BaselineTicks,
		"pre_elect_ticks":     p.PreElectTicks,
		"decision_delay":      p.DecisionDelay,
		"preference_override": p.PreferenceOverride,
	}
	for name, v := range ints {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidProtocol, name)
		}
	}
	floats := map[string]float64{
		"wan_latency_threshold": p.WANLatencyThreshold,
		"read_latency":          p.ReadLatency,
		"write_latency":         p.WriteLatency,
	}
	for name, v := range floats {
		if !validLatency(v) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidProtocol, name)
		}
	}
	return nil
}

func (t Topology) validate() error {
	switch t.Replication {
	case "", ReplicationEthernet, ReplicationFC:
	default:
		return fmt.Errorf("%w: unknown replication %q", ErrInvalidTopology, t.Replication)
	}
	if t.WANLatency != nil && !validLatency(*t.WANLatency) {
		return fmt.Errorf("%w: wan_latency must be a non-negative number", ErrInvalidTopology)
	}
	if !validLatency(t.WANBandwidth) {
		return fmt.Errorf("%w: wan_bandwidth must be a non-negative number", ErrInvalidTopology)
	}
	if t.PreferLocalArray && !t.UniformHostAccess {
		return fmt.Errorf("%w: prefer_local_array requires uniform_host_access", ErrInvalidTopology)
	}
	return nil
}

func (e Event) validate() error {
	if e.Tick == 0 {
		return fmt.Errorf("%w: tick must be at least 1", ErrInvalidEvent)
	}
	kinds := 0
	if e.Target != "" || e.Action != "" {
		kinds++
		if e.Target == "" || e.Action == "" {
			return fmt.Errorf("%w: target and action go together", ErrInvalidEvent)
		}
		if _, err := models.ParseAction(e.Action); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	}
	if e.WANLatency != nil {
		kinds++
		if !validLatency(*e.WANLatency) {
			return fmt.Errorf("%w: wan_latency must be a non-negative number", ErrInvalidEvent)
		}
	}
	if e.Preference != "" {
		kinds++
	}
	if e.ClearPreference {
		kinds++
	}
	if e.Pod != "" && e.Preference == "" && !e.ClearPreference {
		return fmt.Errorf("%w: pod is only used with a preference change", ErrInvalidEvent)
	}
	if kinds != 1 {
		return fmt.Errorf("%w: exactly one of action, wan_latency, preference or clear_preference is required", ErrInvalidEvent)
	}
	return nil
}

func validLatency(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
