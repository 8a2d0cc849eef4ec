// Package scenario loads and validates stretched-cluster scenario files.
//
// A scenario is a YAML document with four parts:
//   - seed: the random seed for pre-election and mediation tie-breaks
//   - protocol: pod, mediator and array thresholds (zero keeps the default)
//   - topology: options for the two-site stretched cluster
//   - events: a timed script of actions applied at the start of a tick
//
// Example:
//
//	name: wan-degradation
//	seed: 42
//	ticks: 20
//	topology:
//	  wan_latency: 3
//	  replication: ethernet
//	  failover_preference: site1fa1
//	events:
//	  - tick: 5
//	    wan_latency: 30
//	  - tick: 10
//	    target: site1fa1
//	    action: fail
package scenario

import (
	"fmt"

	"github.com/yaroslav/stretchsim/models"
)

const (
	// MaxScenarioSize is the maximum accepted scenario file size (1 MiB).
	MaxScenarioSize = 1 << 20

	// MaxTicks bounds the run length of a scenario.
	MaxTicks = 100_000

	// ReplicationEthernet replicates over dedicated replication switches.
	ReplicationEthernet = "ethernet"

	// ReplicationFC replicates over the FC fabric.
	ReplicationFC = "fc"
)

// Common scenario validation errors. All of them wrap
// models.ErrInvalidScenario.
var (
	// ErrScenarioTooLarge indicates the file exceeds the size limit.
	ErrScenarioTooLarge = fmt.Errorf("%w: scenario exceeds 1 MiB size limit", models.ErrInvalidScenario)

	// ErrInvalidYAML indicates the document is not valid YAML for a scenario.
	ErrInvalidYAML = fmt.Errorf("%w: scenario contains invalid YAML", models.ErrInvalidScenario)

	// ErrInvalidProtocol indicates a negative or non-finite threshold.
	ErrInvalidProtocol = fmt.Errorf("%w: invalid protocol settings", models.ErrInvalidScenario)

	// ErrInvalidTopology indicates inconsistent topology options.
	ErrInvalidTopology = fmt.Errorf("%w: invalid topology", models.ErrInvalidScenario)

	// ErrInvalidEvent indicates a malformed scripted event.
	ErrInvalidEvent = fmt.Errorf("%w: invalid event", models.ErrInvalidScenario)
)

// Scenario is a complete simulation setup.
type Scenario struct {
	Name string `yaml:"name" json:"name"`

	// Seed of zero keeps the default seed.
	Seed int64 `yaml:"seed" json:"seed"`

	// Ticks is the run length used by headless runs.
	Ticks int `yaml:"ticks" json:"ticks"`

	Protocol Protocol `yaml:"protocol" json:"protocol"`
	Topology Topology `yaml:"topology" json:"topology"`
	Events   []Event  `yaml:"events" json:"events"`
}

// Protocol overrides component thresholds. Zero values keep the defaults.
type Protocol struct {
	BaselineTicks       int     `yaml:"baseline_ticks" json:"baseline_ticks"`
	PreElectTicks       int     `yaml:"pre_elect_ticks" json:"pre_elect_ticks"`
	WANLatencyThreshold float64 `yaml:"wan_latency_threshold" json:"wan_latency_threshold"`
	DecisionDelay       int     `yaml:"decision_delay" json:"decision_delay"`
	PreferenceOverride  int     `yaml:"preference_override" json:"preference_override"`
	ReadLatency         float64 `yaml:"read_latency" json:"read_latency"`
	WriteLatency        float64 `yaml:"write_latency" json:"write_latency"`
}

// Topology holds the options of the two-site stretched cluster.
type Topology struct {
	// WANLatency is the round-trip WAN latency. Nil keeps the default of 3.
	WANLatency *float64 `yaml:"wan_latency" json:"wan_latency,omitempty"`

	// WANBandwidth of zero keeps the default of 10.
	WANBandwidth float64 `yaml:"wan_bandwidth" json:"wan_bandwidth"`

	// Replication is "ethernet" (default) or "fc".
	Replication string `yaml:"replication" json:"replication"`

	UniformHostAccess  bool   `yaml:"uniform_host_access" json:"uniform_host_access"`
	PreferLocalArray   bool   `yaml:"prefer_local_array" json:"prefer_local_array"`
	FailoverPreference string `yaml:"failover_preference" json:"failover_preference"`

	// Workload of nil keeps the default: both hosts write.
	Workload *bool `yaml:"workload" json:"workload,omitempty"`
}

// Event is applied at the start of Tick, before the tick's pre_step. An
// event sets exactly one of: Target with Action, WANLatency, Preference
// or ClearPreference.
type Event struct {
	Tick uint64 `yaml:"tick" json:"tick"`

	Target string `yaml:"target,omitempty" json:"target,omitempty"`
	Action string `yaml:"action,omitempty" json:"action,omitempty"`

	WANLatency *float64 `yaml:"wan_latency,omitempty" json:"wan_latency,omitempty"`

	// Preference names the array to prefer for Pod.
	Pod             string `yaml:"pod,omitempty" json:"pod,omitempty"`
	Preference      string `yaml:"preference,omitempty" json:"preference,omitempty"`
	ClearPreference bool   `yaml:"clear_preference,omitempty" json:"clear_preference,omitempty"`
}

// ValidationResult holds the result of scenario validation.
type ValidationResult struct {
	// Valid indicates if the scenario passed all validations.
	Valid bool

	// Error contains the validation error if Valid is false.
	Error error

	// Scenario is the parsed scenario when Valid is true.
	Scenario *Scenario
}
