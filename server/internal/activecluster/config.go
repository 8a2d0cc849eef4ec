// Package activecluster implements the stretched pod: a volume group
// synchronously replicated between two arrays, with one synchronization
// state machine per member array.
//
// A member is stepped once per tick by its array's primary controller. The
// step measures reachability of the peer array and of the mediator by
// sending heartbeats whose acks arrive synchronously, then moves the member
// through added, baselining, synced, paused, offline and re-syncing.
//
// Connectivity flags follow a fixed per-tick ownership:
//   - PreStep moves each member's measured flags to its last-tick values and
//     clears them.
//   - Step sets the stepped member's flags from the acks it receives and
//     reads the peer's flags through a view: this tick's measurement if the
//     peer has already stepped, else last tick's.
//   - Status reports the same view.
package activecluster

import "github.com/yaroslav/stretchsim/models"

// Config holds the protocol thresholds of a pod.
type Config struct {
	// BaselineTicks is the number of consecutive connected ticks a joining
	// member spends baselining before it becomes synced.
	BaselineTicks int `yaml:"baseline_ticks" json:"baseline_ticks"`

	// PreElectTicks is how many healthy ticks without mediator reachability
	// pass before one member is pre-elected.
	PreElectTicks int `yaml:"pre_elect_ticks" json:"pre_elect_ticks"`

	// WANLatencyThreshold is the round-trip heartbeat latency at or above
	// which the peer counts as unreachable.
	WANLatencyThreshold float64 `yaml:"wan_latency_threshold" json:"wan_latency_threshold"`
}

const (
	DefaultBaselineTicks       = 1
	DefaultPreElectTicks       = 2
	DefaultWANLatencyThreshold = 12.0
)

// DefaultConfig returns the default protocol thresholds.
func DefaultConfig() Config {
	return Config{
		BaselineTicks:       DefaultBaselineTicks,
		PreElectTicks:       DefaultPreElectTicks,
		WANLatencyThreshold: DefaultWANLatencyThreshold,
	}
}

// Member is the array side of a pod membership.
type Member interface {
	Name() string
	IsOnline() bool

	// ControllerNames lists the array's controllers; replication traffic
	// is addressed to all of them and answered by the primary.
	ControllerNames() []string

	// MapsVolume reports whether any host entry on the array maps volume.
	MapsVolume(volume string) bool
}

// Sender is the primary controller driving a member's step.
type Sender interface {
	// SendReplication sends to the given peer controllers over every
	// replication port.
	SendReplication(peerControllers []string, tag models.MessageTag, payload any)

	// SendManagement sends to dst/dstPort over every management port.
	SendManagement(dst, dstPort string, tag models.MessageTag, payload any)
}
