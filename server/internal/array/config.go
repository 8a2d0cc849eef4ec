// Package array models a storage array: a pair of failover controllers,
// the host entries that grant hosts access to volumes, and the pods the
// array is a member of.
package array

// Config holds per-array service latencies.
type Config struct {
	// ReadLatency is added to the response of a locally served read.
	ReadLatency float64 `yaml:"read_latency" json:"read_latency"`

	// WriteLatency is added to the response of a committed write.
	WriteLatency float64 `yaml:"write_latency" json:"write_latency"`
}

const (
	DefaultReadLatency  = 0.5
	DefaultWriteLatency = 0.1
)

// DefaultConfig returns the default latencies.
func DefaultConfig() Config {
	return Config{ReadLatency: DefaultReadLatency, WriteLatency: DefaultWriteLatency}
}

// Controller port names.
const (
	PortFC0   = "fc0"
	PortFC1   = "fc1"
	PortRep0  = "rep0"
	PortRep1  = "rep1"
	PortMgmt0 = "mgmt0"
	PortMgmt1 = "mgmt1"
)

var (
	fcPorts   = []string{PortFC0, PortFC1}
	repPorts  = []string{PortRep0, PortRep1}
	mgmtPorts = []string{PortMgmt0, PortMgmt1}
)
