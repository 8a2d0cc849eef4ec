package models

// ControllerStatus reports the failover state of one controller.
type ControllerStatus struct {
	// Name is the controller name ("<array>-ct0", "<array>-ct1")
	Name string `json:"name"`

	// Array is the owning array
	Array string `json:"array"`

	// State is primary, secondary or failed
	State ControllerState `json:"state"`
}

// HostEntryStatus describes one host entry on an array.
type HostEntryStatus struct {
	// Host is the host name the entry grants access to
	Host string `json:"host"`

	// Volumes are the mapped volume names
	Volumes []string `json:"volumes"`

	// PreferredArrays lists arrays the host prefers; empty means uniform access
	PreferredArrays []string `json:"preferred_arrays,omitempty"`
}

// ArrayStatus reports an array, its controllers and host entries.
type ArrayStatus struct {
	Name        string             `json:"name"`
	Online      bool               `json:"online"`
	Controllers []ControllerStatus `json:"controllers"`
	Pods        []string           `json:"pods"`
	HostEntries []HostEntryStatus  `json:"host_entries"`
}

// PodArrayStatus reports the state of one member array of a pod.
type PodArrayStatus struct {
	// Array is the member array name
	Array string `json:"array"`

	// State is the synchronization state
	State SyncState `json:"state"`

	// Writable is true when the member is synced and may acknowledge writes
	Writable bool `json:"writable"`

	// PeerConnected is the last measured array-to-array reachability
	PeerConnected bool `json:"peer_connected"`

	// MediatorConnected is the last measured array-to-mediator reachability
	MediatorConnected bool `json:"mediator_connected"`

	PreElected bool `json:"pre_elected"`
	Elected    bool `json:"elected"`

	// LastKnownEpoch is the epoch this member last observed while synced
	LastKnownEpoch uint64 `json:"last_known_epoch"`
}

// PodStatus reports a pod and its member arrays.
type PodStatus struct {
	Name               string           `json:"name"`
	State              PodState         `json:"state"`
	Stretched          bool             `json:"stretched"`
	Forwarding         bool             `json:"forwarding"`
	Epoch              uint64           `json:"epoch"`
	FailoverPreference string           `json:"failover_preference,omitempty"`
	Mediator           string           `json:"mediator"`
	Volumes            []string         `json:"volumes"`
	Arrays             []PodArrayStatus `json:"arrays"`
}

// MediationStatus reports the mediator's state for one pod.
type MediationStatus struct {
	Pod       string   `json:"pod"`
	Epoch     uint64   `json:"epoch"`
	HeardFrom []string `json:"heard_from"`
	Decision  string   `json:"decision,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Elapsed   int      `json:"elapsed"`
}

// MediatorStatus reports a mediator device.
type MediatorStatus struct {
	Name    string            `json:"name"`
	Online  bool              `json:"online"`
	Pending int               `json:"pending"`
	Pods    []MediationStatus `json:"pods"`
}

// SwitchStatus reports a switch device.
type SwitchStatus struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Ports  int    `json:"ports"`
}

// ConnectionStatus reports a link. DataFlowing is for rendering only.
type ConnectionStatus struct {
	Name        string  `json:"name"`
	Online      bool    `json:"online"`
	Latency     float64 `json:"latency"`
	Bandwidth   float64 `json:"bandwidth"`
	WAN         bool    `json:"wan"`
	DataFlowing bool    `json:"data_flowing"`
}

// HostStatus reports a host endpoint and its I/O counters.
type HostStatus struct {
	Name               string   `json:"name"`
	Online             bool     `json:"online"`
	Volume             string   `json:"volume,omitempty"`
	ReadyPaths         []string `json:"ready_paths"`
	ReadsSent          uint64   `json:"reads_sent"`
	ReadsAcked         uint64   `json:"reads_acked"`
	LastReadLatency    float64  `json:"last_read_latency"`
	WritesSent         uint64   `json:"writes_sent"`
	WritesAcked        uint64   `json:"writes_acked"`
	LastWriteLatency   float64  `json:"last_write_latency"`
	LastWriteBandwidth float64  `json:"last_write_bandwidth"`
}

// Snapshot is the full simulation status after a tick.
type Snapshot struct {
	Tick        uint64             `json:"tick"`
	Arrays      []ArrayStatus      `json:"arrays"`
	Pods        []PodStatus        `json:"pods"`
	Mediators   []MediatorStatus   `json:"mediators"`
	Switches    []SwitchStatus     `json:"switches"`
	Hosts       []HostStatus       `json:"hosts"`
	Connections []ConnectionStatus `json:"connections"`
}

// TransitionKind classifies a reported state change.
type TransitionKind string

const (
	TransitionController TransitionKind = "controller"
	TransitionPodState   TransitionKind = "pod_state"
	TransitionElection   TransitionKind = "election"
	TransitionEpoch      TransitionKind = "epoch"
	TransitionMediation  TransitionKind = "mediation"
	TransitionLink       TransitionKind = "link"
)

// Transition is a state change detected between two consecutive snapshots.
type Transition struct {
	// Tick is the tick at whose end the change was observed
	Tick uint64 `json:"tick"`

	// Kind classifies the change
	Kind TransitionKind `json:"kind"`

	// Subject names what changed, e.g. "site1fa1-ct0" or "pod1/site2fa1"
	Subject string `json:"subject"`

	From   string `json:"from"`
	To     string `json:"to"`
	Detail string `json:"detail,omitempty"`
}
