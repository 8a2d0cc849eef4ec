package models

// DeviceStatus is the status of one named component. Status holds the
// kind-specific struct (ArrayStatus, ControllerStatus, PodStatus, ...).
type DeviceStatus struct {
	// Name is the device, pod or connection name
	Name string `json:"name"`

	// Kind determines the shape of Status
	Kind DeviceKind `json:"kind"`

	Status any `json:"status"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	// RunID identifies the server run that produced the snapshot
	RunID string `json:"run_id"`

	// Scenario is the name of the loaded scenario, empty for the default
	Scenario string `json:"scenario,omitempty"`

	// AutoTick reports whether the server advances ticks on its own
	AutoTick bool `json:"auto_tick"`

	Snapshot Snapshot `json:"snapshot"`
}

// ActionResponse is returned after an action was delivered to a device.
type ActionResponse struct {
	Device string `json:"device"`
	Action Action `json:"action"`

	// Tick is the number of completed ticks when the action was applied
	Tick uint64 `json:"tick"`
}

// TickResponse is returned by POST /api/v1/tick.
type TickResponse struct {
	// Tick is the number of completed ticks after the batch
	Tick uint64 `json:"tick"`

	// Transitions lists every change the batch caused, in order
	Transitions []Transition `json:"transitions"`
}

// FailoverPreferenceRequest sets a pod's preferred array.
type FailoverPreferenceRequest struct {
	Array string `json:"array" binding:"required"`
}

// WANLatencyRequest sets the round-trip latency between the two sites.
type WANLatencyRequest struct {
	// Latency is split evenly over both WAN hops
	Latency *float64 `json:"latency" binding:"required"`
}

// TransitionListResponse is returned by GET /api/v1/transitions.
type TransitionListResponse struct {
	Transitions []Transition `json:"transitions"`

	// Total is the number of journal entries, ignoring filters
	Total int `json:"total"`
}
