package models

import "fmt"

// DeviceKind identifies the variant of a simulated device.
type DeviceKind string

const (
	KindSwitch     DeviceKind = "switch"
	KindController DeviceKind = "controller"
	KindArray      DeviceKind = "array"
	KindMediator   DeviceKind = "mediator"
	KindHost       DeviceKind = "host"
	KindPod        DeviceKind = "pod"
	KindConnection DeviceKind = "connection"
)

// Action is an operator or scheduler command delivered to a device.
type Action string

const (
	// ActionFail takes the device offline.
	ActionFail Action = "fail"

	// ActionRecover brings a failed device back online.
	ActionRecover Action = "recover"

	// ActionPromote makes a controller primary. Only controllers accept it.
	ActionPromote Action = "promote"

	// ActionStep runs the device's per-tick logic.
	ActionStep Action = "step"

	// ActionPreStep runs before any device is stepped in a tick.
	ActionPreStep Action = "pre_step"

	// ActionPostStep runs after every device has been stepped in a tick.
	ActionPostStep Action = "post_step"
)

var validActions = map[Action]bool{
	ActionFail:     true,
	ActionRecover:  true,
	ActionPromote:  true,
	ActionStep:     true,
	ActionPreStep:  true,
	ActionPostStep: true,
}

// Valid reports whether the action is one of the recognized actions.
func (a Action) Valid() bool {
	return validActions[a]
}

// ParseAction converts a string into an Action.
// Returns ErrInvalidAction wrapped with the offending name when unrecognized.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return a, nil
}

// ControllerState is the failover state of a single array controller.
type ControllerState string

const (
	ControllerPrimary   ControllerState = "primary"
	ControllerSecondary ControllerState = "secondary"
	ControllerFailed    ControllerState = "failed"
)

// SyncState is the synchronization state of one member array of a pod.
type SyncState string

const (
	SyncAdded      SyncState = "added"
	SyncBaselining SyncState = "baselining"
	SyncSynced     SyncState = "synced"
	SyncPaused     SyncState = "paused"
	SyncOffline    SyncState = "offline"
	SyncResyncing  SyncState = "re-syncing"
)

// PodState summarizes a pod across its online member arrays.
type PodState string

const (
	// PodSynced means at least one online member is synced.
	PodSynced PodState = "synced"

	// PodPaused means every online member is paused.
	PodPaused PodState = "paused"

	// PodFailed covers every other combination, including no online member.
	PodFailed PodState = "failed"
)

// Admission is a pod's verdict on a host I/O request arriving at one member.
type Admission int

const (
	// AdmitDrop means the request is not acknowledged.
	AdmitDrop Admission = iota

	// AdmitLocal means the local member answers without replication.
	AdmitLocal

	// AdmitForward means the write is replicated to the peer before it is acknowledged.
	AdmitForward
)

func (a Admission) String() string {
	switch a {
	case AdmitLocal:
		return "local"
	case AdmitForward:
		return "forward"
	default:
		return "drop"
	}
}
