package models

// MessageTag identifies the kind of message carried by a packet.
// The set of tags is closed; Valid reports membership.
type MessageTag string

const (
	// Host I/O.
	TagListVolumes MessageTag = "list_volumes"
	TagVolumes     MessageTag = "volumes"
	TagRead        MessageTag = "read"
	TagReadAck     MessageTag = "read_ack"
	TagWrite       MessageTag = "write"
	TagWriteAck    MessageTag = "write_ack"

	// Array to array replication traffic.
	TagHeartbeat    MessageTag = "ac_heartbeat"
	TagHeartbeatAck MessageTag = "ac_heartbeat_ack"
	TagReplicaWrite MessageTag = "ac_write"
	TagReplicaAck   MessageTag = "ac_write_ack"

	// Array to mediator traffic.
	TagMediatorHeartbeat    MessageTag = "ac_mediator_heartbeat"
	TagMediatorHeartbeatAck MessageTag = "ac_mediator_heartbeat_ack"
	TagMediationRequest     MessageTag = "ac_mediation_request"
	TagMediationWon         MessageTag = "ac_mediation_won_ack"
	TagMediationLost        MessageTag = "ac_mediation_lost_ack"
)

var messageTags = map[MessageTag]bool{
	TagListVolumes:          true,
	TagVolumes:              true,
	TagRead:                 true,
	TagReadAck:              true,
	TagWrite:                true,
	TagWriteAck:             true,
	TagHeartbeat:            true,
	TagHeartbeatAck:         true,
	TagReplicaWrite:         true,
	TagReplicaAck:           true,
	TagMediatorHeartbeat:    true,
	TagMediatorHeartbeatAck: true,
	TagMediationRequest:     true,
	TagMediationWon:         true,
	TagMediationLost:        true,
}

// Valid reports whether the tag belongs to the closed set of message tags.
func (t MessageTag) Valid() bool {
	return messageTags[t]
}

// IsDataAck reports whether the tag acknowledges host data I/O.
// Connections carrying these tags are marked as flowing for the tick.
func (t MessageTag) IsDataAck() bool {
	return t == TagReadAck || t == TagWriteAck
}

// IOPayload is carried by read and write requests and their acknowledgements.
type IOPayload struct {
	// ID identifies the request at the issuing host so duplicate acks can be ignored
	ID uint64 `json:"id"`

	// Volume is the fully qualified volume name (pod volumes use "<pod>::<volume>")
	Volume string `json:"volume"`
}

// VolumeEntry is one element of a volumes listing returned to a host.
type VolumeEntry struct {
	// Name is the fully qualified volume name
	Name string `json:"name"`

	// Optimized is false when the host prefers other arrays for this path
	Optimized bool `json:"optimized"`

	// Ready is false when the volume cannot currently serve I/O through this array
	Ready bool `json:"ready"`
}

// ReplicationPayload is carried by heartbeats and forwarded writes between arrays.
type ReplicationPayload struct {
	// Pod is the pod the message concerns
	Pod string `json:"pod"`

	// Array is the sending array
	Array string `json:"array"`

	// WriteID correlates an ac_write with its ack; zero for heartbeats
	WriteID uint64 `json:"write_id,omitempty"`
}

// MediationRequest asks the mediator for write authority over a pod.
// Fields are copied at send time; the mediator never reads pod state live.
type MediationRequest struct {
	// Array is the requesting array
	Array string `json:"array"`

	// Pod is the pod in dispute
	Pod string `json:"pod"`

	// Epoch is the requester's last known mediation epoch for the pod
	Epoch uint64 `json:"epoch"`

	// FailoverPreference is the pod's preferred array at send time, or empty
	FailoverPreference string `json:"failover_preference,omitempty"`

	// TicksSinceSent is maintained by the mediator while the request is pending
	TicksSinceSent int `json:"ticks_since_sent"`
}

// MediationResponse answers a mediation request.
type MediationResponse struct {
	// Pod is the pod in dispute
	Pod string `json:"pod"`

	// Array is the requester this response is addressed to
	Array string `json:"array"`

	// Epoch is the epoch of the request being answered
	Epoch uint64 `json:"epoch"`

	// Won reports whether the requester was granted write authority
	Won bool `json:"won"`
}
