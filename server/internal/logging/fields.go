// Package logging provides structured logging utilities for the stretchsim server.
package logging

// Standard field names for consistent logging across the application.
const (
	// FieldTick is the simulation tick during which the event happened.
	FieldTick = "tick"

	// FieldDevice is the name of the simulated device emitting or receiving the event.
	FieldDevice = "device"

	// FieldArray is the name of a FlashArray.
	FieldArray = "array"

	// FieldController is the name of an array controller.
	FieldController = "controller"

	// FieldPod is the name of a stretched pod.
	FieldPod = "pod"

	// FieldPeer is the name of the peer array in a pod.
	FieldPeer = "peer"

	// FieldEpoch is a pod mediation epoch.
	FieldEpoch = "epoch"

	// FieldAction is an action delivered to a device.
	FieldAction = "action"

	// FieldConnection is the name of a network link.
	FieldConnection = "connection"

	// FieldTag is the message tag of a packet.
	FieldTag = "tag"

	// FieldLatency is the cumulative simulated latency of a packet.
	FieldLatency = "latency"

	// FieldFromState is the state before a transition.
	FieldFromState = "from"

	// FieldToState is the state after a transition.
	FieldToState = "to"

	// FieldRequestID is a unique identifier for each HTTP request.
	FieldRequestID = "request_id"

	// FieldRunID identifies one simulation run of the server.
	FieldRunID = "run_id"

	// FieldDuration is the duration of an operation in milliseconds.
	FieldDuration = "duration_ms"

	// FieldStatusCode is the HTTP status code of a response.
	FieldStatusCode = "status_code"

	// FieldMethod is the HTTP method of a request.
	FieldMethod = "method"

	// FieldPath is the URL path of an HTTP request.
	FieldPath = "path"

	// FieldRemoteAddr is the client's remote address.
	FieldRemoteAddr = "remote_addr"

	// FieldUserAgent is the client's user agent string.
	FieldUserAgent = "user_agent"

	// FieldError is the error message or description.
	FieldError = "error"

	// FieldComponent identifies the component generating the log.
	FieldComponent = "component"
)
