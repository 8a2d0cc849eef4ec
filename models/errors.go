package models

import "errors"

// Common error types used throughout the stretchsim application.
// Configuration misuse is reported with these errors and never aborts a
// tick; the caller logs the error and the simulation state is unchanged.

var (
	// ErrNotFound indicates the requested device, pod or connection does not exist.
	// HTTP equivalent: 404 Not Found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a duplicate add of a device, volume, member or host entry.
	// HTTP equivalent: 409 Conflict
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidAction indicates the action name is not recognized by the target device.
	// HTTP equivalent: 400 Bad Request
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidName indicates a device or pod name is empty or malformed.
	// HTTP equivalent: 400 Bad Request
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidRequest indicates the request body or parameters are invalid.
	// HTTP equivalent: 400 Bad Request
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidVolumeName indicates a volume name is empty or carries another pod's prefix.
	// HTTP equivalent: 400 Bad Request
	ErrInvalidVolumeName = errors.New("invalid volume name")

	// ErrPodFull indicates an attempt to stretch a pod beyond two arrays.
	// HTTP equivalent: 409 Conflict
	ErrPodFull = errors.New("pod already has two member arrays")

	// ErrNotMember indicates the array is not a member of the pod.
	// HTTP equivalent: 409 Conflict
	ErrNotMember = errors.New("array is not a member of the pod")

	// ErrLastMember indicates an attempt to remove the only remaining member of a pod.
	// HTTP equivalent: 409 Conflict
	ErrLastMember = errors.New("cannot remove the last member array of a pod")

	// ErrVolumeInUse indicates a pod volume is still mapped in a host entry.
	// HTTP equivalent: 409 Conflict
	ErrVolumeInUse = errors.New("pod volume is still mapped to a host")

	// ErrPortInUse indicates the named port already has a connection attached.
	// HTTP equivalent: 409 Conflict
	ErrPortInUse = errors.New("port already connected")

	// ErrUnknownPort indicates the named port does not exist on the device.
	// HTTP equivalent: 404 Not Found
	ErrUnknownPort = errors.New("unknown port")

	// ErrInvalidScenario indicates a scenario file failed validation.
	// HTTP equivalent: 400 Bad Request
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrRateLimitExceeded indicates too many requests from this client.
	// HTTP equivalent: 429 Too Many Requests
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInternalError indicates an unexpected server-side error.
	// HTTP equivalent: 500 Internal Server Error
	ErrInternalError = errors.New("internal server error")

	// ErrDatabaseError indicates a journal operation failed.
	// HTTP equivalent: 500 Internal Server Error
	ErrDatabaseError = errors.New("database error")
)
