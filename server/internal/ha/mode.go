// Package ha implements intra-array controller failover.
//
// Each array has two controllers paired as siblings. Failover between them
// never needs outside arbitration: a secondary takes over as soon as its
// sibling is not primary. Arbitration between arrays is the pod's business.
package ha

import "github.com/yaroslav/stretchsim/models"

// Mode is the failover state of a controller.
type Mode = models.ControllerState

const (
	// ModePrimary serves host I/O and drives the array's pods.
	ModePrimary = models.ControllerPrimary

	// ModeSecondary forwards host I/O to its sibling.
	ModeSecondary = models.ControllerSecondary

	// ModeFailed is offline.
	ModeFailed = models.ControllerFailed
)

// ValidateMode ensures the provided mode is one of the supported values.
func ValidateMode(mode Mode) bool {
	return mode == ModePrimary || mode == ModeSecondary || mode == ModeFailed
}
