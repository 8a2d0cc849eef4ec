package util

import (
	"fmt"
	"math"
	"regexp"

	"github.com/google/uuid"

	"github.com/yaroslav/stretchsim/models"
)

// MaxNameLength is the longest accepted device or pod name.
const MaxNameLength = 63

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateName checks that a device, pod or host name is usable as a
// registry key and in URL paths.
//
// Names are lowercase, start with a letter or digit and contain only
// letters, digits, '-' and '_'. Controller names are derived from array
// names and are never validated on their own.
//
// Parameters:
//   - name: The name to validate
//
// Returns:
//   - error: models.ErrInvalidName wrapped with the reason, nil otherwise
//
// Example:
//
//	if err := util.ValidateName(req.Name); err != nil {
//	    return err
//	}
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", models.ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q is longer than %d characters", models.ErrInvalidName, name, MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", models.ErrInvalidName, name, namePattern)
	}
	return nil
}

// ValidateLatency checks that a link latency is a finite, non-negative number.
//
// Parameters:
//   - latency: The latency in simulated time units
//
// Returns:
//   - error: models.ErrInvalidRequest wrapped with the reason, nil otherwise
func ValidateLatency(latency float64) error {
	if math.IsNaN(latency) || math.IsInf(latency, 0) {
		return fmt.Errorf("%w: latency must be a finite number", models.ErrInvalidRequest)
	}
	if latency < 0 {
		return fmt.Errorf("%w: latency must not be negative, got %g", models.ErrInvalidRequest, latency)
	}
	return nil
}

// ValidateTickCount checks that a batch of ticks is between 1 and max.
//
// Parameters:
//   - count: The number of ticks requested
//   - max: The largest batch accepted
//
// Returns:
//   - error: models.ErrInvalidRequest wrapped with the reason, nil otherwise
//
// Example:
//
//	if err := util.ValidateTickCount(count, MaxTicksPerRequest); err != nil {
//	    return err
//	}
func ValidateTickCount(count, max int) error {
	if count < 1 || count > max {
		return fmt.Errorf("%w: tick count must be between 1 and %d, got %d", models.ErrInvalidRequest, max, count)
	}
	return nil
}

// ValidateUUID checks if a string is a valid UUID.
//
// Parameters:
//   - id: The string to validate as UUID
//
// Returns:
//   - error: An error if the string is not a valid UUID, nil otherwise
//
// Example:
//
//	if err := util.ValidateUUID(requestID); err != nil {
//	    requestID = uuid.New().String()
//	}
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid UUID format: %w", err)
	}
	return nil
}
