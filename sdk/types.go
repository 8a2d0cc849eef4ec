package sdk

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/yaroslav/stretchsim/models"
)

// Device is the status of one named device, pod or connection. Status holds
// the raw kind-specific document; use Decode or the typed accessors.
type Device struct {
	Name   string            `json:"name"`
	Kind   models.DeviceKind `json:"kind"`
	Status json.RawMessage   `json:"status"`
}

// Decode unmarshals Status into v.
func (d *Device) Decode(v any) error {
	if err := json.Unmarshal(d.Status, v); err != nil {
		return fmt.Errorf("failed to decode %s status: %w", d.Kind, err)
	}
	return nil
}

// Pod returns the status of a pod device.
func (d *Device) Pod() (*models.PodStatus, error) {
	if d.Kind != models.KindPod {
		return nil, fmt.Errorf("%s is a %s, not a pod", d.Name, d.Kind)
	}
	var p models.PodStatus
	if err := d.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Array returns the status of an array device.
func (d *Device) Array() (*models.ArrayStatus, error) {
	if d.Kind != models.KindArray {
		return nil, fmt.Errorf("%s is a %s, not an array", d.Name, d.Kind)
	}
	var a models.ArrayStatus
	if err := d.Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// HealthStatus is the server readiness report.
type HealthStatus struct {
	// Status is "ok" when the server is ready.
	Status string `json:"status"`

	// RunID identifies the server run.
	RunID string `json:"run_id"`

	// Journal is "connected", or "disabled" when the server keeps no journal.
	Journal string `json:"journal"`
}

// TransitionFilter narrows a transition journal query. Zero fields are not
// sent.
type TransitionFilter struct {
	// FromTick and ToTick bound the tick range, both inclusive.
	FromTick uint64
	ToTick   uint64

	Kind    models.TransitionKind
	Subject string

	// Limit of zero uses the server default.
	Limit int
}

// query encodes the filter as URL query parameters.
func (f TransitionFilter) query() url.Values {
	q := url.Values{}
	if f.FromTick != 0 {
		q.Set("from", strconv.FormatUint(f.FromTick, 10))
	}
	if f.ToTick != 0 {
		q.Set("to", strconv.FormatUint(f.ToTick, 10))
	}
	if f.Kind != "" {
		q.Set("kind", string(f.Kind))
	}
	if f.Subject != "" {
		q.Set("subject", f.Subject)
	}
	if f.Limit != 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// apiResponse is the envelope of every successful response.
type apiResponse struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// apiErrorResponse is the envelope of every error response.
type apiErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
