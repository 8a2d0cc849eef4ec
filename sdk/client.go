// Package sdk is a Go client for the stretchsim-server control API.
//
// Typical use:
//
//	client, err := sdk.NewClient(sdk.ClientConfig{BaseURLs: []string{"http://localhost:8080"}})
//	if err != nil {
//		return err
//	}
//	if _, err := client.Action(ctx, "site2fa1", models.ActionFail); err != nil {
//		return err
//	}
//	res, err := client.Tick(ctx, 5)
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yaroslav/stretchsim/models"
)

// Client talks to one stretchsim-server, falling back to the next configured
// URL when a server cannot be reached.
type Client struct {
	// BaseURLs is the list of server URLs.
	BaseURLs []string

	// HTTPClient is the HTTP client used for requests.
	HTTPClient *http.Client

	// RetryAttempts is the number of times to retry failed idempotent requests.
	RetryAttempts int

	// RetryWaitMin is the minimum wait time between retries.
	RetryWaitMin time.Duration

	// RetryWaitMax is the maximum wait time between retries.
	RetryWaitMax time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// NewClient creates a new SDK client with the given configuration.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		BaseURLs:      config.BaseURLs,
		HTTPClient:    config.HTTPClient,
		RetryAttempts: config.RetryAttempts,
		RetryWaitMin:  config.RetryWaitMin,
		RetryWaitMax:  config.RetryWaitMax,
		UserAgent:     config.UserAgent,
	}, nil
}

// doRequest sends the request to each base URL in turn until one answers.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if len(c.BaseURLs) == 0 {
		return nil, ErrNoBaseURLs
	}

	var lastErr error
	for _, baseURL := range c.BaseURLs {
		resp, err := c.doRequestWithRetry(ctx, method, baseURL+path, body)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrAllInstancesFailed, lastErr)
}

// parseErrorResponse builds an *APIError from a non-2xx response.
func parseErrorResponse(resp *http.Response) error {
	defer drainAndCloseBody(resp)

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body apiErrorResponse
	if data, err := io.ReadAll(resp.Body); err == nil && json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
		apiErr.RequestID = body.RequestID
		if body.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(body.RetryAfter) * time.Second
		}
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}

	return apiErr
}

// doJSONRequest sends reqBody as JSON and decodes the data field of the
// response envelope into respData. It returns the envelope message.
func (c *Client) doJSONRequest(ctx context.Context, method, path string, reqBody, respData any) (string, error) {
	var body []byte
	if reqBody != nil {
		var err error
		if body, err = json.Marshal(reqBody); err != nil {
			return "", fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseErrorResponse(resp)
	}
	defer drainAndCloseBody(resp)

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if respData != nil {
		if len(envelope.Data) == 0 {
			return "", errors.New("response has no data")
		}
		if err := json.Unmarshal(envelope.Data, respData); err != nil {
			return "", fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return envelope.Message, nil
}

// Health reports whether the server is ready. A server whose journal is
// unavailable returns an *APIError wrapping ErrServerError.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if _, err := c.doJSONRequest(ctx, http.MethodGet, "/health/ready", nil, &status); err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return &status, nil
}

// Status returns the full simulation snapshot.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var status models.StatusResponse
	if _, err := c.doJSONRequest(ctx, http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}

// Device returns the status of one device, pod or connection.
func (c *Client) Device(ctx context.Context, name string) (*Device, error) {
	var device Device
	path := "/api/v1/devices/" + url.PathEscape(name)
	if _, err := c.doJSONRequest(ctx, http.MethodGet, path, nil, &device); err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", name, err)
	}
	return &device, nil
}

// Action delivers an action (fail, recover, promote, ...) to a device.
// Actions the device does not accept return an error wrapping ErrBadRequest.
func (c *Client) Action(ctx context.Context, name string, action models.Action) (*models.ActionResponse, error) {
	var res models.ActionResponse
	path := fmt.Sprintf("/api/v1/devices/%s/actions/%s", url.PathEscape(name), url.PathEscape(string(action)))
	if _, err := c.doJSONRequest(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", action, name, err)
	}
	return &res, nil
}

// Tick advances the simulation by count ticks and returns the transitions
// they caused.
func (c *Client) Tick(ctx context.Context, count int) (*models.TickResponse, error) {
	var res models.TickResponse
	path := "/api/v1/tick?count=" + strconv.Itoa(count)
	if _, err := c.doJSONRequest(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to tick: %w", err)
	}
	return &res, nil
}

// SetFailoverPreference makes array the preferred mediation winner of pod.
func (c *Client) SetFailoverPreference(ctx context.Context, pod, array string) (*Device, error) {
	var device Device
	path := fmt.Sprintf("/api/v1/pods/%s/failover-preference", url.PathEscape(pod))
	req := models.FailoverPreferenceRequest{Array: array}
	if _, err := c.doJSONRequest(ctx, http.MethodPut, path, req, &device); err != nil {
		return nil, fmt.Errorf("failed to set failover preference: %w", err)
	}
	return &device, nil
}

// ClearFailoverPreference removes the failover preference of pod.
func (c *Client) ClearFailoverPreference(ctx context.Context, pod string) (*Device, error) {
	var device Device
	path := fmt.Sprintf("/api/v1/pods/%s/failover-preference", url.PathEscape(pod))
	if _, err := c.doJSONRequest(ctx, http.MethodDelete, path, nil, &device); err != nil {
		return nil, fmt.Errorf("failed to clear failover preference: %w", err)
	}
	return &device, nil
}

// SetWANLatency sets the round-trip latency between the two sites.
func (c *Client) SetWANLatency(ctx context.Context, latency float64) error {
	req := models.WANLatencyRequest{Latency: &latency}
	if _, err := c.doJSONRequest(ctx, http.MethodPut, "/api/v1/wan/latency", req, nil); err != nil {
		return fmt.Errorf("failed to set WAN latency: %w", err)
	}
	return nil
}

// Transitions queries the server's transition journal. Servers running
// without a journal return an error wrapping ErrNotFound.
func (c *Client) Transitions(ctx context.Context, filter TransitionFilter) (*models.TransitionListResponse, error) {
	path := "/api/v1/transitions"
	if q := filter.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res models.TransitionListResponse
	if _, err := c.doJSONRequest(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	return &res, nil
}

// Reset rebuilds the simulation from tick zero and clears the journal.
func (c *Client) Reset(ctx context.Context) error {
	if _, err := c.doJSONRequest(ctx, http.MethodPost, "/api/v1/reset", nil, nil); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	return nil
}
