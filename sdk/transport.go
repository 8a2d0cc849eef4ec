package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// doRequestWithRetry performs an HTTP request with exponential backoff retry logic.
// Idempotent methods are retried on network errors and 5xx responses. POST
// is sent once so that a tick batch or action is never applied twice.
func (c *Client) doRequestWithRetry(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	attempts := c.RetryAttempts
	if method == http.MethodPost {
		attempts = 0
	}

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= attempts; attempt++ {
		req, reqErr := c.newRequest(ctx, method, url, body)
		if reqErr != nil {
			return nil, reqErr
		}

		resp, err = c.HTTPClient.Do(req)

		// Success or client error
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if attempt == attempts {
			break
		}

		drainAndCloseBody(resp)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.calculateBackoff(attempt)):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", attempts+1, err)
	}

	// The last 5xx response is handed back so its error body can be parsed.
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	return req, nil
}

// calculateBackoff calculates the backoff duration for a retry attempt.
// It uses exponential backoff with full jitter.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: min * (2 ^ attempt)
	backoff := float64(c.RetryWaitMin) * math.Pow(2, float64(attempt))

	if backoff > float64(c.RetryWaitMax) {
		backoff = float64(c.RetryWaitMax)
	}

	jitter := rand.Float64() * backoff

	return time.Duration(jitter)
}

// drainAndCloseBody reads and closes the response body to ensure connection reuse.
func drainAndCloseBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
