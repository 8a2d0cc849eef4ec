package sdk

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common SDK errors that clients can check for specific error handling.
// Errors returned for API responses are *APIError values that unwrap to one
// of these.
var (
	// ErrInvalidConfig indicates the client configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrNoBaseURLs indicates no server URLs were provided.
	ErrNoBaseURLs = errors.New("no base URLs provided")

	// ErrAllInstancesFailed indicates every configured server is unreachable.
	ErrAllInstancesFailed = errors.New("all servers failed")

	// ErrNotFound indicates the device, pod or connection does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited indicates the request was rate limited by the server.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServerError indicates an internal server error occurred.
	ErrServerError = errors.New("internal server error")

	// ErrBadRequest indicates the request was malformed, or the device
	// rejected the action.
	ErrBadRequest = errors.New("bad request")

	// ErrConflict indicates the request conflicts with the topology.
	ErrConflict = errors.New("conflict with existing state")
)

// APIError is an error response from the server.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Code is the machine-readable error code (e.g., "not_found").
	Code string

	// Message is the server's human-readable message.
	Message string

	// RequestID identifies the request in the server logs.
	RequestID string

	// RetryAfter is set for rate-limited requests.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// Unwrap maps the status code to a sentinel error.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return ErrConflict
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServerError
	case e.StatusCode >= 400:
		return ErrBadRequest
	}
	return nil
}
