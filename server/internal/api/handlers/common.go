// Package handlers provides HTTP handlers for the stretchsim control API.
//
// This package implements request handlers for health checks, simulation
// status, device actions, tick batches, pod failover preferences, WAN
// latency and the transition journal.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/api/middleware"
)

// ErrorResponse represents a standardized error response.
//
// All API errors are returned in this format to provide consistent
// error handling for clients.
type ErrorResponse struct {
	// Error is the error code (e.g., "not_found", "conflict").
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// RequestID is the unique request ID for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// SuccessResponse represents a standardized success response with data.
type SuccessResponse struct {
	// Data contains the response payload.
	Data interface{} `json:"data,omitempty"`

	// Message is an optional success message.
	Message string `json:"message,omitempty"`
}

// respondError sends a standardized error response.
func respondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// respondSuccess sends a standardized success response with data.
func respondSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Data: data,
	})
}

// respondSuccessWithMessage sends a standardized success response with a message.
func respondSuccessWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
	})
}

// errorMapping pairs a sentinel error with its HTTP status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order; the first sentinel the error wraps wins.
var errorMappings = []errorMapping{
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrUnknownPort, http.StatusNotFound, "not_found"},

	{models.ErrInvalidAction, http.StatusBadRequest, "invalid_action"},
	{models.ErrInvalidName, http.StatusBadRequest, "invalid_request"},
	{models.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{models.ErrInvalidVolumeName, http.StatusBadRequest, "invalid_request"},
	{models.ErrInvalidScenario, http.StatusBadRequest, "invalid_scenario"},

	{models.ErrAlreadyExists, http.StatusConflict, "conflict"},
	{models.ErrPortInUse, http.StatusConflict, "conflict"},
	{models.ErrPodFull, http.StatusConflict, "conflict"},
	{models.ErrNotMember, http.StatusConflict, "conflict"},
	{models.ErrLastMember, http.StatusConflict, "conflict"},
	{models.ErrVolumeInUse, http.StatusConflict, "conflict"},

	{models.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limit_exceeded"},
}

// mapErrorToResponse converts an error wrapping a models sentinel to an
// HTTP response. Client errors carry the wrapped message, which names the
// device or pod involved. Anything else is logged and answered with a
// generic 500.
//
// Parameters:
//   - c: Gin context
//   - err: Error returned by the service layer
func mapErrorToResponse(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			respondError(c, m.status, m.code, err.Error())
			return
		}
	}

	middleware.GetLogger(c).Error("request failed", zap.Error(err))
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, "internal_error", "An internal error occurred")
}
