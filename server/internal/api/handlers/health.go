package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
//
// This handler provides liveness and readiness checks for process
// supervisors and load balancers.
type HealthHandler struct {
	journal Pinger
	runID   string
}

// NewHealthHandler creates a new health check handler.
//
// Parameters:
//   - journal: Transition journal for readiness checks, may be nil
//   - runID: This server run's UUID
func NewHealthHandler(journal Pinger, runID string) *HealthHandler {
	return &HealthHandler{
		journal: journal,
		runID:   runID,
	}
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status  string `json:"status"`
	RunID   string `json:"run_id"`
	Journal string `json:"journal"`
}

// Liveness handles GET /health/live.
//
// This endpoint always returns 200 OK as long as the HTTP server is running.
func (h *HealthHandler) Liveness(c *gin.Context) {
	respondSuccess(c, http.StatusOK, LivenessResponse{
		Status: "ok",
		RunID:  h.runID,
	})
}

// Readiness handles GET /health/ready.
//
// Returns:
//   - 200 OK if the journal answers a ping, or the server runs without one
//   - 503 Service Unavailable if the journal database is unreachable
func (h *HealthHandler) Readiness(c *gin.Context) {
	journal := "disabled"
	if h.journal != nil {
		if err := h.journal.Ping(c.Request.Context()); err != nil {
			respondError(c, http.StatusServiceUnavailable, "unhealthy", "Journal unavailable")
			return
		}
		journal = "connected"
	}

	respondSuccess(c, http.StatusOK, ReadinessResponse{
		Status:  "ready",
		RunID:   h.runID,
		Journal: journal,
	})
}
