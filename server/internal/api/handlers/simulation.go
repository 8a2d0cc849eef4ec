package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/api/middleware"
	"github.com/yaroslav/stretchsim/server/internal/service"
)

// AutoTicker reports whether ticks are advanced without API calls.
type AutoTicker interface {
	Running() bool
}

// SimulationHandler handles status, device, tick and configuration endpoints.
type SimulationHandler struct {
	service *service.SimulationService
	clock   AutoTicker
	runID   string
}

// NewSimulationHandler creates a new SimulationHandler. clock may be nil
// when the server only ticks on request.
func NewSimulationHandler(svc *service.SimulationService, clock AutoTicker, runID string) *SimulationHandler {
	return &SimulationHandler{service: svc, clock: clock, runID: runID}
}

// GetStatus handles GET /api/v1/status.
func (h *SimulationHandler) GetStatus(c *gin.Context) {
	respondSuccess(c, http.StatusOK, models.StatusResponse{
		RunID:    h.runID,
		Scenario: h.service.Scenario().Name,
		AutoTick: h.clock != nil && h.clock.Running(),
		Snapshot: h.service.Status(),
	})
}

// GetDevice handles GET /api/v1/devices/:name.
func (h *SimulationHandler) GetDevice(c *gin.Context) {
	device, err := h.service.Device(c.Param("name"))
	if err != nil {
		mapErrorToResponse(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, device)
}

// DeviceAction handles POST /api/v1/devices/:name/actions/:action.
func (h *SimulationHandler) DeviceAction(c *gin.Context) {
	name := c.Param("name")
	action := c.Param("action")

	if err := h.service.Action(name, action); err != nil {
		mapErrorToResponse(c, err)
		return
	}

	middleware.GetLogger(c).Info("device action applied")
	respondSuccess(c, http.StatusOK, models.ActionResponse{
		Device: name,
		Action: models.Action(action),
		Tick:   h.service.CurrentTick(),
	})
}

// Tick handles POST /api/v1/tick?count=N. count defaults to 1.
func (h *SimulationHandler) Tick(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil {
		mapErrorToResponse(c, fmt.Errorf("%w: count must be an integer", models.ErrInvalidRequest))
		return
	}

	transitions, err := h.service.Tick(count)
	if err != nil {
		mapErrorToResponse(c, err)
		return
	}
	if transitions == nil {
		transitions = []models.Transition{}
	}

	tick := h.service.CurrentTick()
	middleware.GetLogger(c).Debug("ticks advanced",
		zap.Int("count", count),
		zap.Uint64("tick", tick),
		zap.Int("transitions", len(transitions)),
	)
	respondSuccess(c, http.StatusOK, models.TickResponse{
		Tick:        tick,
		Transitions: transitions,
	})
}

// SetFailoverPreference handles PUT /api/v1/pods/:name/failover-preference.
func (h *SimulationHandler) SetFailoverPreference(c *gin.Context) {
	var req models.FailoverPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapErrorToResponse(c, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err))
		return
	}

	if err := h.service.SetFailoverPreference(c.Param("name"), req.Array); err != nil {
		mapErrorToResponse(c, err)
		return
	}
	h.respondDevice(c, c.Param("name"))
}

// ClearFailoverPreference handles DELETE /api/v1/pods/:name/failover-preference.
func (h *SimulationHandler) ClearFailoverPreference(c *gin.Context) {
	if err := h.service.ClearFailoverPreference(c.Param("name")); err != nil {
		mapErrorToResponse(c, err)
		return
	}
	h.respondDevice(c, c.Param("name"))
}

// SetWANLatency handles PUT /api/v1/wan/latency.
func (h *SimulationHandler) SetWANLatency(c *gin.Context) {
	var req models.WANLatencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapErrorToResponse(c, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err))
		return
	}

	if err := h.service.SetWANLatency(*req.Latency); err != nil {
		mapErrorToResponse(c, err)
		return
	}
	respondSuccessWithMessage(c, http.StatusOK, fmt.Sprintf("WAN latency set to %g", *req.Latency))
}

// Reset handles POST /api/v1/reset. The scenario is rebuilt from tick zero
// and the journal is cleared.
func (h *SimulationHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(); err != nil {
		mapErrorToResponse(c, err)
		return
	}
	middleware.GetLogger(c).Info("simulation reset")
	respondSuccessWithMessage(c, http.StatusOK, "simulation reset")
}

func (h *SimulationHandler) respondDevice(c *gin.Context, name string) {
	device, err := h.service.Device(name)
	if err != nil {
		mapErrorToResponse(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, device)
}
