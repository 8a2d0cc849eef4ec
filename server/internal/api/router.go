// Package api wires the stretchsim control API: middleware, handlers and
// the Prometheus endpoint on a single Gin engine.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/server/internal/api/handlers"
	"github.com/yaroslav/stretchsim/server/internal/api/middleware"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
	"github.com/yaroslav/stretchsim/server/internal/ratelimit"
	"github.com/yaroslav/stretchsim/server/internal/service"
)

// RouterConfig holds configuration for setting up the HTTP router.
type RouterConfig struct {
	// Service is the simulation shared with the auto-tick clock.
	Service *service.SimulationService

	// Journal serves /api/v1/transitions and readiness checks. Nil disables both.
	Journal *service.Journal

	// Clock is the auto-tick loop, nil when ticks only happen on request.
	Clock *service.Clock

	// Logger is the Zap logger for request logging.
	Logger *zap.Logger

	// RunID is this server run's UUID.
	RunID string

	// AllowOrigins is the list of allowed CORS origins. Empty disables CORS.
	AllowOrigins []string

	// RateLimits configures per-class limits. The zero value uses ratelimit.DefaultConfig.
	RateLimits *ratelimit.Config

	// GlobalRPS and GlobalBurst bound each client IP across all endpoints.
	// Zero GlobalRPS uses 100 req/s with a burst of 200.
	GlobalRPS   float64
	GlobalBurst int
}

// Router is the configured engine plus the limiters it owns.
type Router struct {
	*gin.Engine

	global   *middleware.RateLimiter
	advanced *middleware.AdvancedRateLimitMiddleware
}

// Close stops the rate limiter cleanup goroutines.
func (r *Router) Close() {
	r.global.Stop()
	r.advanced.Stop()
}

// SetupRouter creates and configures the Gin HTTP router with all routes and middleware.
//
// This function sets up:
//   - Global middleware (recovery, metrics, logging, CORS, per-IP rate limiting)
//   - /metrics and health check endpoints
//   - Simulation status, device, tick, pod and WAN endpoints under /api/v1
//   - The transition journal endpoint when a journal is configured
//
// Parameters:
//   - config: Router configuration
//
// Returns:
//   - Configured Router; call Close when the server stops
func SetupRouter(config *RouterConfig) *Router {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limits := ratelimit.DefaultConfig()
	if config.RateLimits != nil {
		limits = *config.RateLimits
	}
	rps, burst := config.GlobalRPS, config.GlobalBurst
	if rps <= 0 {
		rps, burst = 100, 200
	}

	r := &Router{
		Engine:   gin.New(),
		global:   middleware.NewRateLimiter(rps, burst, time.Minute),
		advanced: middleware.NewAdvancedRateLimitMiddleware(limits),
	}

	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware("/metrics"))
	r.Use(middleware.RequestLogger(logger))
	if len(config.AllowOrigins) > 0 {
		r.Use(middleware.CORS(config.AllowOrigins))
	}
	r.Use(middleware.RateLimitByIP(r.global))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry,
		promhttp.HandlerOpts{},
	)))

	var healthHandler *handlers.HealthHandler
	if config.Journal != nil {
		healthHandler = handlers.NewHealthHandler(config.Journal, config.RunID)
	} else {
		healthHandler = handlers.NewHealthHandler(nil, config.RunID)
	}

	health := r.Group("/health")
	health.Use(r.advanced.RateLimitHealthCheck())
	{
		health.GET("/live", healthHandler.Liveness)
		health.GET("/ready", healthHandler.Readiness)
	}

	var clock handlers.AutoTicker
	if config.Clock != nil {
		clock = config.Clock
	}
	simHandler := handlers.NewSimulationHandler(config.Service, clock, config.RunID)

	v1 := r.Group("/api/v1")

	reads := v1.Group("")
	reads.Use(r.advanced.RateLimitReads())
	{
		// GET /api/v1/status - Full snapshot
		reads.GET("/status", simHandler.GetStatus)

		// GET /api/v1/devices/:name - One device, pod or connection
		reads.GET("/devices/:name", simHandler.GetDevice)

		if config.Journal != nil {
			// GET /api/v1/transitions - Journal query
			reads.GET("/transitions", handlers.NewTransitionHandler(config.Journal).ListTransitions)
		}
	}

	mutations := v1.Group("")
	mutations.Use(r.advanced.RateLimitMutations())
	{
		// POST /api/v1/devices/:name/actions/:action - fail, recover, promote, ...
		mutations.POST("/devices/:name/actions/:action", simHandler.DeviceAction)

		// PUT/DELETE /api/v1/pods/:name/failover-preference
		mutations.PUT("/pods/:name/failover-preference", simHandler.SetFailoverPreference)
		mutations.DELETE("/pods/:name/failover-preference", simHandler.ClearFailoverPreference)

		// PUT /api/v1/wan/latency - Round-trip WAN latency
		mutations.PUT("/wan/latency", simHandler.SetWANLatency)

		// POST /api/v1/reset - Rebuild the scenario
		mutations.POST("/reset", simHandler.Reset)
	}

	// POST /api/v1/tick?count=N
	v1.POST("/tick", r.advanced.RateLimitTicks(), simHandler.Tick)

	return r
}
