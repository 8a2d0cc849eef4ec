package middleware

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// MetricsMiddleware creates a middleware that collects Prometheus metrics for HTTP requests.
//
// Requests are labelled with the matched route template so that device
// names in the path do not create one series per device. Unmatched routes
// are labelled "unmatched". Paths listed in skip (typically /metrics) are
// not instrumented.
//
// Parameters:
//   - skip: Request paths excluded from instrumentation
//
// Returns:
//   - Gin middleware handler function
func MetricsMiddleware(skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(skip, c.Request.URL.Path) {
			c.Next()
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start), c.Writer.Size())
	}
}
