package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Routes are labelled by their template ("/api/v1/devices/:name"), never by
// the raw path.
var routeLabels = []string{"method", "route"}

var (
	// HTTPRequestsTotal counts control API requests by route and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_http_requests_total",
			Help: "Control API requests by method, route template and status code",
		},
		append(routeLabels, "status"),
	)

	// HTTPRequestDuration measures request handling time. A tick request can
	// advance up to a thousand ticks, so the buckets reach into seconds.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stretchsim_http_request_duration_seconds",
			Help:    "Control API request duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		routeLabels,
	)

	// HTTPResponseSize measures response bodies. Status snapshots of the
	// two-site topology are a few tens of kilobytes.
	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stretchsim_http_response_size_bytes",
			Help:    "Control API response size in bytes",
			Buckets: prometheus.ExponentialBuckets(128, 4, 7),
		},
		routeLabels,
	)

	// HTTPRequestsInFlight is the number of requests being handled.
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stretchsim_http_requests_in_flight",
			Help: "Control API requests currently being handled",
		},
	)
)

// ObserveRequest records one finished request. A negative size means no
// body was written and is not observed.
func ObserveRequest(method, route string, status int, elapsed time.Duration, size int) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	if size >= 0 {
		HTTPResponseSize.WithLabelValues(method, route).Observe(float64(size))
	}
}

func registerHTTPMetrics() error {
	return register(HTTPRequestsTotal, HTTPRequestDuration, HTTPResponseSize, HTTPRequestsInFlight)
}
