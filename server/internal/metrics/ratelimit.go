package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RateLimitClassGlobal is the class of the per-IP limit in front of every route.
const RateLimitClassGlobal = "global"

var (
	// RateLimitDecisions counts rate limit decisions by class and outcome
	// ("allowed" or "limited"). Client addresses are never a label.
	RateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_ratelimit_decisions_total",
			Help: "Rate limit decisions by request class and outcome",
		},
		[]string{"class", "outcome"},
	)

	// RateLimitCapacity is the configured tokens per minute of each class.
	RateLimitCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stretchsim_ratelimit_capacity_per_minute",
			Help: "Configured requests per minute by request class",
		},
		[]string{"class"},
	)

	// RateLimitBuckets is the number of live per-client buckets.
	RateLimitBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stretchsim_ratelimit_buckets",
			Help: "Number of per-client token buckets currently tracked",
		},
	)
)

// RecordRateLimit counts one decision for class.
func RecordRateLimit(class string, allowed bool) {
	outcome := "limited"
	if allowed {
		outcome = "allowed"
	}
	RateLimitDecisions.WithLabelValues(class, outcome).Inc()
}

func registerRateLimitMetrics() error {
	return register(RateLimitDecisions, RateLimitCapacity, RateLimitBuckets)
}
