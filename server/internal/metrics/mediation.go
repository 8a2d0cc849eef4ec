package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MediationDecisions counts mediator decisions by pod and reason.
	MediationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_mediation_decisions_total",
			Help: "Total number of mediator quorum decisions",
		},
		[]string{"pod", "reason"},
	)

	// MediationResponses counts mediation responses by outcome.
	MediationResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_mediation_responses_total",
			Help: "Total number of mediation responses sent",
		},
		[]string{"outcome"},
	)

	// MediationEpoch tracks the mediator's current epoch per pod.
	MediationEpoch = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stretchsim_mediation_epoch",
			Help: "Current mediation epoch known to the mediator per pod",
		},
		[]string{"pod"},
	)

	// MediationPending tracks outstanding mediation requests.
	MediationPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stretchsim_mediation_pending_requests",
			Help: "Number of mediation requests awaiting a decision",
		},
	)
)

// registerMediationMetrics registers all mediation metrics.
func registerMediationMetrics() error {
	return register(
		MediationDecisions,
		MediationResponses,
		MediationEpoch,
		MediationPending,
	)
}
