package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ControllerStateTransitions counts controller failover transitions by from/to state.
	ControllerStateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_controller_state_transitions_total",
			Help: "Total number of controller failover state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// ControllersPrimary tracks how many controllers are currently primary per array.
	ControllersPrimary = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stretchsim_controllers_primary",
			Help: "Number of primary controllers per array (1 when converged)",
		},
		[]string{"array"},
	)
)

// registerControllerMetrics registers all controller failover metrics.
func registerControllerMetrics() error {
	return register(
		ControllerStateTransitions,
		ControllersPrimary,
	)
}
