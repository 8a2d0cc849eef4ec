package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels of HostIOLatency.
const (
	HostOpRead  = "read"
	HostOpWrite = "write"
)

var (
	// TicksTotal counts completed simulation ticks.
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stretchsim_ticks_total",
			Help: "Total number of completed simulation ticks",
		},
	)

	// TickDuration measures the wall-clock cost of one simulation tick.
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stretchsim_tick_duration_seconds",
			Help:    "Wall-clock duration of a simulation tick in seconds",
			Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// PacketsSent counts packets injected into the network by tag.
	PacketsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_packets_sent_total",
			Help: "Total number of packets sent by message tag",
		},
		[]string{"tag"},
	)

	// PacketsDelivered counts packets delivered to a terminating device by tag.
	PacketsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_packets_delivered_total",
			Help: "Total number of packets delivered to their destination by message tag",
		},
		[]string{"tag"},
	)

	// PacketsDropped counts discarded packets by reason.
	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_packets_dropped_total",
			Help: "Total number of packets dropped by reason",
		},
		[]string{"reason"},
	)

	// PodStateTransitions counts pod member synchronization state transitions.
	PodStateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_pod_state_transitions_total",
			Help: "Total number of pod member synchronization state transitions",
		},
		[]string{"pod", "from_state", "to_state"},
	)

	// PodElections counts members becoming elected, by how the tie was broken.
	PodElections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_pod_elections_total",
			Help: "Total number of pod elections by cause",
		},
		[]string{"pod", "cause"},
	)

	// HostIOLatency observes simulated I/O latency seen by hosts, by
	// operation (HostOpRead or HostOpWrite).
	HostIOLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stretchsim_host_io_latency",
			Help:    "Simulated cumulative latency of acknowledged host reads and writes",
			Buckets: []float64{.1, .5, 1, 2, 4, 8, 12, 16, 24, 48},
		},
		[]string{"host", "op"},
	)
)

// registerSimulationMetrics registers all simulation metrics.
func registerSimulationMetrics() error {
	return register(
		TicksTotal,
		TickDuration,
		PacketsSent,
		PacketsDelivered,
		PacketsDropped,
		PodStateTransitions,
		PodElections,
		HostIOLatency,
	)
}
