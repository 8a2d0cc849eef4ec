package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// JournalQueryDuration measures transition journal query duration by operation.
	JournalQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "stretchsim_journal_query_duration_seconds",
			Help: "Transition journal query duration in seconds",
			// Buckets optimized for in-memory queries: 10µs to 1s
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)

	// JournalQueriesTotal counts journal queries by operation and status.
	JournalQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stretchsim_journal_queries_total",
			Help: "Total number of transition journal queries",
		},
		[]string{"operation", "status"},
	)

	// JournalEntries tracks the number of transitions stored in the journal.
	JournalEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stretchsim_journal_entries",
			Help: "Number of transitions currently stored in the journal",
		},
	)
)

// registerJournalMetrics registers all journal metrics.
func registerJournalMetrics() error {
	return register(
		JournalQueryDuration,
		JournalQueriesTotal,
		JournalEntries,
	)
}
