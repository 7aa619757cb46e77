package operation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewctl_operation_invocations_total",
			Help: "Total operation invocations by outcome",
		},
		[]string{"operation", "status"},
	)

	invocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crewctl_operation_duration_seconds",
			Help:    "Duration of operation invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	transportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewctl_operation_transport_errors_total",
			Help: "Total transport failures by type",
		},
		[]string{"operation", "error_type"},
	)

	staleResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewctl_operation_stale_results_total",
			Help: "Responses discarded because the operation was invoked again",
		},
		[]string{"operation"},
	)
)

// recordMetrics records the outcome of one invocation
func recordMetrics(operation string, status Status, duration float64, errType string) {
	invocationsTotal.WithLabelValues(operation, string(status)).Inc()
	invocationDuration.WithLabelValues(operation, string(status)).Observe(duration)

	if status == StatusFailed && errType != "" {
		transportErrors.WithLabelValues(operation, errType).Inc()
	}
}

func recordStale(operation string) {
	staleResults.WithLabelValues(operation).Inc()
}
