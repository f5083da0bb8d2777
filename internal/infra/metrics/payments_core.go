package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentOpsTotal,
		paymentIntentStatus,
	)
}

var (
	paymentOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Pipeline operations by verb and outcome (ok/rejected/failed).",
		},
		[]string{"verb", "outcome"},
	)

	paymentIntentStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intent_status_total",
			Help: "Intent status transitions persisted by UpdateTracker.",
		},
		[]string{"status"},
	)
)

func IncOperation(verb, outcome string) {
	paymentOpsTotal.WithLabelValues(norm(verb), norm(outcome)).Inc()
}

func IncIntentStatus(status string) {
	paymentIntentStatus.WithLabelValues(norm(status)).Inc()
}
