package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		connectorCallsTotal,
		connectorCallLatencyMs,
		webhookVerifications,
	)
}

var (
	connectorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_calls_total",
			Help: "Adapter calls by connector, flow and outcome.",
		},
		[]string{"connector", "flow", "outcome"},
	)

	connectorCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_call_latency_ms",
			Help:    "Adapter call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"connector", "flow"},
	)

	webhookVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_verifications_total",
			Help: "Incoming webhook signature verifications by connector and result.",
		},
		[]string{"connector", "verified"},
	)
)

func IncConnectorCall(connector, flow, outcome string) {
	connectorCallsTotal.WithLabelValues(norm(connector), norm(flow), norm(outcome)).Inc()
}

func ObserveConnectorLatency(connector, flow string, ms float64) {
	connectorCallLatencyMs.WithLabelValues(norm(connector), norm(flow)).Observe(ms)
}

func IncWebhookVerification(connector string, verified bool) {
	webhookVerifications.WithLabelValues(norm(connector), boolLabel(verified)).Inc()
}
