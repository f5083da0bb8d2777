package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		routingEvaluations,
		reconcileOutcomes,
	)
}

var (
	routingEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_evaluations_total",
			Help: "Routing algorithm evaluations by kind.",
		},
		[]string{"kind"},
	)

	reconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_outcomes_total",
			Help: "Instrument reconciliation outcomes (created/reused/resaved/skipped/failed).",
		},
		[]string{"outcome"},
	)
)

func IncRoutingEvaluation(kind string) {
	routingEvaluations.WithLabelValues(norm(kind)).Inc()
}

func IncReconcileOutcome(outcome string) {
	reconcileOutcomes.WithLabelValues(norm(outcome)).Inc()
}
