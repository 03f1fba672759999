package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine outcomes recorded per processed event.
const (
	OutcomeOpened   = "opened"
	OutcomeDeduped  = "deduped"
	OutcomeResolved = "resolved"
	OutcomeIgnored  = "ignored"
	OutcomeNoMatch  = "no_match"
	OutcomeDropped  = "dropped"
	OutcomeFailed   = "failed"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healops_events_total",
			Help: "Inbound events processed by the lifecycle engine, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	clockAnomaliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healops_clock_anomalies_total",
			Help: "Resolve attempts rejected because the healed time preceded detection",
		},
	)
)

// RecordEvent counts one engine decision.
func RecordEvent(kind, outcome string) {
	eventsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordClockAnomaly counts one rejected negative-MTTR resolve.
func RecordClockAnomaly() {
	clockAnomaliesTotal.Inc()
}
