package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// decisionsTotal counts write-path and dry-run decisions
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_integrity_decisions_total",
		Help: "Trip integrity decisions by operation, decision and severity",
	}, []string{"operation", "decision", "severity"})

	stageRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_integrity_stage_rejections_total",
		Help: "Rejected trip writes by the validation stage that rejected them",
	}, []string{"stage"})

	chainRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_integrity_chain_rebuilds_total",
		Help: "Mileage chain rebuilds by trigger",
	}, []string{"trigger"})

	chainBreaksFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trip_integrity_chain_breaks_total",
		Help: "Invalid mileage segments produced by rebuilds",
	})

	decisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trip_integrity_decision_duration_seconds",
		Help:    "Time spent validating and committing one trip write",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"operation"})
)

func ObserveDecision(operation, decision, severity string, started time.Time) {
	decisionsTotal.WithLabelValues(operation, decision, severity).Inc()
	decisionDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func ObserveRejection(stage string) {
	stageRejectionsTotal.WithLabelValues(stage).Inc()
}

func ObserveChainRebuild(trigger string, breaks int) {
	chainRebuildsTotal.WithLabelValues(trigger).Inc()
	if breaks > 0 {
		chainBreaksFound.Add(float64(breaks))
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
