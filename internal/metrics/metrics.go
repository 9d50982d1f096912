package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SamplesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_sense_samples_ingested_total",
			Help: "Total number of telemetry samples accepted by the normalizer",
		},
		[]string{"kind"},
	)

	SamplesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_sense_samples_dropped_total",
			Help: "Total number of telemetry samples rejected, by drop reason",
		},
		[]string{"reason"},
	)

	QueueEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solace_sense_queue_evictions_total",
			Help: "Samples evicted from the full ingestion queue to make room for newer ones",
		},
	)

	EventsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_sense_events_fired_total",
			Help: "Total number of persona action events fired",
		},
		[]string{"persona", "action"},
	)

	DispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_sense_dispatch_outcomes_total",
			Help: "Per-collaborator delivery outcomes",
		},
		[]string{"collaborator", "status"},
	)

	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "solace_sense_dispatch_latency_seconds",
			Help: "Delivery latency per collaborator",
		},
		[]string{"collaborator"},
	)

	IngestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solace_sense_ingest_queue_depth",
			Help: "Samples waiting in the ingestion queue",
		},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solace_sense_dispatch_queue_depth",
			Help: "Events waiting in the dispatch queue",
		},
	)

	ActivePersona = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solace_sense_active_persona",
			Help: "Set to 1 for the currently active persona",
		},
		[]string{"persona"},
	)
)

// SetActivePersona flips the persona info gauge so exactly one series is 1.
func SetActivePersona(previous, current string) {
	if previous != "" {
		ActivePersona.WithLabelValues(previous).Set(0)
	}
	ActivePersona.WithLabelValues(current).Set(1)
}
