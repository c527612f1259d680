// Package metrics holds the Prometheus collectors of the intake service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for extraction and intake.
type Metrics struct {
	// Tier decisions
	ExtractionDecisionsTotal *prometheus.CounterVec
	ExtractionInputBytes     *prometheus.HistogramVec

	// Intake
	EmailsProcessedTotal *prometheus.CounterVec
	IntakeDuration       prometheus.Histogram
	CustomersCreated     prometheus.Counter
}

// NewMetrics creates and registers the collectors once per process.
//
// Metrics:
//   - intake_extraction_decisions_total{operation,outcome}
//   - intake_extraction_input_bytes{operation}
//   - intake_emails_processed_total{source,status}
//   - intake_processing_duration_seconds
//   - intake_customers_created_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ExtractionDecisionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intake_extraction_decisions_total",
					Help: "Extraction tier decisions by operation and outcome",
				},
				[]string{"operation", "outcome"}, // outcome: pattern_sufficient, openai_used, openai_failed
			),

			ExtractionInputBytes: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "intake_extraction_input_bytes",
					Help:    "Size of extraction input text in bytes",
					Buckets: prometheus.ExponentialBuckets(64, 2, 10), // 64B to ~32KB
				},
				[]string{"operation"},
			),

			EmailsProcessedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intake_emails_processed_total",
					Help: "Inbound emails processed",
				},
				[]string{"source", "status"}, // source: http, stream
			),

			IntakeDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "intake_processing_duration_seconds",
					Help:    "Time to process one inbound email",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
				},
			),

			CustomersCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "intake_customers_created_total",
					Help: "Draft customers persisted from inbound email",
				},
			),
		}
	})
	return globalMetrics
}
