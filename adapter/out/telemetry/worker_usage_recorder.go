// Package telemetry records extraction usage events.
package telemetry

import (
	"context"

	"github.com/rs/zerolog"

	"intake_server/core/port/out"
	"intake_server/pkg/metrics"
)

// UsageRecorder writes each event to Prometheus and to a zerolog event log.
type UsageRecorder struct {
	metrics *metrics.Metrics
	log     zerolog.Logger
}

var _ out.UsageRecorder = (*UsageRecorder)(nil)

// NewUsageRecorder creates a recorder. Pass zerolog.Nop() to disable the event log.
func NewUsageRecorder(m *metrics.Metrics, log zerolog.Logger) *UsageRecorder {
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &UsageRecorder{
		metrics: m,
		log:     log.With().Str("component", "extraction").Logger(),
	}
}

// Record implements out.UsageRecorder.
func (r *UsageRecorder) Record(_ context.Context, event out.UsageEvent) {
	r.metrics.ExtractionDecisionsTotal.WithLabelValues(event.Operation, event.Outcome).Inc()
	r.metrics.ExtractionInputBytes.WithLabelValues(event.Operation).Observe(float64(event.InputSize))

	level := zerolog.InfoLevel
	if event.Outcome == out.OutcomeOpenAIFailed {
		level = zerolog.WarnLevel
	}
	r.log.WithLevel(level).
		Str("operation", event.Operation).
		Str("outcome", event.Outcome).
		Int("input_size", event.InputSize).
		Msg("extraction decision")
}
