package out

import "context"

// Outcome of a tier-selection decision.
const (
	OutcomePatternSufficient = "pattern_sufficient"
	OutcomeOpenAIUsed        = "openai_used"
	OutcomeOpenAIFailed      = "openai_failed"
)

// UsageEvent is emitted after every pipeline decision.
type UsageEvent struct {
	Operation string `json:"operation"`
	Outcome   string `json:"outcome"`
	InputSize int    `json:"input_size"`
}

// UsageRecorder receives pipeline usage telemetry. Implementations must be safe for
// concurrent use and must not block the caller on I/O failures.
type UsageRecorder interface {
	Record(ctx context.Context, event UsageEvent)
}
