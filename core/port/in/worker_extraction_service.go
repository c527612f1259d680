package in

import (
	"context"

	"intake_server/core/domain"
)

// ExtractionService is the inbound port exposed to the webhook handler.
type ExtractionService interface {
	Classify(ctx context.Context, subject, body string) domain.ClassificationResult
	ExtractCustomer(ctx context.Context, fromEmail, body, subject string) domain.CustomerResult
	ParseLineItems(ctx context.Context, body string) domain.LineItemsResult
	GetProcessingStats() ProcessingStats
}

// ProcessingStats is read-only introspection of the pipeline configuration and counters.
type ProcessingStats struct {
	HybridModeEnabled   bool             `json:"hybrid_mode_enabled"`
	FallbackEnabled     bool             `json:"fallback_enabled"`
	ConfidenceThreshold float64          `json:"confidence_threshold"`
	CustomerThreshold   float64          `json:"customer_threshold"`
	LineItemThreshold   float64          `json:"line_item_threshold"`
	AIConfigured        bool             `json:"ai_configured"`
	CircuitState        string           `json:"circuit_state,omitempty"`
	Outcomes            map[string]int64 `json:"outcomes"`
	AITokensUsed        int64            `json:"ai_tokens_used"`
	AIRequests          int64            `json:"ai_requests"`
}

// Intake sources, used as a metrics label.
const (
	SourceHTTP   = "http"
	SourceStream = "stream"
)

// IntakeService processes a full inbound email.
type IntakeService interface {
	Process(ctx context.Context, source string, email domain.InboundEmail) (*IntakeResult, error)
}

// IntakeResult bundles the three extraction artifacts of one email.
type IntakeResult struct {
	EmailID        string                      `json:"email_id"`
	Classification domain.ClassificationResult `json:"classification"`
	Customer       domain.CustomerResult       `json:"customer"`
	LineItems      domain.LineItemsResult      `json:"line_items"`
	CustomerSaved  bool                        `json:"customer_saved"`
}
