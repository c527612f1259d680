package domain

// Intent is the classification label assigned to an inbound email.
type Intent string

const (
	IntentEnquiry       Intent = "ENQUIRY"
	IntentOrder         Intent = "ORDER"
	IntentComplaint     Intent = "COMPLAINT"
	IntentQuoteResponse Intent = "QUOTE_RESPONSE"
	IntentGeneral       Intent = "GENERAL"
)

// IntentPriority is the fixed tie-break order, highest priority first.
var IntentPriority = []Intent{
	IntentEnquiry,
	IntentOrder,
	IntentComplaint,
	IntentQuoteResponse,
	IntentGeneral,
}

// ExtractionTier records which tier produced a result.
type ExtractionTier string

const (
	TierPattern ExtractionTier = "PATTERN"
	TierAI      ExtractionTier = "AI"
)

// ExtractionKind names the three extraction operations.
type ExtractionKind string

const (
	KindClassification ExtractionKind = "classification"
	KindCustomer       ExtractionKind = "customer"
	KindLineItems      ExtractionKind = "line_items"
)

// ClassificationResult is the tier-tagged output of classification.
type ClassificationResult struct {
	Intent     Intent         `json:"intent"`
	Tier       ExtractionTier `json:"extracted_by"`
	Confidence float64        `json:"confidence"`
}

// LineItemsResult is the tier-tagged output of line item parsing. Items is never empty.
type LineItemsResult struct {
	Items      []LineItemCandidate `json:"items"`
	Tier       ExtractionTier      `json:"extracted_by"`
	Confidence float64             `json:"confidence"`
}

// CustomerResult is the tier-tagged output of customer extraction.
type CustomerResult struct {
	Profile    *CustomerProfile `json:"profile"`
	Tier       ExtractionTier   `json:"extracted_by"`
	Confidence float64          `json:"confidence"`
}
