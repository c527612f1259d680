package extraction

import (
	"regexp"
	"strings"

	"intake_server/core/domain"
)

// =============================================================================
// Fallback Policy
// =============================================================================

var (
	questionPattern      = regexp.MustCompile(`(?i)\b(what|when|where|which|who|why|how|could you|can you|would you)\b`)
	vagueQuantityPattern = regexp.MustCompile(`(?i)\b(couple|several|about|approximately|around|roughly|a few|some)\b`)
	sentenceSplitPattern = regexp.MustCompile(`[.!?]+`)
)

// PolicyConfig holds the thresholds that gate the generative tier.
type PolicyConfig struct {
	// HybridModeEnabled and AIFallbackEnabled must both be true for any fallback.
	HybridModeEnabled bool
	AIFallbackEnabled bool

	// ConfidenceThreshold: classify falls back below this value (default 0.7).
	ConfidenceThreshold float64

	// CustomerThreshold: customer extraction falls back below this value (default 0.5).
	CustomerThreshold float64
	// CustomerLongBodyThreshold applies instead when the body is longer than LongBodyChars.
	CustomerLongBodyThreshold float64
	LongBodyChars             int

	// LineItemThreshold: line-item parsing falls back below this value (default 0.6).
	LineItemThreshold float64
	// MinDomainIndicators with fewer than MinExpectedItems items also triggers fallback.
	MinDomainIndicators int
	MinExpectedItems    int

	// Complexity signals for classification.
	ComplexTextChars int
	ComplexSentences int
}

// DefaultPolicyConfig returns the default thresholds.
func DefaultPolicyConfig() *PolicyConfig {
	return &PolicyConfig{
		HybridModeEnabled:         true,
		AIFallbackEnabled:         true,
		ConfidenceThreshold:       0.7,
		CustomerThreshold:         0.5,
		CustomerLongBodyThreshold: 0.7,
		LongBodyChars:             200,
		LineItemThreshold:         0.6,
		MinDomainIndicators:       3,
		MinExpectedItems:          2,
		ComplexTextChars:          800,
		ComplexSentences:          5,
	}
}

// FallbackPolicy decides per extraction kind whether the generative tier must run.
type FallbackPolicy struct {
	config     *PolicyConfig
	indicators []string
}

// NewFallbackPolicy creates a policy. Indicators are the domain words used by the
// line-item check; nil selects the default table's indicators.
func NewFallbackPolicy(config *PolicyConfig, indicators []string) *FallbackPolicy {
	if config == nil {
		config = DefaultPolicyConfig()
	}
	if indicators == nil {
		indicators = DefaultTables().DomainIndicators
	}
	return &FallbackPolicy{config: config, indicators: indicators}
}

// Config returns the policy configuration.
func (p *FallbackPolicy) Config() PolicyConfig {
	return *p.config
}

// Enabled reports whether fallback can happen at all.
func (p *FallbackPolicy) Enabled() bool {
	return p.config.HybridModeEnabled && p.config.AIFallbackEnabled
}

// ShouldClassifyWithAI reports whether classification must fall back.
func (p *FallbackPolicy) ShouldClassifyWithAI(confidence float64, intent domain.Intent, subject, body string) bool {
	if !p.Enabled() {
		return false
	}
	return confidence < p.config.ConfidenceThreshold ||
		intent == domain.IntentGeneral ||
		p.IsComplex(subject, body)
}

// IsComplex reports whether an email is too involved for keyword matching.
func (p *FallbackPolicy) IsComplex(subject, body string) bool {
	if len(subject)+len(body) > p.config.ComplexTextChars {
		return true
	}
	if countSentences(body) > p.config.ComplexSentences {
		return true
	}
	return questionPattern.MatchString(body) || vagueQuantityPattern.MatchString(body)
}

// ShouldExtractCustomerWithAI reports whether customer extraction must fall back.
func (p *FallbackPolicy) ShouldExtractCustomerWithAI(confidence float64, body string) bool {
	if !p.Enabled() {
		return false
	}
	if confidence < p.config.CustomerThreshold {
		return true
	}
	return confidence < p.config.CustomerLongBodyThreshold && len(body) > p.config.LongBodyChars
}

// ShouldParseLineItemsWithAI reports whether line-item parsing must fall back.
// A placeholder-only result counts as empty.
func (p *FallbackPolicy) ShouldParseLineItemsWithAI(items []domain.LineItemCandidate, confidence float64, body string) bool {
	if !p.Enabled() {
		return false
	}
	if len(items) == 0 || IsPlaceholder(items) {
		return true
	}
	if confidence < p.config.LineItemThreshold {
		return true
	}
	return countDomainIndicators(p.indicators, body) >= p.config.MinDomainIndicators &&
		len(items) < p.config.MinExpectedItems
}

func countSentences(text string) int {
	n := 0
	for _, part := range sentenceSplitPattern.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}
