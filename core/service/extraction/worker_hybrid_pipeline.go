package extraction

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/port/out"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"
)

// =============================================================================
// Hybrid Pipeline
// =============================================================================

// Telemetry operation names.
const (
	OperationClassify        = "classify"
	OperationExtractCustomer = "extract_customer"
	OperationParseLineItems  = "parse_line_items"
)

// PipelineConfig holds the pipeline thresholds.
type PipelineConfig struct {
	Policy *PolicyConfig

	// AIClassificationConfidence is reported for labels chosen by the generative tier.
	AIClassificationConfidence float64
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Policy:                     DefaultPolicyConfig(),
		AIClassificationConfidence: 0.9,
	}
}

// PipelineDeps holds dependencies for creating a HybridPipeline.
type PipelineDeps struct {
	Pattern    *PatternExtractor
	Generative Extractor // optional; nil disables the AI tier
	Customers  out.CustomerRepository
	Recorder   out.UsageRecorder
	// AIStats reports completion client usage, optional.
	AIStats out.CompletionStatsProvider
}

// HybridPipeline runs the pattern tier and, when the fallback policy asks for it,
// the generative tier. It never returns an error to its caller.
//
//	START -> PATTERN_RESULT -> policy says no  -> DONE(pattern)
//	                           policy says yes -> AI_ATTEMPT -> ok  -> DONE(ai)
//	                                                         -> err -> DONE(pattern)
type HybridPipeline struct {
	config     *PipelineConfig
	policy     *FallbackPolicy
	pattern    *PatternExtractor
	generative Extractor
	customers  out.CustomerRepository
	recorder   out.UsageRecorder
	aiStats    out.CompletionStatsProvider

	countersMu sync.RWMutex
	counters   map[string]*atomic.Int64
}

var _ in.ExtractionService = (*HybridPipeline)(nil)

// NewHybridPipeline creates a pipeline.
func NewHybridPipeline(deps *PipelineDeps, config *PipelineConfig) *HybridPipeline {
	if config == nil {
		config = DefaultPipelineConfig()
	}
	if config.Policy == nil {
		config.Policy = DefaultPolicyConfig()
	}
	if deps == nil {
		deps = &PipelineDeps{}
	}

	pattern := deps.Pattern
	if pattern == nil {
		pattern = NewPatternExtractor(nil)
	}

	return &HybridPipeline{
		config:     config,
		policy:     NewFallbackPolicy(config.Policy, pattern.Tables().DomainIndicators),
		pattern:    pattern,
		generative: deps.Generative,
		customers:  deps.Customers,
		recorder:   deps.Recorder,
		aiStats:    deps.AIStats,
		counters:   make(map[string]*atomic.Int64),
	}
}

// Classify assigns an intent to an email.
func (p *HybridPipeline) Classify(ctx context.Context, subject, body string) domain.ClassificationResult {
	match := p.pattern.MatchIntent(subject, body)
	result := domain.ClassificationResult{
		Intent:     match.Intent,
		Tier:       domain.TierPattern,
		Confidence: ClassificationConfidence(match),
	}
	inputSize := len(subject) + len(body)

	if !p.aiAvailable() || !p.policy.ShouldClassifyWithAI(result.Confidence, result.Intent, subject, body) {
		p.record(ctx, OperationClassify, out.OutcomePatternSufficient, inputSize)
		return result
	}

	startTime := time.Now()
	outcome := p.generative.Classify(ctx, subject, body)
	if !outcome.OK() {
		p.aiFailed(ctx, OperationClassify, outcome.Err, inputSize, startTime)
		return result
	}

	p.record(ctx, OperationClassify, out.OutcomeOpenAIUsed, inputSize)
	return domain.ClassificationResult{
		Intent:     outcome.Value,
		Tier:       domain.TierAI,
		Confidence: clamp01(p.config.AIClassificationConfidence),
	}
}

// ExtractCustomer returns the stored profile for fromEmail when one exists, otherwise
// a draft synthesized from the email. The draft is not persisted here.
func (p *HybridPipeline) ExtractCustomer(ctx context.Context, fromEmail, body, subject string) domain.CustomerResult {
	if existing := p.findExisting(ctx, fromEmail); existing != nil {
		logger.Debug("[HybridPipeline.ExtractCustomer] existing customer %s, skipping extraction", existing.Email)
		tier := existing.ExtractedBy
		if tier == "" {
			tier = domain.TierPattern
		}
		return domain.CustomerResult{
			Profile:    existing,
			Tier:       tier,
			Confidence: CustomerConfidence(existing),
		}
	}

	profile := p.pattern.BuildProfile(fromEmail, body, subject)
	result := domain.CustomerResult{
		Profile:    profile,
		Tier:       domain.TierPattern,
		Confidence: CustomerConfidence(profile),
	}
	inputSize := len(body)

	if !p.aiAvailable() || !p.policy.ShouldExtractCustomerWithAI(result.Confidence, body) {
		p.record(ctx, OperationExtractCustomer, out.OutcomePatternSufficient, inputSize)
		return result
	}

	startTime := time.Now()
	outcome := p.generative.ExtractCustomer(ctx, fromEmail, body, subject)
	if !outcome.OK() {
		p.aiFailed(ctx, OperationExtractCustomer, outcome.Err, inputSize, startTime)
		// a malformed reply still yields the basic profile, tagged AI
		if outcome.Value == nil {
			return result
		}
		return domain.CustomerResult{
			Profile:    outcome.Value,
			Tier:       domain.TierAI,
			Confidence: CustomerConfidence(outcome.Value),
		}
	}
	if outcome.Value == nil {
		return result
	}

	p.record(ctx, OperationExtractCustomer, out.OutcomeOpenAIUsed, inputSize)
	return domain.CustomerResult{
		Profile:    outcome.Value,
		Tier:       domain.TierAI,
		Confidence: CustomerConfidence(outcome.Value),
	}
}

func (p *HybridPipeline) findExisting(ctx context.Context, fromEmail string) *domain.CustomerProfile {
	if p.customers == nil {
		return nil
	}
	existing, err := p.customers.FindByEmail(ctx, normalizeEmail(fromEmail))
	if err != nil {
		logger.WithError(err).Warn("[HybridPipeline.ExtractCustomer] customer lookup failed for %s, extracting", fromEmail)
		return nil
	}
	if existing != nil {
		existing.Existing = true
	}
	return existing
}

// ParseLineItems extracts requested line items. The result is never empty.
func (p *HybridPipeline) ParseLineItems(ctx context.Context, body string) domain.LineItemsResult {
	items := p.pattern.LineItems(body)
	result := domain.LineItemsResult{
		Items:      items,
		Tier:       domain.TierPattern,
		Confidence: LineItemConfidence(items, body),
	}
	inputSize := len(body)

	if !p.aiAvailable() || !p.policy.ShouldParseLineItemsWithAI(items, result.Confidence, body) {
		p.record(ctx, OperationParseLineItems, out.OutcomePatternSufficient, inputSize)
		return result
	}

	startTime := time.Now()
	outcome := p.generative.ParseLineItems(ctx, body)
	if !outcome.OK() || len(outcome.Value) == 0 {
		err := outcome.Err
		if err == nil {
			err = ErrAIEmpty
		}
		p.aiFailed(ctx, OperationParseLineItems, err, inputSize, startTime)
		return result
	}

	p.record(ctx, OperationParseLineItems, out.OutcomeOpenAIUsed, inputSize)
	return domain.LineItemsResult{
		Items:      outcome.Value,
		Tier:       domain.TierAI,
		Confidence: LineItemConfidence(outcome.Value, body),
	}
}

// GetProcessingStats reports configuration and counters. It has no side effects.
func (p *HybridPipeline) GetProcessingStats() in.ProcessingStats {
	policy := p.policy.Config()
	stats := in.ProcessingStats{
		HybridModeEnabled:   policy.HybridModeEnabled,
		FallbackEnabled:     policy.AIFallbackEnabled,
		ConfidenceThreshold: policy.ConfidenceThreshold,
		CustomerThreshold:   policy.CustomerThreshold,
		LineItemThreshold:   policy.LineItemThreshold,
		AIConfigured:        p.generative != nil,
		Outcomes:            p.outcomeCounts(),
	}
	if p.aiStats != nil {
		ai := p.aiStats.Stats()
		stats.CircuitState = ai.CircuitState
		stats.AITokensUsed = ai.TokensUsed
		stats.AIRequests = ai.Requests
	}
	return stats
}

func (p *HybridPipeline) aiAvailable() bool {
	return p.generative != nil
}

func (p *HybridPipeline) aiFailed(ctx context.Context, operation string, err error, inputSize int, startTime time.Time) {
	logger.WithContext(ctx).WithField("operation", operation).
		WithField("code", apperr.AsAppError(err).Code).
		WithError(err).
		WithDuration(time.Since(startTime)).
		Warn("[HybridPipeline] generative tier failed, using pattern result")
	p.record(ctx, operation, out.OutcomeOpenAIFailed, inputSize)
}

// =============================================================================
// Telemetry
// =============================================================================

func (p *HybridPipeline) record(ctx context.Context, operation, outcome string, inputSize int) {
	p.counter(operation + "." + outcome).Add(1)
	if p.recorder != nil {
		p.recorder.Record(ctx, out.UsageEvent{
			Operation: operation,
			Outcome:   outcome,
			InputSize: inputSize,
		})
	}
}

func (p *HybridPipeline) counter(key string) *atomic.Int64 {
	p.countersMu.RLock()
	c, ok := p.counters[key]
	p.countersMu.RUnlock()
	if ok {
		return c
	}

	p.countersMu.Lock()
	defer p.countersMu.Unlock()
	if c, ok = p.counters[key]; !ok {
		c = &atomic.Int64{}
		p.counters[key] = c
	}
	return c
}

func (p *HybridPipeline) outcomeCounts() map[string]int64 {
	p.countersMu.RLock()
	defer p.countersMu.RUnlock()

	counts := make(map[string]int64, len(p.counters))
	for key, c := range p.counters {
		counts[key] = c.Load()
	}
	return counts
}
