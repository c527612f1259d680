package llm

import (
	"sync"
	"time"
)

var modelPricing = map[string]struct {
	InputPer1M  float64
	OutputPer1M float64
}{
	"gpt-4o-mini": {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4o":      {InputPer1M: 2.50, OutputPer1M: 10.00},
}

// CalculateCost calculates estimated cost for token usage
func CalculateCost(model string, promptTokens, completionTokens int) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}

	inputCost := float64(promptTokens) / 1_000_000 * pricing.InputPer1M
	outputCost := float64(completionTokens) / 1_000_000 * pricing.OutputPer1M

	return inputCost + outputCost
}

// UsageTracker tracks completion token usage and estimated cost
type UsageTracker struct {
	mu           sync.RWMutex
	totalCost    float64
	totalTokens  int64
	requestCount int64
	failureCount int64
	dailyTokens  map[string]int64
	now          func() time.Time
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		dailyTokens: make(map[string]int64),
		now:         time.Now,
	}
}

// Track records one successful completion and returns its estimated cost.
func (t *UsageTracker) Track(model string, inputTokens, outputTokens int) float64 {
	cost := CalculateCost(model, inputTokens, outputTokens)
	tokens := int64(inputTokens + outputTokens)

	t.mu.Lock()
	t.totalCost += cost
	t.totalTokens += tokens
	t.requestCount++
	t.dailyTokens[t.now().Format("2006-01-02")] += tokens
	t.mu.Unlock()

	return cost
}

// TrackFailure records a request that produced no completion.
func (t *UsageTracker) TrackFailure() {
	t.mu.Lock()
	t.failureCount++
	t.mu.Unlock()
}

// TokensOn returns tokens used on the given day.
func (t *UsageTracker) TokensOn(day time.Time) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dailyTokens[day.Format("2006-01-02")]
}

func (t *UsageTracker) GetStats() UsageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := UsageStats{
		TotalCost:    t.totalCost,
		TotalTokens:  t.totalTokens,
		RequestCount: t.requestCount,
		FailureCount: t.failureCount,
	}
	if t.requestCount > 0 {
		stats.AvgCostPerRequest = t.totalCost / float64(t.requestCount)
	}
	return stats
}

type UsageStats struct {
	TotalCost         float64 `json:"total_cost"`
	TotalTokens       int64   `json:"total_tokens"`
	RequestCount      int64   `json:"request_count"`
	FailureCount      int64   `json:"failure_count"`
	AvgCostPerRequest float64 `json:"avg_cost_per_request"`
}
