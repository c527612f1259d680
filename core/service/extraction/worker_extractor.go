// Package extraction implements the two-tier inbound email extraction pipeline.
//
// Every email goes through the pattern tier first (keyword and regex tables, no I/O).
// The pattern result is scored and, when the fallback policy says the score is too weak,
// the generative tier is asked once. A generative failure always degrades to the
// pattern result.
//
//	text -> PatternExtractor -> ConfidenceScorer -> FallbackPolicy -> (GenerativeExtractor) -> result
package extraction

import (
	"context"
	"net/http"

	"intake_server/core/domain"
	"intake_server/pkg/apperr"
)

// =============================================================================
// Strategy Interfaces
// =============================================================================

// Classifier assigns an intent label to an email.
type Classifier interface {
	Classify(ctx context.Context, subject, body string) Outcome[domain.Intent]
}

// CustomerExtractor synthesizes a draft customer profile from an email.
type CustomerExtractor interface {
	ExtractCustomer(ctx context.Context, fromEmail, body, subject string) Outcome[*domain.CustomerProfile]
}

// LineItemParser extracts requested line items from an email body.
type LineItemParser interface {
	ParseLineItems(ctx context.Context, body string) Outcome[[]domain.LineItemCandidate]
}

// Extractor is one extraction tier covering all three kinds.
type Extractor interface {
	Classifier
	CustomerExtractor
	LineItemParser
}

// =============================================================================
// Outcome
// =============================================================================

// Outcome carries either a value or the reason a tier could not produce one.
// A failed outcome may still hold a best-effort Value.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fail wraps a failure reason.
func Fail[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

// OK reports whether the outcome succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Generative tier failure reasons.
var (
	ErrAIUnavailable = apperr.New(apperr.CodeAIUnavailable, "generative tier unavailable", http.StatusBadGateway)
	ErrAIMalformed   = apperr.New(apperr.CodeAIMalformed, "generative response malformed", http.StatusBadGateway)
	ErrAIEmpty       = apperr.New(apperr.CodeAIMalformed, "generative response empty", http.StatusBadGateway)
)
