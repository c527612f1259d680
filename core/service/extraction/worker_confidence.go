package extraction

import (
	"math"
	"strings"

	"intake_server/core/domain"
)

// =============================================================================
// Confidence Scorer
// =============================================================================

const (
	shortTextWords      = 50
	shortTextBoost      = 0.2
	shortBodyChars      = 100
	shortBodyMaxItems   = 2
	shortBodyPenalty    = 0.8
	customerWeightName  = 0.30
	customerWeightCo    = 0.25
	customerWeightPhone = 0.20
	customerWeightAddr  = 0.15
	customerWeightCtry  = 0.10
	itemWeightProduct   = 0.4
	itemWeightTrim      = 0.3
	itemWeightQuantity  = 0.3
)

// ClassificationConfidence scores a pattern classification in [0,1]: the share of the
// winning label's keywords that matched, plus a boost for short texts with a hit.
func ClassificationConfidence(m IntentMatch) float64 {
	if m.TotalPatterns == 0 {
		return 0
	}
	conf := float64(m.MatchedPatterns) / float64(m.TotalPatterns)
	if m.WordCount < shortTextWords && m.MatchedPatterns > 0 {
		conf += shortTextBoost
	}
	return clamp01(conf)
}

// CustomerConfidence is the weighted share of resolved profile fields.
func CustomerConfidence(p *domain.CustomerProfile) float64 {
	if p == nil {
		return 0
	}
	var conf float64
	if p.HasContact() {
		conf += customerWeightName
	}
	if p.HasCompany() {
		conf += customerWeightCo
	}
	if p.HasPhone() {
		conf += customerWeightPhone
	}
	if p.HasAddress() {
		conf += customerWeightAddr
	}
	if p.HasCountry() {
		conf += customerWeightCtry
	}
	return clamp01(conf)
}

// LineItemConfidence averages per-item completeness. Many items found in a very short
// body are likely false positives and get penalized.
func LineItemConfidence(items []domain.LineItemCandidate, body string) float64 {
	if len(items) == 0 {
		return 0
	}

	var sum float64
	for _, item := range items {
		if item.Product.Resolved() {
			sum += itemWeightProduct
		}
		if item.TrimType.Resolved() {
			sum += itemWeightTrim
		}
		if item.RequestedQuantityKg > 0 {
			sum += itemWeightQuantity
		}
	}
	conf := sum / float64(len(items))

	if len(body) < shortBodyChars && len(items) > shortBodyMaxItems {
		conf *= shortBodyPenalty
	}
	return clamp01(conf)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// keep 0.1+0.2 style float noise out of threshold comparisons
	return math.Round(v*1e9) / 1e9
}

// countDomainIndicators counts distinct indicator words present in the lowercased text.
func countDomainIndicators(indicators []string, text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, w := range indicators {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}
