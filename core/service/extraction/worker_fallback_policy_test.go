package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"intake_server/core/domain"
)

func TestFallbackPolicy_Classification(t *testing.T) {
	policy := NewFallbackPolicy(nil, nil)

	tests := []struct {
		name       string
		confidence float64
		intent     domain.Intent
		subject    string
		body       string
		want       bool
	}{
		{"confident simple order", 0.9, domain.IntentOrder, "Order", "Please deliver 20 boxes.", false},
		{"low confidence", 0.5, domain.IntentOrder, "Order", "Please deliver 20 boxes.", true},
		{"general label", 0.9, domain.IntentGeneral, "Hi", "Thanks.", true},
		{"long text", 0.9, domain.IntentOrder, "Order", strings.Repeat("a", 801), true},
		{"many sentences", 0.9, domain.IntentOrder, "Order", "One. Two. Three. Four. Five. Six.", true},
		{"five sentences is fine", 0.9, domain.IntentOrder, "Order", "One. Two. Three. Four. Five.", false},
		{"question", 0.9, domain.IntentOrder, "Order", "Can you deliver 20 boxes", true},
		{"question mark alone", 0.9, domain.IntentOrder, "Order", "Order 500kg salmon fillets?", false},
		{"vague quantity", 0.9, domain.IntentOrder, "Order", "Deliver about 20 boxes.", true},
		{"several", 0.9, domain.IntentOrder, "Order", "Deliver several boxes.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldClassifyWithAI(tt.confidence, tt.intent, tt.subject, tt.body))
		})
	}
}

func TestFallbackPolicy_Customer(t *testing.T) {
	policy := NewFallbackPolicy(nil, nil)
	longBody := strings.Repeat("b", 201)

	tests := []struct {
		name       string
		confidence float64
		body       string
		want       bool
	}{
		{"below minimum", 0.4, "short", true},
		{"medium confidence long body", 0.6, longBody, true},
		{"medium confidence short body", 0.6, "short", false},
		{"body exactly at limit", 0.6, strings.Repeat("b", 200), false},
		{"high confidence long body", 0.8, longBody, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldExtractCustomerWithAI(tt.confidence, tt.body))
		})
	}
}

func TestFallbackPolicy_LineItems(t *testing.T) {
	policy := NewFallbackPolicy(nil, nil)
	item := domain.LineItemCandidate{Product: domain.ProductCod, TrimType: domain.TrimLoin, RequestedQuantityKg: 10}
	placeholder := []domain.LineItemCandidate{PlaceholderLineItem("x", domain.TierPattern)}

	tests := []struct {
		name       string
		items      []domain.LineItemCandidate
		confidence float64
		body       string
		want       bool
	}{
		{"empty result", nil, 0, "", true},
		{"placeholder only", placeholder, 0, "Please send your best price.", true},
		{"low confidence", []domain.LineItemCandidate{item}, 0.5, "cod", true},
		{"domain heavy body with one item", []domain.LineItemCandidate{item}, 1, "fresh or frozen fish", true},
		{"domain heavy body with two items", []domain.LineItemCandidate{item, item}, 1, "fresh or frozen fish", false},
		{"confident single item", []domain.LineItemCandidate{item}, 1, "cod loins 10kg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldParseLineItemsWithAI(tt.items, tt.confidence, tt.body))
		})
	}
}

func TestFallbackPolicy_Disabled(t *testing.T) {
	for _, cfg := range []*PolicyConfig{
		{HybridModeEnabled: false, AIFallbackEnabled: true},
		{HybridModeEnabled: true, AIFallbackEnabled: false},
	} {
		policy := NewFallbackPolicy(cfg, nil)

		assert.False(t, policy.Enabled())
		assert.False(t, policy.ShouldClassifyWithAI(0, domain.IntentGeneral, "", "what?"))
		assert.False(t, policy.ShouldExtractCustomerWithAI(0, ""))
		assert.False(t, policy.ShouldParseLineItemsWithAI(nil, 0, ""))
	}
}

func TestFallbackPolicy_IsComplex(t *testing.T) {
	policy := NewFallbackPolicy(nil, nil)

	assert.False(t, policy.IsComplex("Order", "Order 500kg salmon fillets?"))
	assert.True(t, policy.IsComplex("Order", "Which sizes do you have?"))
	assert.True(t, policy.IsComplex("Quote", "Could you quote 500kg salmon fillets"))
}
