package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"intake_server/core/domain"
	"intake_server/core/port/out"
)

const (
	generativeSystemPrompt = "You are an assistant for a seafood trading company. " +
		"You read inbound customer emails and extract structured data. " +
		"Follow the requested output format exactly and do not add commentary."

	generativeTemperature = 0.1
	generativeMaxTokens   = 500
)

// GenerativeConfig tunes the completion requests.
type GenerativeConfig struct {
	Temperature float32
	MaxTokens   int
}

// DefaultGenerativeConfig returns the default request settings.
func DefaultGenerativeConfig() *GenerativeConfig {
	return &GenerativeConfig{
		Temperature: generativeTemperature,
		MaxTokens:   generativeMaxTokens,
	}
}

// GenerativeExtractor asks the completion service once per call.
// It never returns an error to the caller; failures are reported through Outcome.Err.
type GenerativeExtractor struct {
	client out.CompletionClient
	config *GenerativeConfig
}

// NewGenerativeExtractor creates a generative tier on top of client.
func NewGenerativeExtractor(client out.CompletionClient, config *GenerativeConfig) *GenerativeExtractor {
	if config == nil {
		config = DefaultGenerativeConfig()
	}
	return &GenerativeExtractor{client: client, config: config}
}

// Name returns the tier name.
func (g *GenerativeExtractor) Name() string {
	return string(domain.TierAI)
}

func (g *GenerativeExtractor) complete(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrAIUnavailable
	}
	resp, err := g.client.Complete(ctx, out.CompletionRequest{
		System:      generativeSystemPrompt,
		Prompt:      prompt,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return "", ErrAIEmpty
	}
	return resp, nil
}

// =============================================================================
// Classification
// =============================================================================

// Classify implements Classifier.
func (g *GenerativeExtractor) Classify(ctx context.Context, subject, body string) Outcome[domain.Intent] {
	resp, err := g.complete(ctx, classificationPrompt(subject, body))
	if err != nil {
		return Fail[domain.Intent](err)
	}
	return Ok(ParseIntentLabel(resp))
}

func classificationPrompt(subject, body string) string {
	labels := make([]string, len(domain.IntentPriority))
	for i, intent := range domain.IntentPriority {
		labels[i] = string(intent)
	}
	return fmt.Sprintf(`Classify the intent of this email.

Subject: %s
Body:
%s

Respond with exactly one of these labels and nothing else: %s`,
		subject, body, strings.Join(labels, ", "))
}

// ParseIntentLabel returns the first label, in priority order, contained in the
// uppercased response. Defaults to GENERAL.
func ParseIntentLabel(resp string) domain.Intent {
	upper := strings.ToUpper(resp)
	for _, intent := range domain.IntentPriority {
		if strings.Contains(upper, string(intent)) {
			return intent
		}
	}
	return domain.IntentGeneral
}

// =============================================================================
// Customer
// =============================================================================

type aiCustomer struct {
	ContactPerson string `json:"contactPerson"`
	CompanyName   string `json:"companyName"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Country       string `json:"country"`
}

// ExtractCustomer implements CustomerExtractor. A malformed response returns the
// basic profile together with ErrAIMalformed.
func (g *GenerativeExtractor) ExtractCustomer(ctx context.Context, fromEmail, body, subject string) Outcome[*domain.CustomerProfile] {
	resp, err := g.complete(ctx, customerPrompt(fromEmail, body, subject))
	if err != nil {
		return Fail[*domain.CustomerProfile](err)
	}

	var parsed aiCustomer
	if err := json.Unmarshal([]byte(stripCodeFence(resp)), &parsed); err != nil {
		return Outcome[*domain.CustomerProfile]{
			Value: BasicProfile(fromEmail, domain.TierAI),
			Err:   fmt.Errorf("%w: %v", ErrAIMalformed, err),
		}
	}

	profile := &domain.CustomerProfile{
		Email:         normalizeEmail(fromEmail),
		ContactPerson: orDefault(parsed.ContactPerson, domain.UnknownContact),
		CompanyName:   orDefault(parsed.CompanyName, domain.UnknownCompany),
		Phone:         optional(parsed.Phone),
		Address:       optional(parsed.Address),
		Country:       orDefault(parsed.Country, domain.UnknownCountry),
		ExtractedBy:   domain.TierAI,
	}
	profile.MarkResolved()
	return Ok(profile)
}

func customerPrompt(fromEmail, body, subject string) string {
	return fmt.Sprintf(`Extract the sender's customer details from this email.

From: %s
Subject: %s
Body:
%s

Respond with a single JSON object with exactly these keys:
{"contactPerson": "", "companyName": "", "phone": "", "address": "", "country": ""}
Use an empty string for any value you cannot find.`,
		fromEmail, subject, body)
}

// BasicProfile is the minimal profile used when nothing better can be extracted.
func BasicProfile(fromEmail string, tier domain.ExtractionTier) *domain.CustomerProfile {
	profile := &domain.CustomerProfile{
		Email:         normalizeEmail(fromEmail),
		ContactPerson: domain.BasicContact,
		CompanyName:   domain.UnknownCompany,
		Country:       domain.UnknownCountry,
		ExtractedBy:   tier,
	}
	profile.MarkResolved()
	return profile
}

// =============================================================================
// Line Items
// =============================================================================

type aiLineItem struct {
	SourceText           string  `json:"sourceText"`
	Product              string  `json:"product"`
	TrimType             string  `json:"trimType"`
	RequestedQuantityKg  float64 `json:"requestedQuantityKg"`
	CustomerSkuReference string  `json:"customerSkuReference"`
	MappingConfidence    string  `json:"mappingConfidence"`
}

// ParseLineItems implements LineItemParser. A non-array, malformed or empty
// response is a failure.
func (g *GenerativeExtractor) ParseLineItems(ctx context.Context, body string) Outcome[[]domain.LineItemCandidate] {
	resp, err := g.complete(ctx, lineItemsPrompt(body))
	if err != nil {
		return Fail[[]domain.LineItemCandidate](err)
	}

	var parsed []aiLineItem
	if err := json.Unmarshal([]byte(stripCodeFence(resp)), &parsed); err != nil {
		return Outcome[[]domain.LineItemCandidate]{
			Value: []domain.LineItemCandidate{},
			Err:   fmt.Errorf("%w: %v", ErrAIMalformed, err),
		}
	}
	if len(parsed) == 0 {
		return Outcome[[]domain.LineItemCandidate]{Value: []domain.LineItemCandidate{}, Err: ErrAIEmpty}
	}

	items := make([]domain.LineItemCandidate, 0, len(parsed))
	for _, p := range parsed {
		qty := p.RequestedQuantityKg
		if qty < 0 {
			qty = 0
		}
		items = append(items, domain.LineItemCandidate{
			SourceText:           p.SourceText,
			Product:              domain.ParseProduct(p.Product),
			TrimType:             domain.ParseTrimType(p.TrimType),
			RequestedQuantityKg:  qty,
			CustomerSkuReference: optional(p.CustomerSkuReference),
			MappingConfidence:    domain.ParseMappingConfidence(p.MappingConfidence),
			ExtractedBy:          domain.TierAI,
		})
	}
	return Ok(items)
}

func lineItemsPrompt(body string) string {
	return fmt.Sprintf(`Extract every product line item requested in this email.

Body:
%s

Respond with a JSON array only. Each element must have exactly these keys:
{"sourceText": "", "product": "", "trimType": "", "requestedQuantityKg": 0, "customerSkuReference": "", "mappingConfidence": ""}
product is one of: SALMON, COD, HADDOCK, TROUT, HALIBUT, MACKEREL, HERRING, TUNA, SHRIMP, POLLOCK, SEABASS, GENERAL, UNKNOWN.
trimType is one of: FILLET, LOIN, PORTION, WHOLE, STEAK, BACK, TAIL, SKIN_ON, SKINLESS, BONELESS, HGT, UNKNOWN.
mappingConfidence is one of: HIGH, MEDIUM, LOW, MANUAL_REVIEW.
Convert quantities to kilograms.`, body)
}

// =============================================================================
// Helpers
// =============================================================================

func stripCodeFence(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func optional(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return &v
}
