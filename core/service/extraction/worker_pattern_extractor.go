package extraction

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"intake_server/core/domain"
)

// =============================================================================
// Pattern Extractor (Tier 1)
// =============================================================================

var (
	quantityLinePattern = regexp.MustCompile(`(?i)\d+\s*(kg|ton|tons|pound|lbs|pieces?)`)
	quantityPattern     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kg|tons|ton|pounds|pound|lbs)`)
	skuPattern          = regexp.MustCompile(`(?i)(sku|item|code|ref)[:\s#]+(\w+)`)
)

const (
	minCandidateLineLen = 10
	minContactLen       = 2
	maxContactLen       = 50
	placeholderExcerpt  = 200

	kgPerTon   = 1000.0
	kgPerPound = 0.45359237
)

// PatternExtractor is the deterministic tier. It never fails; unresolved fields
// fall back to the domain sentinels.
type PatternExtractor struct {
	tables *Tables
}

// NewPatternExtractor creates a pattern extractor over the given tables.
// A nil tables argument selects DefaultTables.
func NewPatternExtractor(tables *Tables) *PatternExtractor {
	if tables == nil {
		tables = DefaultTables()
	}
	return &PatternExtractor{tables: tables}
}

// Tables returns the lookup tables in use.
func (e *PatternExtractor) Tables() *Tables {
	return e.tables
}

// Name returns the tier name.
func (e *PatternExtractor) Name() string {
	return "pattern"
}

// =============================================================================
// Classification
// =============================================================================

// IntentMatch is the detailed pattern classification used for confidence scoring.
type IntentMatch struct {
	Intent          domain.Intent
	Scores          map[domain.Intent]int
	MatchedPatterns int // distinct keywords of the winning label that occurred
	TotalPatterns   int // keywords defined for the winning label
	WordCount       int
}

// Classify implements Classifier.
func (e *PatternExtractor) Classify(_ context.Context, subject, body string) Outcome[domain.Intent] {
	return Ok(e.MatchIntent(subject, body).Intent)
}

// MatchIntent scores every label by keyword occurrences and picks the winner.
func (e *PatternExtractor) MatchIntent(subject, body string) IntentMatch {
	text := strings.ToLower(subject + " " + body)
	match := IntentMatch{
		Intent:    domain.IntentGeneral,
		Scores:    make(map[domain.Intent]int, len(domain.IntentPriority)),
		WordCount: len(strings.Fields(text)),
	}

	matched := make(map[domain.Intent]int, len(domain.IntentPriority))
	for _, intent := range domain.IntentPriority {
		for _, kw := range e.tables.IntentKeywords[intent] {
			// strings.Count consumes each match, so overlapping hits are not double counted.
			if n := strings.Count(text, kw); n > 0 {
				match.Scores[intent] += n
				matched[intent]++
			}
		}
	}

	best := 0
	for _, intent := range domain.IntentPriority {
		if match.Scores[intent] > best {
			best = match.Scores[intent]
			match.Intent = intent
		}
	}

	match.MatchedPatterns = matched[match.Intent]
	match.TotalPatterns = len(e.tables.IntentKeywords[match.Intent])
	return match
}

// =============================================================================
// Customer
// =============================================================================

// ExtractCustomer implements CustomerExtractor.
func (e *PatternExtractor) ExtractCustomer(_ context.Context, fromEmail, body, subject string) Outcome[*domain.CustomerProfile] {
	return Ok(e.BuildProfile(fromEmail, body, subject))
}

// BuildProfile synthesizes a draft profile from the sender address and body.
func (e *PatternExtractor) BuildProfile(fromEmail, body, _ string) *domain.CustomerProfile {
	senderDomain := domain.EmailDomain(fromEmail)

	profile := &domain.CustomerProfile{
		Email:         normalizeEmail(fromEmail),
		ContactPerson: e.contactPerson(body),
		CompanyName:   e.companyName(senderDomain, body),
		Phone:         firstSubmatch(e.tables.PhonePatterns, body),
		Address:       firstSubmatch(e.tables.AddressPatterns, body),
		Country:       e.country(senderDomain, body),
		ExtractedBy:   domain.TierPattern,
	}
	profile.MarkResolved()
	return profile
}

func (e *PatternExtractor) contactPerson(body string) string {
	for _, re := range e.tables.SignaturePatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		name := strings.Trim(strings.TrimSpace(m[1]), ",;")
		n := utf8.RuneCountInString(name)
		if n < minContactLen || n > maxContactLen {
			continue
		}
		return name
	}
	return domain.UnknownContact
}

func (e *PatternExtractor) companyName(senderDomain, body string) string {
	if senderDomain != "" && !e.tables.PersonalMailDomains[senderDomain] {
		label := senderDomain
		if dot := strings.Index(label, "."); dot > 0 {
			label = label[:dot]
		}
		if label != "" {
			return strings.ToUpper(label[:1]) + label[1:]
		}
	}

	for _, re := range e.tables.CompanyPatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return domain.UnknownCompany
}

func (e *PatternExtractor) country(senderDomain, body string) string {
	if country, ok := e.tables.countryForTLD(senderDomain); ok {
		return country
	}

	lower := strings.ToLower(body)
	for _, c := range e.tables.CountryNames {
		if strings.Contains(lower, c.Token) {
			return c.Name
		}
	}
	return domain.UnknownCountry
}

func firstSubmatch(patterns []*regexp.Regexp, text string) *string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			v := strings.TrimSpace(m[1])
			if v != "" {
				return &v
			}
		}
	}
	return nil
}

// =============================================================================
// Line Items
// =============================================================================

// ParseLineItems implements LineItemParser.
func (e *PatternExtractor) ParseLineItems(_ context.Context, body string) Outcome[[]domain.LineItemCandidate] {
	return Ok(e.LineItems(body))
}

// LineItems returns one candidate per qualifying line, or a single manual-review
// placeholder when no line qualifies. The result is never empty.
func (e *PatternExtractor) LineItems(body string) []domain.LineItemCandidate {
	var items []domain.LineItemCandidate

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if !e.isCandidateLine(line) {
			continue
		}
		items = append(items, e.lineItem(line))
	}

	if len(items) == 0 {
		return []domain.LineItemCandidate{PlaceholderLineItem(body, domain.TierPattern)}
	}
	return items
}

func (e *PatternExtractor) isCandidateLine(line string) bool {
	if utf8.RuneCountInString(line) < minCandidateLineLen {
		return false
	}
	if _, ok := e.tables.productIn(line); ok {
		return true
	}
	if quantityLinePattern.MatchString(line) {
		return true
	}
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "*")
}

func (e *PatternExtractor) lineItem(line string) domain.LineItemCandidate {
	product, _ := e.tables.productIn(line)
	trim, _ := e.tables.trimIn(line)

	item := domain.LineItemCandidate{
		SourceText:          line,
		Product:             product,
		TrimType:            trim,
		RequestedQuantityKg: parseQuantityKg(line),
		ExtractedBy:         domain.TierPattern,
	}
	if m := skuPattern.FindStringSubmatch(line); m != nil {
		sku := m[2]
		item.CustomerSkuReference = &sku
	}
	item.MappingConfidence = MappingConfidenceFor(item)
	return item
}

// parseQuantityKg converts the first quantity mention in text to kilograms.
func parseQuantityKg(text string) float64 {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	qty, err := strconv.ParseFloat(m[1], 64)
	if err != nil || qty < 0 {
		return 0
	}

	switch strings.ToLower(m[2]) {
	case "ton", "tons":
		qty *= kgPerTon
	case "pound", "pounds", "lbs":
		qty *= kgPerPound
	}
	return math.Round(qty*1000) / 1000
}

// MappingConfidenceFor grades an item: product 40, trim 30, quantity 30.
// HIGH at 80 and above, MEDIUM at 50 and above, LOW otherwise.
func MappingConfidenceFor(item domain.LineItemCandidate) domain.MappingConfidence {
	score := 0
	if item.Product.Resolved() {
		score += 40
	}
	if item.TrimType.Resolved() {
		score += 30
	}
	if item.RequestedQuantityKg > 0 {
		score += 30
	}

	switch {
	case score >= 80:
		return domain.MappingHigh
	case score >= 50:
		return domain.MappingMedium
	default:
		return domain.MappingLow
	}
}

// PlaceholderLineItem is the single item returned when nothing structured was found.
func PlaceholderLineItem(body string, tier domain.ExtractionTier) domain.LineItemCandidate {
	return domain.LineItemCandidate{
		SourceText:        excerpt(body, placeholderExcerpt),
		Product:           domain.ProductGeneral,
		TrimType:          domain.TrimUnknown,
		MappingConfidence: domain.MappingManualReview,
		ExtractedBy:       tier,
	}
}

// IsPlaceholder reports whether items is only the manual-review placeholder.
func IsPlaceholder(items []domain.LineItemCandidate) bool {
	return len(items) == 1 &&
		items[0].Product == domain.ProductGeneral &&
		items[0].MappingConfidence == domain.MappingManualReview
}

func excerpt(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "..."
}
