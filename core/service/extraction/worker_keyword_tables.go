package extraction

import (
	"regexp"
	"strings"

	"intake_server/core/domain"
)

// =============================================================================
// Lookup Tables
// =============================================================================

// Tables holds the immutable keyword and regex tables used by the pattern tier.
// Build once at startup and share; nothing mutates a Tables after construction.
type Tables struct {
	// IntentKeywords are lowercase substrings counted per label.
	IntentKeywords map[domain.Intent][]string

	SignaturePatterns []*regexp.Regexp
	CompanyPatterns   []*regexp.Regexp
	PhonePatterns     []*regexp.Regexp
	AddressPatterns   []*regexp.Regexp

	// PersonalMailDomains never yield a company name.
	PersonalMailDomains map[string]bool

	// TLDCountries maps a top-level domain to a country name.
	TLDCountries map[string]string

	// CountryNames are scanned, in order, against the lowercased body.
	CountryNames []CountryName

	Products []ProductKeyword
	Trims    []TrimKeyword

	// DomainIndicators feed the line-item fallback check.
	DomainIndicators []string
}

// CountryName pairs a lowercase body token with its display name.
type CountryName struct {
	Token string
	Name  string
}

// ProductKeyword maps a keyword to a product code.
type ProductKeyword struct {
	Keyword string
	Product domain.Product
	re      *regexp.Regexp
}

// TrimKeyword maps a keyword to a trim code.
type TrimKeyword struct {
	Keyword string
	Trim    domain.TrimType
	re      *regexp.Regexp
}

// keywordRegexp matches a keyword on word boundaries, allowing a plural "s",
// so "cod" does not hit "code" but "fillet" hits "fillets".
func keywordRegexp(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `s?\b`)
}

// Compile prepares keyword regexps. DefaultTables returns compiled tables already.
func (t *Tables) Compile() *Tables {
	for i := range t.Products {
		if t.Products[i].re == nil {
			t.Products[i].re = keywordRegexp(t.Products[i].Keyword)
		}
	}
	for i := range t.Trims {
		if t.Trims[i].re == nil {
			t.Trims[i].re = keywordRegexp(t.Trims[i].Keyword)
		}
	}
	return t
}

// productIn returns the first product table entry found in text.
func (t *Tables) productIn(text string) (domain.Product, bool) {
	for _, p := range t.Products {
		if p.re.MatchString(text) {
			return p.Product, true
		}
	}
	return domain.ProductUnknown, false
}

// trimIn returns the first trim table entry found in text.
func (t *Tables) trimIn(text string) (domain.TrimType, bool) {
	for _, tr := range t.Trims {
		if tr.re.MatchString(text) {
			return tr.Trim, true
		}
	}
	return domain.TrimUnknown, false
}

// DefaultTables returns the built-in tables for a seafood wholesaler's inbox.
func DefaultTables() *Tables {
	t := &Tables{
		IntentKeywords: map[domain.Intent][]string{
			domain.IntentEnquiry: {
				"enquiry", "inquiry", "price", "pricing", "quotation", "availability",
				"interested in", "could you", "can you", "do you have", "catalogue",
				"catalog", "rfq", "information about",
			},
			domain.IntentOrder: {
				"order", "purchase", "po number", "please deliver", "place an",
				"confirm the", "dispatch", "ship to", "shipment", "delivery date",
				"we need", "invoice to",
			},
			domain.IntentComplaint: {
				"complaint", "complain", "damaged", "wrong", "late delivery", "delayed",
				"disappointed", "unacceptable", "refund", "poor quality", "not fresh",
				"spoiled", "missing", "problem",
			},
			domain.IntentQuoteResponse: {
				"your quote", "your offer", "quote ref", "quote number", "accept the quote",
				"accept your", "counter offer", "counteroffer", "offer accepted",
				"proceed with the quote", "regarding the quote",
			},
			domain.IntentGeneral: {
				"thank you", "newsletter", "meeting", "holiday", "greetings",
				"introduction", "out of office", "fyi",
			},
		},

		SignaturePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)best regards,\s*([^\r\n]*)`),
			regexp.MustCompile(`(?i)regards,\s*([^\r\n]*)`),
			regexp.MustCompile(`(?i)sincerely,\s*([^\r\n]*)`),
			regexp.MustCompile(`(?i)kind regards,\s*([^\r\n]*)`),
			regexp.MustCompile(`(?i)from:[ \t]*([^\r\n<]*)`),
		},

		CompanyPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b([A-Z][A-Za-z0-9&'\-]*(?:[ \t]+[A-Z][A-Za-z0-9&'\-]*){0,4}[ \t]+(?:Ltd\.?|Limited|Plc|PLC))`),
			regexp.MustCompile(`\b([A-Z][A-Za-z0-9&'\-]*(?:[ \t]+[A-Z][A-Za-z0-9&'\-]*){0,4}[ \t]+(?:Inc\.?|LLC|Corp\.?|Corporation))`),
			regexp.MustCompile(`\b([A-Z][A-Za-z0-9&'\-]*(?:[ \t]+[A-Z][A-Za-z0-9&'\-]*){0,4}[ \t]+(?:GmbH|ASA|AS|AB|BV|Oy|ApS|S\.A\.|SA))\b`),
		},

		PhonePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:phone|tel|mobile)[ \t]*[:.]?[ \t]*(\+?[0-9][0-9 ().\-]{5,20}[0-9])`),
			regexp.MustCompile(`(\+[0-9]{1,3}[ .\-]?\(?[0-9]{1,4}\)?(?:[ .\-]?[0-9]{2,4}){2,4})`),
		},

		AddressPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:address|location)[ \t]*:[ \t]*([^\r\n]{5,120})`),
			regexp.MustCompile(`(?i)\b([0-9]{1,5}[ \t]+[A-Za-z0-9 .'\-]{2,60}?[ \t](?:street|road|avenue|lane|boulevard|drive|gate|gata|veien|vei|strasse|st\.|rd\.|ave\.|blvd\.?))`),
		},

		PersonalMailDomains: map[string]bool{
			"gmail.com": true, "googlemail.com": true, "yahoo.com": true, "yahoo.co.uk": true,
			"hotmail.com": true, "outlook.com": true, "live.com": true, "msn.com": true,
			"icloud.com": true, "me.com": true, "aol.com": true, "protonmail.com": true,
			"proton.me": true, "gmx.com": true, "gmx.de": true, "mail.com": true,
			"yandex.com": true, "zoho.com": true,
		},

		TLDCountries: map[string]string{
			"no": "Norway", "se": "Sweden", "dk": "Denmark", "fi": "Finland", "is": "Iceland",
			"fo": "Faroe Islands", "uk": "United Kingdom", "ie": "Ireland", "de": "Germany",
			"fr": "France", "es": "Spain", "pt": "Portugal", "it": "Italy", "nl": "Netherlands",
			"be": "Belgium", "pl": "Poland", "ch": "Switzerland", "at": "Austria",
			"us": "United States", "ca": "Canada", "cl": "Chile", "jp": "Japan", "cn": "China",
			"kr": "South Korea", "sg": "Singapore", "hk": "Hong Kong", "vn": "Vietnam",
			"th": "Thailand", "au": "Australia", "nz": "New Zealand", "ae": "United Arab Emirates",
		},

		CountryNames: []CountryName{
			{"norway", "Norway"}, {"sweden", "Sweden"}, {"denmark", "Denmark"},
			{"finland", "Finland"}, {"iceland", "Iceland"}, {"faroe islands", "Faroe Islands"},
			{"united kingdom", "United Kingdom"}, {"scotland", "United Kingdom"},
			{"england", "United Kingdom"}, {"ireland", "Ireland"}, {"germany", "Germany"},
			{"france", "France"}, {"spain", "Spain"}, {"portugal", "Portugal"},
			{"italy", "Italy"}, {"netherlands", "Netherlands"}, {"belgium", "Belgium"},
			{"poland", "Poland"}, {"switzerland", "Switzerland"}, {"austria", "Austria"},
			{"united states", "United States"}, {"usa", "United States"}, {"canada", "Canada"},
			{"chile", "Chile"}, {"japan", "Japan"}, {"china", "China"},
			{"south korea", "South Korea"}, {"singapore", "Singapore"},
			{"hong kong", "Hong Kong"}, {"vietnam", "Vietnam"}, {"thailand", "Thailand"},
			{"australia", "Australia"}, {"new zealand", "New Zealand"},
			{"united arab emirates", "United Arab Emirates"}, {"dubai", "United Arab Emirates"},
		},

		Products: []ProductKeyword{
			{Keyword: "salmon", Product: domain.ProductSalmon},
			{Keyword: "cod", Product: domain.ProductCod},
			{Keyword: "haddock", Product: domain.ProductHaddock},
			{Keyword: "trout", Product: domain.ProductTrout},
			{Keyword: "halibut", Product: domain.ProductHalibut},
			{Keyword: "mackerel", Product: domain.ProductMackerel},
			{Keyword: "herring", Product: domain.ProductHerring},
			{Keyword: "tuna", Product: domain.ProductTuna},
			{Keyword: "shrimp", Product: domain.ProductShrimp},
			{Keyword: "prawn", Product: domain.ProductShrimp},
			{Keyword: "pollock", Product: domain.ProductPollock},
			{Keyword: "saithe", Product: domain.ProductPollock},
			{Keyword: "sea bass", Product: domain.ProductSeabass},
			{Keyword: "seabass", Product: domain.ProductSeabass},
		},

		Trims: []TrimKeyword{
			{Keyword: "fillet", Trim: domain.TrimFillet},
			{Keyword: "filet", Trim: domain.TrimFillet},
			{Keyword: "loin", Trim: domain.TrimLoin},
			{Keyword: "portion", Trim: domain.TrimPortion},
			{Keyword: "steak", Trim: domain.TrimSteak},
			{Keyword: "backs", Trim: domain.TrimBack},
			{Keyword: "tail", Trim: domain.TrimTail},
			{Keyword: "whole", Trim: domain.TrimWhole},
			{Keyword: "hgt", Trim: domain.TrimHGT},
			{Keyword: "headed and gutted", Trim: domain.TrimHGT},
			{Keyword: "skin-on", Trim: domain.TrimSkinOn},
			{Keyword: "skin on", Trim: domain.TrimSkinOn},
			{Keyword: "skinless", Trim: domain.TrimSkinless},
			{Keyword: "boneless", Trim: domain.TrimBoneless},
		},

		DomainIndicators: []string{
			"fish", "seafood", "food", "kg", "ton", "pound", "supply", "deliver",
			"fresh", "frozen", "quality", "grade", "restaurant", "kitchen",
		},
	}
	return t.Compile()
}

// countryForTLD resolves the country for a sender domain by its last label.
func (t *Tables) countryForTLD(domainName string) (string, bool) {
	dot := strings.LastIndex(domainName, ".")
	if dot < 0 || dot == len(domainName)-1 {
		return "", false
	}
	country, ok := t.TLDCountries[domainName[dot+1:]]
	return country, ok
}
