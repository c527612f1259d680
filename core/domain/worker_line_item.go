package domain

import "strings"

// Product is the product code of a requested line item.
type Product string

const (
	ProductSalmon   Product = "SALMON"
	ProductCod      Product = "COD"
	ProductHaddock  Product = "HADDOCK"
	ProductTrout    Product = "TROUT"
	ProductHalibut  Product = "HALIBUT"
	ProductMackerel Product = "MACKEREL"
	ProductHerring  Product = "HERRING"
	ProductTuna     Product = "TUNA"
	ProductShrimp   Product = "SHRIMP"
	ProductPollock  Product = "POLLOCK"
	ProductSeabass  Product = "SEABASS"
	ProductGeneral  Product = "GENERAL"
	ProductUnknown  Product = "UNKNOWN"
)

var knownProducts = map[Product]bool{
	ProductSalmon: true, ProductCod: true, ProductHaddock: true, ProductTrout: true,
	ProductHalibut: true, ProductMackerel: true, ProductHerring: true, ProductTuna: true,
	ProductShrimp: true, ProductPollock: true, ProductSeabass: true, ProductGeneral: true,
}

// ParseProduct normalizes a free-form code. Unrecognized codes map to ProductUnknown.
func ParseProduct(s string) Product {
	p := Product(normalizeCode(s))
	if knownProducts[p] {
		return p
	}
	return ProductUnknown
}

// Resolved reports whether the product is a concrete product code.
// GENERAL is the placeholder for unstructured requests and does not count.
func (p Product) Resolved() bool {
	return p != "" && p != ProductUnknown && p != ProductGeneral
}

// TrimType is the cut or trim of a requested line item.
type TrimType string

const (
	TrimFillet   TrimType = "FILLET"
	TrimLoin     TrimType = "LOIN"
	TrimPortion  TrimType = "PORTION"
	TrimWhole    TrimType = "WHOLE"
	TrimSteak    TrimType = "STEAK"
	TrimBack     TrimType = "BACK"
	TrimTail     TrimType = "TAIL"
	TrimSkinOn   TrimType = "SKIN_ON"
	TrimSkinless TrimType = "SKINLESS"
	TrimBoneless TrimType = "BONELESS"
	TrimHGT      TrimType = "HGT"
	TrimUnknown  TrimType = "UNKNOWN"
)

var knownTrims = map[TrimType]bool{
	TrimFillet: true, TrimLoin: true, TrimPortion: true, TrimWhole: true, TrimSteak: true,
	TrimBack: true, TrimTail: true, TrimSkinOn: true, TrimSkinless: true, TrimBoneless: true,
	TrimHGT: true,
}

// ParseTrimType normalizes a free-form code. Unrecognized codes map to TrimUnknown.
func ParseTrimType(s string) TrimType {
	t := TrimType(normalizeCode(s))
	if knownTrims[t] {
		return t
	}
	return TrimUnknown
}

// Resolved reports whether the trim type is a concrete code.
func (t TrimType) Resolved() bool {
	return t != "" && t != TrimUnknown
}

// MappingConfidence grades how completely a line item was mapped.
type MappingConfidence string

const (
	MappingHigh         MappingConfidence = "HIGH"
	MappingMedium       MappingConfidence = "MEDIUM"
	MappingLow          MappingConfidence = "LOW"
	MappingManualReview MappingConfidence = "MANUAL_REVIEW"
)

// ParseMappingConfidence normalizes a free-form grade, defaulting to LOW.
func ParseMappingConfidence(s string) MappingConfidence {
	switch m := MappingConfidence(normalizeCode(s)); m {
	case MappingHigh, MappingMedium, MappingLow, MappingManualReview:
		return m
	default:
		return MappingLow
	}
}

// LineItemCandidate is one requested product parsed from email text.
type LineItemCandidate struct {
	SourceText           string            `json:"source_text"`
	Product              Product           `json:"product"`
	TrimType             TrimType          `json:"trim_type"`
	RequestedQuantityKg  float64           `json:"requested_quantity_kg"`
	CustomerSkuReference *string           `json:"customer_sku_reference,omitempty"`
	MappingConfidence    MappingConfidence `json:"mapping_confidence"`
	ExtractedBy          ExtractionTier    `json:"extracted_by"`
}

func normalizeCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}
