package pricing

import "strings"

// MaxNameLength caps optimized product names to keep cached payloads compact.
const MaxNameLength = 80

// Format selects the output representation of the optimizer.
type Format string

const (
	// FormatOptimized produces compact products plus a SKU price index.
	FormatOptimized Format = "optimized"

	// FormatFull passes raw upstream records through unmodified. No price
	// index is produced in this mode.
	FormatFull Format = "full"
)

// ParseFormat maps a request parameter to a Format, defaulting to optimized.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, string(FormatFull)) {
		return FormatFull
	}
	return FormatOptimized
}

// ClientKind classifies how a client identifier addresses the upstream API.
type ClientKind string

const (
	// KindCode is an opaque Rodin client code.
	KindCode ClientKind = "code"

	// KindEmail is an email address resolved by the upstream by-email accessor.
	KindEmail ClientKind = "email"
)

// ClassifyClientID determines which upstream accessor serves an identifier.
// The classification never changes cache-key semantics: the literal identifier
// string is always the cache key, so a client reachable by both code and email
// produces two independent cache entries.
func ClassifyClientID(id string) ClientKind {
	if strings.Contains(id, "@") {
		return KindEmail
	}
	return KindCode
}

// RawProduct is a single product record as Rodin delivers it. Field names vary
// between Rodin endpoints, so the older aliases are decoded alongside the
// current ones and resolved by the accessor methods.
type RawProduct struct {
	SKU        string  `json:"sku"`
	Reference  string  `json:"reference,omitempty"`
	Name       string  `json:"name"`
	FinalPrice float64 `json:"finalPrice"`
	Price      float64 `json:"price,omitempty"`
	ListPrice  float64 `json:"listPrice"`
	RetailPrice float64 `json:"pvp,omitempty"`
}

// ResolvedSKU returns the product SKU, falling back to the legacy reference
// field. Empty means the upstream omitted both.
func (r RawProduct) ResolvedSKU() string {
	if s := strings.TrimSpace(r.SKU); s != "" {
		return s
	}
	return strings.TrimSpace(r.Reference)
}

// ResolvedFinalPrice returns the effective sale price, never negative.
func (r RawProduct) ResolvedFinalPrice() float64 {
	p := r.FinalPrice
	if p == 0 {
		p = r.Price
	}
	if p < 0 {
		return 0
	}
	return p
}

// ResolvedListPrice returns the catalog price, never negative.
func (r RawProduct) ResolvedListPrice() float64 {
	p := r.ListPrice
	if p == 0 {
		p = r.RetailPrice
	}
	if p < 0 {
		return 0
	}
	return p
}

// Product is the compact representation served to the storefront and held in
// the client price cache.
type Product struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	FinalPrice  float64 `json:"finalPrice"`
	ListPrice   float64 `json:"listPrice"`
	HasDiscount bool    `json:"hasDiscount"`
}

// PricePoint is the per-SKU view stored in the price index.
type PricePoint struct {
	FinalPrice  float64 `json:"finalPrice"`
	ListPrice   float64 `json:"listPrice"`
	HasDiscount bool    `json:"hasDiscount"`
}
