package pricecache

import (
	"time"

	"github.com/arteq-commerce/rodin-gateway/pkg/pricing"
)

// Metadata describes how and when a cached payload was obtained.
type Metadata struct {
	// ObtainedAt is when the upstream fetch completed.
	ObtainedAt time.Time `json:"obtainedAt"`

	// FetchDurationMs is the wall-clock duration of the upstream fetch.
	FetchDurationMs int64 `json:"fetchDurationMs"`

	// SourceFormat records which optimizer format produced the payload.
	SourceFormat pricing.Format `json:"sourceFormat"`

	// HasDiscounts is true when any product carries a discount.
	HasDiscounts bool `json:"hasDiscounts"`
}

// Payload is the optimized price data stored per client.
type Payload struct {
	// PriceList preserves upstream ordering. Populated for optimized payloads.
	PriceList []pricing.Product `json:"priceList"`

	// RawPriceList carries unmodified upstream records for full-format payloads.
	RawPriceList []pricing.RawProduct `json:"rawPriceList,omitempty"`

	// PriceIndex maps SKU to price fields for O(1) lookup. Nil means the index
	// is unavailable (full-format payload), which is distinct from an empty
	// map (optimized payload with zero products).
	PriceIndex map[string]pricing.PricePoint `json:"priceIndex,omitempty"`

	// TotalProducts is the number of products in the payload.
	TotalProducts int `json:"totalProducts"`

	// Metadata describes the fetch that produced the payload.
	Metadata Metadata `json:"metadata"`
}

// Entry is a cached payload plus bookkeeping. Payload contents are treated as
// immutable once stored; entries are only ever overwritten wholesale.
type Entry struct {
	// ClientID is the cache key: a client code or an email address.
	ClientID string `json:"clientId"`

	// Payload is the optimized price data.
	Payload Payload `json:"payload"`

	// StoredAt anchors the TTL and breaks eviction ties.
	StoredAt time.Time `json:"storedAt"`

	// SizeBytes is a serialized-size estimate, used only for reporting.
	SizeBytes int `json:"sizeBytes"`
}

// expired reports whether the entry is older than ttl at the given instant.
func (e *Entry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) > ttl
}

// AccessStats tracks per-client cache activity. Stats are keyed like entries
// but live longer: TTL expiry and explicit deletes leave them in place.
type AccessStats struct {
	HitCount     int       `json:"hitCount"`
	SetCount     int       `json:"setCount"`
	LastAccessAt time.Time `json:"lastAccessAt"`
}
