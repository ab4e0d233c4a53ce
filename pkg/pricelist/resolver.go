package pricelist

import (
	"context"
	"strings"
)

// VisiblePrice is one resolved SKU with its price fields.
type VisiblePrice struct {
	SKU        string  `json:"sku"`
	FinalPrice float64 `json:"finalPrice"`
	ListPrice  float64 `json:"listPrice"`
}

// MissingSKU is a requested SKU that could not be resolved, with a hint for
// the caller.
type MissingSKU struct {
	SKU  string `json:"sku"`
	Hint string `json:"hint"`
}

// VisibleResult is the outcome of a visible-SKU lookup.
type VisibleResult struct {
	ClientID       string         `json:"clientId"`
	Found          []VisiblePrice `json:"found"`
	Missing        []MissingSKU   `json:"missing,omitempty"`
	RequestedCount int            `json:"requestedCount"`
	FoundCount     int            `json:"foundCount"`
	Cached         bool           `json:"cached"`
}

const (
	hintNotCached        = "price list not cached; fetch the client's full price list first"
	hintIndexUnavailable = "price index unavailable for full-format cache entry; refresh with format=optimized"
	hintUnknownSKU       = "sku not present in the client's price list"
)

// ResolveVisible serves a subset of SKUs from the cached price index. The
// lookup never triggers an upstream fetch, so a cold cache yields every SKU
// as missing with a populate-first hint. Input is trim-deduplicated and
// capped; excess SKUs are silently dropped.
func (s *Service) ResolveVisible(_ context.Context, clientID string, skus []string) (*VisibleResult, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, &ValidationError{Field: "clientId", Reason: "must not be blank"}
	}

	requested := dedupeSKUs(skus, s.cfg.MaxVisibleSKUs)
	if len(requested) == 0 {
		return nil, &ValidationError{Field: "skus", Reason: "must contain at least one non-blank sku"}
	}

	result := &VisibleResult{
		ClientID:       clientID,
		Found:          []VisiblePrice{},
		RequestedCount: len(requested),
	}

	entry, ok := s.cache.Get(clientID)
	if !ok {
		visibleLookupsTotal.WithLabelValues("uncached").Inc()
		s.logger.Debug().
			Str("client_id", clientID).
			Int("requested", len(requested)).
			Msg("Visible-SKU lookup against cold cache")
		for _, sku := range requested {
			result.Missing = append(result.Missing, MissingSKU{SKU: sku, Hint: hintNotCached})
		}
		return result, nil
	}

	visibleLookupsTotal.WithLabelValues("cached").Inc()
	result.Cached = true

	index := entry.Payload.PriceIndex
	if index == nil {
		// Full-format entries carry no index; distinct from "no products".
		for _, sku := range requested {
			result.Missing = append(result.Missing, MissingSKU{SKU: sku, Hint: hintIndexUnavailable})
		}
		return result, nil
	}

	for _, sku := range requested {
		point, found := index[sku]
		if !found {
			result.Missing = append(result.Missing, MissingSKU{SKU: sku, Hint: hintUnknownSKU})
			continue
		}
		result.Found = append(result.Found, VisiblePrice{
			SKU:        sku,
			FinalPrice: point.FinalPrice,
			ListPrice:  point.ListPrice,
		})
	}
	result.FoundCount = len(result.Found)

	return result, nil
}

// dedupeSKUs trims, drops blanks and duplicates, and caps the list while
// preserving request order.
func dedupeSKUs(skus []string, limit int) []string {
	seen := make(map[string]struct{}, len(skus))
	out := make([]string, 0, len(skus))
	for _, sku := range skus {
		sku = strings.TrimSpace(sku)
		if sku == "" {
			continue
		}
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		out = append(out, sku)
		if len(out) >= limit {
			break
		}
	}
	return out
}
