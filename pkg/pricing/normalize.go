package pricing

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Shape tags the payload variant Rodin responded with.
type Shape string

const (
	// ShapeSequence is a bare JSON array of products.
	ShapeSequence Shape = "sequence"

	// ShapeEnvelope is an object carrying the products in a priceList field.
	ShapeEnvelope Shape = "envelope"

	// ShapeUnparseable is anything else. It normalizes to zero products.
	ShapeUnparseable Shape = "unparseable"
)

// NormalizedPayload is the uniform result of payload normalization.
type NormalizedPayload struct {
	Shape    Shape
	Products []RawProduct
}

// priceListEnvelope matches Rodin's enveloped response shape.
type priceListEnvelope struct {
	PriceList json.RawMessage `json:"priceList"`
}

// Normalize collapses the upstream response shapes into one tagged payload.
// A bare array and an envelope both yield their product sequence; a
// string-encoded JSON document is unwrapped once and re-normalized; anything
// else yields ShapeUnparseable with an empty sequence. Normalize never fails:
// a malformed body is a data condition, not an error.
func Normalize(raw []byte) NormalizedPayload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return NormalizedPayload{Shape: ShapeUnparseable}
	}

	switch trimmed[0] {
	case '[':
		var products []RawProduct
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return NormalizedPayload{Shape: ShapeUnparseable}
		}
		return NormalizedPayload{Shape: ShapeSequence, Products: products}

	case '{':
		var env priceListEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil || len(env.PriceList) == 0 {
			return NormalizedPayload{Shape: ShapeUnparseable}
		}
		var products []RawProduct
		if err := json.Unmarshal(env.PriceList, &products); err != nil {
			return NormalizedPayload{Shape: ShapeUnparseable}
		}
		return NormalizedPayload{Shape: ShapeEnvelope, Products: products}

	case '"':
		// Older Rodin endpoints double-encode the document as a JSON string.
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return NormalizedPayload{Shape: ShapeUnparseable}
		}
		nested := Normalize([]byte(inner))
		if nested.Shape == ShapeUnparseable {
			return NormalizedPayload{Shape: ShapeUnparseable}
		}
		return nested

	default:
		return NormalizedPayload{Shape: ShapeUnparseable}
	}
}
