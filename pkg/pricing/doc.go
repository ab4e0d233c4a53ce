// Package pricing contains the pure data transformations of the gateway:
// decoding the heterogeneous payload shapes Rodin returns, optimizing raw
// product records into a compact storefront representation, and building the
// SKU price index used for O(1) lookups.
//
// Everything in this package is free of I/O and shared state. Given the same
// input, every function returns the same output, which keeps the transform
// layer trivially testable and safe to call from any goroutine.
//
// # Payload normalization
//
// Rodin responds with one of three shapes: a bare JSON array of products, an
// envelope object carrying a "priceList" field, or (from older endpoints) a
// string-encoded JSON document. Normalize collapses all of them into a tagged
// NormalizedPayload so the orchestrator never shape-sniffs:
//
//	norm := pricing.Normalize(raw)
//	result := pricing.Optimize(norm.Products, pricing.FormatOptimized)
//
// Unparseable payloads normalize to an empty product sequence. Zero products
// is a valid outcome, not an error.
package pricing
