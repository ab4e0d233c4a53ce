// Package upstream implements the HTTP client for the Rodin B2B API: bearer
// token acquisition, price-list fetches by client code or email, retry with
// error classification and exponential backoff, and a circuit breaker that
// sheds load when Rodin is unhealthy.
//
// The client returns raw response bodies. Decoding and shaping live in
// pkg/pricing and pkg/pricelist; this package only moves bytes reliably.
package upstream
