package pricelist

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotCached signals that a client has no live cache entry. It is a logical
// condition, distinct from the upstream not knowing the client; the router
// must be able to tell the two apart.
var ErrNotCached = errors.New("client price list not cached")

// ValidationError is a rejected request: missing or blank client identifier,
// malformed SKU list. Surfaced directly to the caller, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError is a Rodin fetch that failed after exhausting retries and the
// fallback attempt. It carries enough context for observability; the router is
// responsible for sanitizing what reaches clients.
type UpstreamError struct {
	ClientID string
	Phase    string // "fetch" or "fallback"
	Elapsed  time.Duration
	Err      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream price-list fetch failed for %q (phase %s, elapsed %s): %v",
		e.ClientID, e.Phase, e.Elapsed.Round(time.Millisecond), e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}
