// Package pricelist orchestrates price-list requests for the storefront:
// cache-check, fetch-on-miss against Rodin, optimization, store, and response
// shaping. It also serves the cache-only visible-SKU lookup.
//
// The orchestrator is the only place upstream failures surface. The cache and
// the optimizer underneath are fail-soft: empty results are data, not errors,
// and an empty upstream result is never cached so a transient zero-product
// blip cannot poison the cache.
//
// Concurrent misses for the same client collapse into a single upstream fetch
// via singleflight; whichever store lands last wins, which is safe because
// entries are only ever overwritten wholesale.
package pricelist
