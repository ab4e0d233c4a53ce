// Package metrics provides the central Prometheus registry reference for the
// gateway. Metrics themselves are defined next to the code they observe
// (pricecache, pricelist, upstream, server) to avoid circular dependencies;
// this package documents them in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics self-register via promauto in their owning packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Price Cache Metrics (pkg/pricecache):
//   - rodin_price_cache_hits_total (Counter): Live-entry cache hits
//   - rodin_price_cache_misses_total (Counter): Cache misses
//   - rodin_price_cache_expired_total (Counter): Entries dropped on read past TTL
//   - rodin_price_cache_evictions_total (Counter): Entries evicted by the capacity policy
//   - rodin_price_cache_entries (Gauge): Current live entry count
//   - rodin_price_cache_size_bytes (Gauge): Approximate cached payload bytes
//
// Orchestrator Metrics (pkg/pricelist):
//   - rodin_pricelist_requests_total{outcome} (Counter): Requests by outcome (cache, upstream, fallback, error)
//   - rodin_pricelist_singleflight_shared_total (Counter): Fetches deduplicated onto an in-flight call
//   - rodin_pricelist_visible_lookups_total{state} (Counter): Visible-SKU lookups by cache state
//
// Upstream Metrics (pkg/upstream):
//   - rodin_upstream_requests_total{status} (Counter): Rodin requests by HTTP status
//   - rodin_upstream_request_duration_seconds (Histogram): Rodin request duration
//   - rodin_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - rodin_upstream_retries_total{class} (Counter): Retry attempts by error class
//   - rodin_upstream_token_refreshes_total (Counter): Auth token logins against Rodin
//
// HTTP Metrics (pkg/server):
//   - rodin_http_requests_total{route, status} (Counter): Gateway requests by route and status
//   - rodin_http_request_duration_seconds{route} (Histogram): Gateway request duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(rodin_price_cache_hits_total[5m])) /
//   (sum(rate(rodin_price_cache_hits_total[5m])) + sum(rate(rodin_price_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(rodin_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(rodin_upstream_request_duration_seconds_bucket[5m]))
//
//   # Fallback Usage
//   rate(rodin_pricelist_requests_total{outcome="fallback"}[5m])
