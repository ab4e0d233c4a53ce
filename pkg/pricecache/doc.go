// Package pricecache implements the per-client price-list cache that sits
// between the gateway and the Rodin price-list API.
//
// The cache is a bounded, TTL-based, hit-aware in-memory store keyed by the
// literal client identifier (code or email, never normalized against each
// other). Each entry holds the optimized price payload plus enough metadata
// to serve cache-state flags in responses.
//
// # Expiry and eviction
//
// Entries expire lazily: a Get past the TTL deletes the entry and reports a
// miss. Capacity is enforced at insert time: when the cache is full, Set first
// evicts the bottom fraction of entries ranked by (hit count ascending, stored
// time ascending), so rarely-read and old entries go first. A periodic sweep
// additionally purges expired entries so memory stays bounded even under a
// read-only workload.
//
// # Access statistics
//
// A stats record per client (hits, sets, last access) lives alongside the
// entry map. Stats deliberately survive TTL expiry and explicit deletes; they
// answer "how popular is this client historically", independent of current
// cache occupancy. Only eviction reaps them, together with the entry.
//
// # Usage
//
//	cache := pricecache.New(pricecache.DefaultConfig(), logger)
//	go cache.Run(ctx)
//
//	cache.Set("K1024", payload)
//	if entry, ok := cache.Get("K1024"); ok {
//		// serve entry.Payload
//	}
//
// All operations are safe for concurrent use; entry and stats maps mutate
// under a single mutex.
//
// # Metrics
//
//   - rodin_price_cache_hits_total
//   - rodin_price_cache_misses_total
//   - rodin_price_cache_expired_total
//   - rodin_price_cache_evictions_total
//   - rodin_price_cache_entries
//   - rodin_price_cache_size_bytes
package pricecache
