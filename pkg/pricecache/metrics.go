package pricecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks successful reads of a live entry
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rodin_price_cache_hits_total",
			Help: "Total number of price cache hits",
		},
	)

	// cacheMisses tracks reads that found no live entry
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rodin_price_cache_misses_total",
			Help: "Total number of price cache misses",
		},
	)

	// cacheExpired tracks entries purged by lazy TTL expiry or by the sweep
	cacheExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rodin_price_cache_expired_total",
			Help: "Total number of price cache entries purged after TTL expiry",
		},
	)

	// cacheEvictions tracks entries removed by the capacity eviction pass
	cacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rodin_price_cache_evictions_total",
			Help: "Total number of price cache entries evicted for capacity",
		},
	)

	// cacheEntries tracks the current number of cached clients
	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rodin_price_cache_entries",
			Help: "Current number of entries in the price cache",
		},
	)

	// cacheSizeBytes tracks the estimated serialized size of all entries
	cacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rodin_price_cache_size_bytes",
			Help: "Estimated serialized size of the price cache in bytes",
		},
	)
)
