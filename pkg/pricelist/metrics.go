package pricelist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal tracks orchestrated price-list requests by outcome
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_pricelist_requests_total",
		Help: "Total price-list requests by outcome (cache, upstream, fallback, error)",
	}, []string{"outcome"})

	// singleflightShared tracks fetches that piggybacked on an in-flight call
	singleflightShared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rodin_pricelist_singleflight_shared_total",
		Help: "Total price-list fetches deduplicated onto an in-flight upstream call",
	})

	// visibleLookupsTotal tracks visible-SKU resolver calls by cache state
	visibleLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_pricelist_visible_lookups_total",
		Help: "Total visible-SKU lookups by cache state (cached, uncached)",
	}, []string{"state"})
)
