package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for Rodin API operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_upstream_requests_total",
		Help: "Total Rodin API requests by client kind and status",
	}, []string{"kind", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rodin_upstream_request_duration_seconds",
		Help:    "Rodin API request duration in seconds by client kind",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_upstream_errors_total",
		Help: "Total Rodin API errors by class",
	}, []string{"class"})

	upstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_upstream_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	upstreamRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_upstream_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	upstreamBreakerOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rodin_upstream_breaker_open_total",
		Help: "Total number of requests rejected by an open circuit breaker",
	})

	tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_upstream_token_refreshes_total",
		Help: "Total number of Rodin auth token refreshes by outcome",
	}, []string{"outcome"})
)
