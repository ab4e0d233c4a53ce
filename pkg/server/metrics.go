package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal tracks gateway requests by route pattern and status
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rodin_http_requests_total",
		Help: "Total gateway HTTP requests by route and status code",
	}, []string{"route", "status"})

	// httpRequestDuration tracks gateway request latency by route pattern
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rodin_http_request_duration_seconds",
		Help:    "Gateway HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)
