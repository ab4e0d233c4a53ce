package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func newRouter(h *handlers, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/clients/{clientID}", func(r chi.Router) {
			r.Get("/prices", h.GetPrices)
			r.Post("/prices/visible", h.PostVisiblePrices)
		})
		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", h.CacheStats)
			r.Delete("/{clientID}", h.CacheDelete)
		})
	})

	return r
}

// requestLogger emits one structured line per request and feeds the HTTP
// metrics. Health and metrics probes are logged at debug to keep the noise
// down.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)

			next.ServeHTTP(ww, req)

			elapsed := time.Since(start)
			route := chi.RouteContext(req.Context()).RoutePattern()
			if route == "" {
				route = req.URL.Path
			}

			httpRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			evt := logger.Info()
			if req.URL.Path == "/health" || req.URL.Path == "/metrics" {
				evt = logger.Debug()
			}
			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", elapsed).
				Str("remote", req.RemoteAddr).
				Msg("Request handled")
		})
	}
}
