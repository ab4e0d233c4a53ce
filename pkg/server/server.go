// Package server exposes the gateway's HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/arteq-commerce/rodin-gateway/pkg/pricecache"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricelist"
)

// PriceService is the orchestrator surface the handlers call.
// *pricelist.Service satisfies it.
type PriceService interface {
	FetchPriceList(ctx context.Context, req pricelist.Request) (*pricelist.Envelope, error)
	ResolveVisible(ctx context.Context, clientID string, skus []string) (*pricelist.VisibleResult, error)
}

// CacheAdmin is the cache administration surface. *pricecache.Cache
// satisfies it.
type CacheAdmin interface {
	Stats() pricecache.Report
	Delete(clientID string) bool
}

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns production defaults. WriteTimeout leaves headroom
// over the orchestrator's primary fetch timeout so the gateway, not the
// socket, decides when a slow fetch fails.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Server is the gateway HTTP server.
type Server struct {
	cfg    Config
	http   *http.Server
	logger zerolog.Logger
}

// New builds the server with its router.
func New(cfg Config, prices PriceService, cache CacheAdmin, logger zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	log := logger.With().Str("component", "server").Logger()
	h := &handlers{prices: prices, cache: cache, logger: log}

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      newRouter(h, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: log,
	}
}

// Handler exposes the router, mainly for tests that drive the full stack
// through httptest.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server stops. A closed-server error after
// Shutdown is reported as nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
