package pricelist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/arteq-commerce/rodin-gateway/pkg/pricecache"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricing"
	"github.com/arteq-commerce/rodin-gateway/pkg/upstream"
)

// Fetcher is the upstream collaborator. *upstream.Client satisfies it.
type Fetcher interface {
	FetchPriceList(ctx context.Context, kind pricing.ClientKind, key string, opts upstream.FetchOptions) ([]byte, error)
}

// Config holds the orchestrator tuning knobs.
type Config struct {
	// EmailRetries and CodeRetries are the per-kind attempt budgets for the
	// primary fetch. The asymmetry mirrors upstream behavior differences
	// between the two accessors; both are tunables, not invariants.
	EmailRetries int
	CodeRetries  int

	// FetchTimeout bounds the primary fetch when the request carries none.
	FetchTimeout time.Duration

	// FallbackTimeout and FallbackLimit scope the single reduced fetch
	// attempted after the primary fails.
	FallbackTimeout time.Duration
	FallbackLimit   int

	// MaxVisibleSKUs caps a visible-SKU lookup; excess SKUs are dropped.
	MaxVisibleSKUs int

	// HighProductThreshold and SlowFetchThreshold drive the advisory
	// recommendations block. Advisory only, never control flow.
	HighProductThreshold int
	SlowFetchThreshold   time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		EmailRetries:         2,
		CodeRetries:          3,
		FetchTimeout:         30 * time.Second,
		FallbackTimeout:      10 * time.Second,
		FallbackLimit:        50,
		MaxVisibleSKUs:       100,
		HighProductThreshold: 500,
		SlowFetchThreshold:   3 * time.Second,
	}
}

// Service orchestrates price-list requests against the cache and Rodin.
type Service struct {
	cache   *pricecache.Cache
	fetcher Fetcher
	cfg     Config
	logger  zerolog.Logger
	group   singleflight.Group
}

// New creates an orchestrator.
func New(cache *pricecache.Cache, fetcher Fetcher, cfg Config, logger zerolog.Logger) *Service {
	def := DefaultConfig()
	if cfg.EmailRetries <= 0 {
		cfg.EmailRetries = def.EmailRetries
	}
	if cfg.CodeRetries <= 0 {
		cfg.CodeRetries = def.CodeRetries
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = def.FallbackTimeout
	}
	if cfg.FallbackLimit <= 0 {
		cfg.FallbackLimit = def.FallbackLimit
	}
	if cfg.MaxVisibleSKUs <= 0 {
		cfg.MaxVisibleSKUs = def.MaxVisibleSKUs
	}
	if cfg.HighProductThreshold <= 0 {
		cfg.HighProductThreshold = def.HighProductThreshold
	}
	if cfg.SlowFetchThreshold <= 0 {
		cfg.SlowFetchThreshold = def.SlowFetchThreshold
	}

	return &Service{
		cache:   cache,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With().Str("component", "pricelist").Logger(),
	}
}

// Request describes one price-list request.
type Request struct {
	// ClientID is a client code or an email address.
	ClientID string

	// ForceRefresh bypasses the cache read (the result is still stored).
	ForceRefresh bool

	// Format selects the optimizer output. Empty means optimized.
	Format pricing.Format

	// Timeout bounds the primary upstream fetch. Zero uses the configured
	// default.
	Timeout time.Duration
}

// CacheMeta reports the cache state of a response.
type CacheMeta struct {
	FromCache bool       `json:"fromCache"`
	StoredAt  *time.Time `json:"storedAt,omitempty"`
}

// EnvelopeMetadata carries fetch and cache metadata for a response.
type EnvelopeMetadata struct {
	ObtainedAt      time.Time      `json:"obtainedAt"`
	FetchDurationMs int64          `json:"fetchDurationMs"`
	SourceFormat    pricing.Format `json:"sourceFormat"`
	Optimizations   []string       `json:"appliedOptimizations,omitempty"`
	Cache           CacheMeta      `json:"cache"`
}

// Envelope is the shaped price-list response.
type Envelope struct {
	ClientID        string               `json:"clientId"`
	ClientKind      pricing.ClientKind   `json:"clientKind"`
	Success         bool                 `json:"success"`
	PriceList       []pricing.Product    `json:"priceList"`
	RawPriceList    []pricing.RawProduct `json:"rawPriceList,omitempty"`
	TotalProducts   int                  `json:"totalProducts"`
	HasDiscounts    bool                 `json:"hasDiscounts"`
	Metadata        EnvelopeMetadata     `json:"metadata"`
	Recommendations []string             `json:"recommendations,omitempty"`
}

// FetchPriceList serves a client's price list, from cache when possible.
func (s *Service) FetchPriceList(ctx context.Context, req Request) (*Envelope, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, &ValidationError{Field: "clientId", Reason: "must not be blank"}
	}

	kind := pricing.ClassifyClientID(clientID)
	format := req.Format
	if format == "" {
		format = pricing.FormatOptimized
	}

	if !req.ForceRefresh {
		if entry, ok := s.cache.Get(clientID); ok {
			requestsTotal.WithLabelValues("cache").Inc()
			s.logger.Debug().
				Str("client_id", clientID).
				Time("stored_at", entry.StoredAt).
				Msg("Serving price list from cache")
			return s.envelopeFromEntry(clientID, kind, entry), nil
		}
	}

	// Concurrent misses for the same client and format share one fetch.
	key := clientID + "|" + string(format)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.fetchAndStore(ctx, clientID, kind, format, req.Timeout)
	})
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if shared {
		singleflightShared.Inc()
	}

	return v.(*Envelope), nil
}

// fetchOutcome is the typed result of the two-stage fetch strategy.
type fetchOutcome struct {
	raw     []byte
	phase   string // "fetch" or "fallback"
	elapsed time.Duration
}

// fetchWithFallback runs the primary fetch with the per-kind retry budget,
// then one reduced-scope fallback attempt. Stale cache data is never served
// as a substitute for a failed fetch.
func (s *Service) fetchWithFallback(ctx context.Context, kind pricing.ClientKind, clientID string, timeout time.Duration) (fetchOutcome, error) {
	attempts := s.cfg.CodeRetries
	if kind == pricing.KindEmail {
		attempts = s.cfg.EmailRetries
	}

	start := time.Now()
	raw, primaryErr := s.fetcher.FetchPriceList(ctx, kind, clientID, upstream.FetchOptions{
		Timeout:     timeout,
		MaxAttempts: attempts,
	})
	if primaryErr == nil {
		return fetchOutcome{raw: raw, phase: "fetch", elapsed: time.Since(start)}, nil
	}

	s.logger.Warn().
		Str("client_id", clientID).
		Str("kind", string(kind)).
		Err(primaryErr).
		Msg("Primary fetch failed, attempting reduced-scope fallback")

	raw, fallbackErr := s.fetcher.FetchPriceList(ctx, kind, clientID, upstream.FetchOptions{
		Timeout:     s.cfg.FallbackTimeout,
		MaxAttempts: 1,
		Page:        1,
		Limit:       s.cfg.FallbackLimit,
	})
	if fallbackErr == nil {
		requestsTotal.WithLabelValues("fallback").Inc()
		return fetchOutcome{raw: raw, phase: "fallback", elapsed: time.Since(start)}, nil
	}

	return fetchOutcome{}, &UpstreamError{
		ClientID: clientID,
		Phase:    "fallback",
		Elapsed:  time.Since(start),
		Err:      fmt.Errorf("primary: %v; fallback: %w", primaryErr, fallbackErr),
	}
}

func (s *Service) fetchAndStore(ctx context.Context, clientID string, kind pricing.ClientKind, format pricing.Format, timeout time.Duration) (*Envelope, error) {
	if timeout <= 0 {
		timeout = s.cfg.FetchTimeout
	}

	outcome, err := s.fetchWithFallback(ctx, kind, clientID, timeout)
	if err != nil {
		return nil, err
	}

	norm := pricing.Normalize(outcome.raw)
	result := pricing.Optimize(norm.Products, format)

	meta := pricecache.Metadata{
		ObtainedAt:      time.Now(),
		FetchDurationMs: outcome.elapsed.Milliseconds(),
		SourceFormat:    format,
		HasDiscounts:    result.HasDiscounts,
	}

	// Empty results are valid but never cached, so a transient zero-product
	// response cannot shadow real data for the TTL window.
	if result.TotalProducts > 0 {
		s.cache.Set(clientID, pricecache.Payload{
			PriceList:     result.PriceList,
			RawPriceList:  result.Raw,
			PriceIndex:    result.Index,
			TotalProducts: result.TotalProducts,
			Metadata:      meta,
		})
	}

	requestsTotal.WithLabelValues("upstream").Inc()
	s.logger.Info().
		Str("client_id", clientID).
		Str("kind", string(kind)).
		Str("shape", string(norm.Shape)).
		Str("phase", outcome.phase).
		Int("total_products", result.TotalProducts).
		Int64("fetch_duration_ms", meta.FetchDurationMs).
		Msg("Fetched price list from Rodin")

	return &Envelope{
		ClientID:      clientID,
		ClientKind:    kind,
		Success:       true,
		PriceList:     result.PriceList,
		RawPriceList:  result.Raw,
		TotalProducts: result.TotalProducts,
		HasDiscounts:  result.HasDiscounts,
		Metadata: EnvelopeMetadata{
			ObtainedAt:      meta.ObtainedAt,
			FetchDurationMs: meta.FetchDurationMs,
			SourceFormat:    format,
			Optimizations:   optimizationsFor(format),
			Cache:           CacheMeta{FromCache: false},
		},
		Recommendations: s.recommendations(result.TotalProducts, outcome.elapsed),
	}, nil
}

func (s *Service) envelopeFromEntry(clientID string, kind pricing.ClientKind, entry pricecache.Entry) *Envelope {
	payload := entry.Payload
	storedAt := entry.StoredAt
	return &Envelope{
		ClientID:      clientID,
		ClientKind:    kind,
		Success:       true,
		PriceList:     payload.PriceList,
		RawPriceList:  payload.RawPriceList,
		TotalProducts: payload.TotalProducts,
		HasDiscounts:  payload.Metadata.HasDiscounts,
		Metadata: EnvelopeMetadata{
			ObtainedAt:      payload.Metadata.ObtainedAt,
			FetchDurationMs: payload.Metadata.FetchDurationMs,
			SourceFormat:    payload.Metadata.SourceFormat,
			Optimizations:   optimizationsFor(payload.Metadata.SourceFormat),
			Cache:           CacheMeta{FromCache: true, StoredAt: &storedAt},
		},
		Recommendations: s.recommendations(payload.TotalProducts,
			time.Duration(payload.Metadata.FetchDurationMs)*time.Millisecond),
	}
}

// recommendations derives the advisory block from product count and fetch
// duration. Purely informational; nothing downstream branches on it.
func (s *Service) recommendations(totalProducts int, fetchDuration time.Duration) []string {
	var recs []string
	if totalProducts > s.cfg.HighProductThreshold {
		recs = append(recs, fmt.Sprintf(
			"high product count (%d): consider progressive loading on the storefront", totalProducts))
	}
	if fetchDuration > s.cfg.SlowFetchThreshold {
		recs = append(recs, fmt.Sprintf(
			"slow upstream fetch (%s): consider requesting paginated scopes", fetchDuration.Round(time.Millisecond)))
	}
	return recs
}

func optimizationsFor(format pricing.Format) []string {
	if format == pricing.FormatFull {
		return nil
	}
	return []string{"compact-records", "sku-price-index", "name-truncation"}
}
