package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/arteq-commerce/rodin-gateway/pkg/pricing"
)

// maxErrorBodyBytes bounds how much of an upstream error body is kept for the
// error message. Full bodies never reach clients (see pkg/server sanitization).
const maxErrorBodyBytes = 512

// FetchOptions bounds a single logical fetch.
type FetchOptions struct {
	// Timeout bounds the whole fetch including retries. Zero means the
	// caller's context is the only bound.
	Timeout time.Duration

	// MaxAttempts is the retry budget (total attempts). Zero means 1.
	MaxAttempts int

	// Page and Limit reduce the fetch scope. Zero values request the full
	// price list; the orchestrator's fallback path sets both.
	Page  int
	Limit int
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the Rodin API root.
	BaseURL string

	// Tokens provides bearer tokens.
	Tokens TokenSource

	// HTTPClient is the transport. Defaults to a 30s-timeout client.
	HTTPClient *http.Client

	// Retry tunes backoff between attempts.
	Retry RetryConfig

	// BreakerFailureThreshold is the consecutive-failure count that opens the
	// circuit. Defaults to 5.
	BreakerFailureThreshold uint32

	// BreakerOpenTimeout is how long the circuit stays open. Defaults to 30s.
	BreakerOpenTimeout time.Duration
}

// Client is the Rodin API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	retry      RetryConfig
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger
}

// New creates a Rodin client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}

	clientLogger := logger.With().Str("component", "rodin-client").Logger()

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "rodin-api",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			clientLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// A 4xx is Rodin answering, not Rodin failing. Only server,
			// rate-limit, and network errors count towards opening.
			if err == nil {
				return true
			}
			return classifyError(err) == ErrorClassClient
		},
	})

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		tokens:     cfg.Tokens,
		retry:      cfg.Retry,
		breaker:    breaker,
		logger:     clientLogger,
	}, nil
}

// FetchPriceList retrieves the raw price-list payload for a client, addressed
// by code or email according to kind. Retries per opts.MaxAttempts with
// backoff; a breaker rejection or exhausted budget surfaces as an error for
// the orchestrator's fallback path.
func (c *Client) FetchPriceList(ctx context.Context, kind pricing.ClientKind, key string, opts FetchOptions) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	endpoint := c.priceListURL(kind, key, opts)
	start := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	retry := c.retry
	retry.MaxAttempts = opts.MaxAttempts
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}

	var body []byte
	err := retryWithBackoff(ctx, c.logger, retry, func() error {
		result, execErr := c.breaker.Execute(func() ([]byte, error) {
			return c.doFetch(ctx, kind, endpoint)
		})
		if execErr != nil {
			if errors.Is(execErr, gobreaker.ErrOpenState) || errors.Is(execErr, gobreaker.ErrTooManyRequests) {
				upstreamBreakerOpenTotal.Inc()
				c.logger.Warn().
					Str("kind", string(kind)).
					Msg("Request rejected by open circuit breaker")
			}
			return execErr
		}
		body = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// doFetch performs one HTTP attempt, refreshing the token once on a 401.
func (c *Client) doFetch(ctx context.Context, kind pricing.ClientKind, endpoint string) ([]byte, error) {
	body, err := c.doAuthorizedGet(ctx, kind, endpoint)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// Token went stale under us. Drop it and try once with a fresh one.
		if invErr := c.tokens.Invalidate(ctx); invErr != nil {
			c.logger.Warn().Err(invErr).Msg("Failed to invalidate Rodin token")
		}
		body, err = c.doAuthorizedGet(ctx, kind, endpoint)
	}

	return body, err
}

func (c *Client) doAuthorizedGet(ctx context.Context, kind pricing.ClientKind, endpoint string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues(string(kind), "network_error").Inc()
		return nil, fmt.Errorf("rodin request: %w", err)
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(string(kind), strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(string(class)).Inc()

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Warn().
			Str("kind", string(kind)).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Rodin request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    string(snippet),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// priceListURL builds the accessor URL for the client kind.
func (c *Client) priceListURL(kind pricing.ClientKind, key string, opts FetchOptions) string {
	var path string
	if kind == pricing.KindEmail {
		path = "/api/v1/clients/by-email/" + url.PathEscape(key) + "/prices"
	} else {
		path = "/api/v1/clients/" + url.PathEscape(key) + "/prices"
	}

	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if len(query) > 0 {
		return c.baseURL + path + "?" + query.Encode()
	}
	return c.baseURL + path
}
