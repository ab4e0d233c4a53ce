package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// tokenRedisKey is where the bearer token is shared across gateway replicas.
const tokenRedisKey = "rodin:auth:token"

// tokenExpiryMargin is subtracted from the upstream-reported lifetime so a
// token is refreshed before Rodin starts rejecting it.
const tokenExpiryMargin = 60 * time.Second

// TokenSource provides bearer tokens for Rodin API calls.
type TokenSource interface {
	// Token returns a valid bearer token, acquiring one if needed.
	Token(ctx context.Context) (string, error)

	// Invalidate discards the current token, forcing re-acquisition.
	// Called after Rodin rejects a token with 401.
	Invalidate(ctx context.Context) error
}

// TokenConfig configures the Redis-backed token manager.
type TokenConfig struct {
	// BaseURL is the Rodin API root, e.g. "https://rodin.example.com".
	BaseURL string

	// Username and Password are the gateway's Rodin credentials.
	Username string
	Password string

	// LoginTimeout bounds the login request. Defaults to 15s.
	LoginTimeout time.Duration
}

// TokenManager acquires Rodin bearer tokens and shares them across replicas
// through Redis, TTL'd to the token lifetime minus a safety margin.
type TokenManager struct {
	redis      *redis.Client
	httpClient *http.Client
	cfg        TokenConfig
	logger     zerolog.Logger

	// mu serializes logins within one process so concurrent callers do not
	// stampede the auth endpoint.
	mu sync.Mutex
}

// NewTokenManager creates a token manager.
func NewTokenManager(redisClient *redis.Client, cfg TokenConfig, logger zerolog.Logger) (*TokenManager, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("rodin credentials are required")
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 15 * time.Second
	}

	return &TokenManager{
		redis:      redisClient,
		httpClient: &http.Client{Timeout: cfg.LoginTimeout},
		cfg:        cfg,
		logger:     logger.With().Str("component", "rodin-token").Logger(),
	}, nil
}

// Token returns the shared token, logging in when Redis has none.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	token, err := m.redis.Get(ctx, tokenRedisKey).Result()
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have logged in while we waited on the lock.
	token, err = m.redis.Get(ctx, tokenRedisKey).Result()
	if err == nil && token != "" {
		return token, nil
	}

	return m.login(ctx)
}

// Invalidate drops the shared token.
func (m *TokenManager) Invalidate(ctx context.Context) error {
	if err := m.redis.Del(ctx, tokenRedisKey).Err(); err != nil {
		return fmt.Errorf("redis del token: %w", err)
	}
	m.logger.Debug().Msg("Invalidated Rodin token")
	return nil
}

// loginResponse matches Rodin's auth endpoint.
type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

func (m *TokenManager) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": m.cfg.Username,
		"password": m.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		tokenRefreshesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("rodin login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tokenRefreshesTotal.WithLabelValues("error").Inc()
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    "login failed",
		}
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		tokenRefreshesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if login.Token == "" {
		tokenRefreshesTotal.WithLabelValues("error").Inc()
		return "", ErrNoToken
	}

	ttl := time.Duration(login.ExpiresIn)*time.Second - tokenExpiryMargin
	if ttl <= 0 {
		ttl = tokenExpiryMargin
	}
	if err := m.redis.Set(ctx, tokenRedisKey, login.Token, ttl).Err(); err != nil {
		// The token is still usable for this request; sharing it failed.
		m.logger.Warn().Err(err).Msg("Failed to store Rodin token in redis")
	}

	tokenRefreshesTotal.WithLabelValues("success").Inc()
	m.logger.Info().Dur("ttl", ttl).Msg("Acquired Rodin token")

	return login.Token, nil
}
