// Package testutil provides testing utilities for the Rodin gateway.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock Rodin endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockRodin is a configurable mock Rodin API server for testing.
type MockRodin struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount    int
	PriceFetchCount int
	LoginCount      int
	LastQuery       url.Values
	LastAuthHeader  string
}

// NewMockRodin creates a mock Rodin server with a working auth endpoint.
func NewMockRodin() *MockRodin {
	mock := &MockRodin{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		mock.LastAuthHeader = r.Header.Get("Authorization")
		if r.URL.Path == "/api/v1/auth/login" {
			mock.LoginCount++
		} else {
			mock.PriceFetchCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockRodin) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRodin) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockRodin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PriceFetchCount = 0
	m.LoginCount = 0
	m.LastQuery = nil
	m.LastAuthHeader = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockRodin) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockRodin) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetClientPrices configures the price-list endpoint for a client code.
func (m *MockRodin) SetClientPrices(code string, resp MockResponse) {
	m.SetResponse(fmt.Sprintf("/api/v1/clients/%s/prices", code), resp)
}

// SetEmailPrices configures the price-list endpoint for an email identifier.
func (m *MockRodin) SetEmailPrices(email string, resp MockResponse) {
	m.SetResponse("/api/v1/clients/by-email/"+url.PathEscape(email)+"/prices", resp)
}

// GetPriceFetchCount returns the number of price-list fetches received.
func (m *MockRodin) GetPriceFetchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PriceFetchCount
}

// GetLoginCount returns the number of login requests received.
func (m *MockRodin) GetLoginCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LoginCount
}

// GetLastQuery returns the query parameters of the most recent request.
func (m *MockRodin) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// defaultHandler serves the auth endpoint and an empty price list elsewhere.
func (m *MockRodin) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.URL.Path == "/api/v1/auth/login" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"token": "mock-token-123", "expiresIn": 3600}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`[]`))
}

// NewPriceListResponse creates a 200 response with a bare product array.
func NewPriceListResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
	}
}

// NewNotFoundResponse creates a 404 response for an unknown client.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "client not found"}`,
	}
}

// ThreeProductList is the canonical test price list: A discounted, B at list
// price, C discounted.
const ThreeProductList = `[
	{"sku": "A", "name": "Alpha widget", "finalPrice": 80, "listPrice": 100},
	{"sku": "B", "name": "Beta widget", "finalPrice": 50, "listPrice": 50},
	{"sku": "C", "name": "Gamma widget", "finalPrice": 5, "listPrice": 10}
]`
