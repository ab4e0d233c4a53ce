package upstream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arteq-commerce/rodin-gateway/internal/testutil"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricing"
)

// staticTokens is a TokenSource stub that tracks invalidations.
type staticTokens struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (s *staticTokens) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *staticTokens) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
	s.token = "refreshed-token"
	return nil
}

func testClient(t *testing.T, mock *testutil.MockRodin, tokens TokenSource) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL: mock.URL(),
		Tokens:  tokens,
		Retry:   fastRetry(3),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestClient_FetchPriceList_ByCode(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()
	mock.SetClientPrices("K1024", testutil.NewPriceListResponse(testutil.ThreeProductList))

	client := testClient(t, mock, &staticTokens{token: "tok"})

	body, err := client.FetchPriceList(context.Background(), pricing.KindCode, "K1024", FetchOptions{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("FetchPriceList failed: %v", err)
	}

	norm := pricing.Normalize(body)
	if len(norm.Products) != 3 {
		t.Errorf("got %d products, want 3", len(norm.Products))
	}
	if mock.LastAuthHeader != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", mock.LastAuthHeader)
	}
}

func TestClient_FetchPriceList_ByEmail(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()
	mock.SetEmailPrices("buyer@example.com", testutil.NewPriceListResponse(`[{"sku":"X","finalPrice":1,"listPrice":1}]`))

	client := testClient(t, mock, &staticTokens{token: "tok"})

	body, err := client.FetchPriceList(context.Background(), pricing.KindEmail, "buyer@example.com", FetchOptions{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("FetchPriceList failed: %v", err)
	}
	if norm := pricing.Normalize(body); len(norm.Products) != 1 {
		t.Errorf("got %d products, want 1", len(norm.Products))
	}
}

func TestClient_FetchPriceList_ScopeOptions(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()
	mock.SetClientPrices("K1", testutil.NewPriceListResponse(`[]`))

	client := testClient(t, mock, &staticTokens{token: "tok"})

	_, err := client.FetchPriceList(context.Background(), pricing.KindCode, "K1", FetchOptions{
		MaxAttempts: 1,
		Page:        1,
		Limit:       50,
	})
	if err != nil {
		t.Fatalf("FetchPriceList failed: %v", err)
	}

	query := mock.GetLastQuery()
	if query.Get("page") != "1" || query.Get("limit") != "50" {
		t.Errorf("query = %v, want page=1 limit=50", query)
	}
}

func TestClient_FetchPriceList_ClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()
	mock.SetClientPrices("missing", testutil.NewNotFoundResponse())

	client := testClient(t, mock, &staticTokens{token: "tok"})

	_, err := client.FetchPriceList(context.Background(), pricing.KindCode, "missing", FetchOptions{MaxAttempts: 3})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if got := mock.GetPriceFetchCount(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (no retry on 4xx)", got)
	}
}

func TestClient_FetchPriceList_ServerErrorRetried(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()
	mock.SetClientPrices("flaky", testutil.NewServerErrorResponse())

	client := testClient(t, mock, &staticTokens{token: "tok"})

	_, err := client.FetchPriceList(context.Background(), pricing.KindCode, "flaky", FetchOptions{MaxAttempts: 3})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("want ErrRetryExhausted, got %v", err)
	}
	if got := mock.GetPriceFetchCount(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestClient_FetchPriceList_TokenRefreshOn401(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()

	tokens := &staticTokens{token: "stale"}
	mock.SetHandler("/api/v1/clients/K1/prices", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"sku":"A","finalPrice":1,"listPrice":1}]`))
	})

	client := testClient(t, mock, tokens)

	body, err := client.FetchPriceList(context.Background(), pricing.KindCode, "K1", FetchOptions{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("FetchPriceList failed: %v", err)
	}
	if tokens.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1", tokens.invalidated)
	}
	if norm := pricing.Normalize(body); len(norm.Products) != 1 {
		t.Errorf("got %d products after token refresh, want 1", len(norm.Products))
	}
}

func TestClient_FetchPriceList_BreakerOpens(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()
	mock.SetClientPrices("down", testutil.NewServerErrorResponse())

	client, err := New(Config{
		BaseURL:                 mock.URL(),
		Tokens:                  &staticTokens{token: "tok"},
		Retry:                   fastRetry(3),
		BreakerFailureThreshold: 2,
		BreakerOpenTimeout:      time.Minute,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Two real failures trip the breaker; the third attempt is rejected
	// without touching the wire.
	_, err = client.FetchPriceList(context.Background(), pricing.KindCode, "down", FetchOptions{MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := mock.GetPriceFetchCount(); got != 2 {
		t.Errorf("upstream calls = %d, want 2 (breaker open blocks the third)", got)
	}

	// Subsequent fetches fail fast while the breaker is open.
	mock.Reset()
	_, err = client.FetchPriceList(context.Background(), pricing.KindCode, "down", FetchOptions{MaxAttempts: 1})
	if err == nil {
		t.Fatal("expected an error while breaker is open")
	}
	if got := mock.GetPriceFetchCount(); got != 0 {
		t.Errorf("upstream calls = %d, want 0 while breaker is open", got)
	}
}

func TestClient_FetchPriceList_Timeout(t *testing.T) {
	mock := testutil.NewMockRodin()
	defer mock.Close()
	mock.SetClientPrices("slow", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[]`,
		Delay:      200 * time.Millisecond,
	})

	client := testClient(t, mock, &staticTokens{token: "tok"})

	_, err := client.FetchPriceList(context.Background(), pricing.KindCode, "slow", FetchOptions{
		MaxAttempts: 1,
		Timeout:     20 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Tokens: &staticTokens{}}, zerolog.Nop()); err == nil {
		t.Error("missing base URL must fail")
	}
	if _, err := New(Config{BaseURL: "http://rodin"}, zerolog.Nop()); err == nil {
		t.Error("missing token source must fail")
	}
}
