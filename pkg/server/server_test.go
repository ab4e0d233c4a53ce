package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/arteq-commerce/rodin-gateway/pkg/pricecache"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricelist"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricing"
)

type stubPriceService struct {
	lastRequest  pricelist.Request
	lastClientID string
	lastSKUs     []string

	envelope *pricelist.Envelope
	visible  *pricelist.VisibleResult
	err      error
}

func (s *stubPriceService) FetchPriceList(_ context.Context, req pricelist.Request) (*pricelist.Envelope, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return s.envelope, nil
}

func (s *stubPriceService) ResolveVisible(_ context.Context, clientID string, skus []string) (*pricelist.VisibleResult, error) {
	s.lastClientID = clientID
	s.lastSKUs = skus
	if s.err != nil {
		return nil, s.err
	}
	return s.visible, nil
}

type stubCacheAdmin struct {
	report  pricecache.Report
	deleted bool
}

func (s *stubCacheAdmin) Stats() pricecache.Report { return s.report }
func (s *stubCacheAdmin) Delete(string) bool       { return s.deleted }

func newTestRouter(svc PriceService, cache CacheAdmin) http.Handler {
	h := &handlers{prices: svc, cache: cache, logger: zerolog.Nop()}
	return newRouter(h, zerolog.Nop())
}

func TestGetPrices_OK(t *testing.T) {
	svc := &stubPriceService{
		envelope: &pricelist.Envelope{
			ClientID:      "K1024",
			ClientKind:    pricing.KindCode,
			Success:       true,
			TotalProducts: 3,
		},
	}
	router := newTestRouter(svc, &stubCacheAdmin{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/K1024/prices?format=full&refresh=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.lastRequest.ClientID != "K1024" {
		t.Errorf("ClientID = %q, want K1024", svc.lastRequest.ClientID)
	}
	if svc.lastRequest.Format != pricing.FormatFull {
		t.Errorf("Format = %v, want full", svc.lastRequest.Format)
	}
	if !svc.lastRequest.ForceRefresh {
		t.Error("refresh=true must map to ForceRefresh")
	}

	var env pricelist.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if env.TotalProducts != 3 {
		t.Errorf("TotalProducts = %d, want 3", env.TotalProducts)
	}
}

func TestGetPrices_TimeoutParam(t *testing.T) {
	svc := &stubPriceService{envelope: &pricelist.Envelope{Success: true}}
	router := newTestRouter(svc, &stubCacheAdmin{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/K1/prices?timeout_ms=5000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.lastRequest.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", svc.lastRequest.Timeout)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/clients/K1/prices?timeout_ms=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid timeout_ms status = %d, want 400", rec.Code)
	}
}

func TestGetPrices_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation",
			err:        &pricelist.ValidationError{Field: "clientId", Reason: "must not be blank"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not cached",
			err:        pricelist.ErrNotCached,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "upstream",
			err: &pricelist.UpstreamError{
				ClientID: "K1",
				Phase:    "fallback",
				Elapsed:  2 * time.Second,
				Err:      errors.New("internal rodin detail: 10.0.0.5 refused"),
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubPriceService{err: tt.err}, &stubCacheAdmin{})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/K1/prices", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			// Upstream details never leak to clients.
			if strings.Contains(rec.Body.String(), "10.0.0.5") {
				t.Error("response leaked upstream error details")
			}
		})
	}
}

func TestPostVisiblePrices(t *testing.T) {
	svc := &stubPriceService{
		visible: &pricelist.VisibleResult{
			ClientID:       "K1",
			Found:          []pricelist.VisiblePrice{{SKU: "A", FinalPrice: 80, ListPrice: 100}},
			RequestedCount: 1,
			FoundCount:     1,
			Cached:         true,
		},
	}
	router := newTestRouter(svc, &stubCacheAdmin{})

	body := strings.NewReader(`{"skus": ["A"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/K1/prices/visible", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastClientID != "K1" || len(svc.lastSKUs) != 1 || svc.lastSKUs[0] != "A" {
		t.Errorf("service received %q %v, want K1 [A]", svc.lastClientID, svc.lastSKUs)
	}
}

func TestPostVisiblePrices_InvalidBody(t *testing.T) {
	router := newTestRouter(&stubPriceService{}, &stubCacheAdmin{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/K1/prices/visible", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCacheStats(t *testing.T) {
	cache := &stubCacheAdmin{
		report: pricecache.Report{
			TotalEntries: 2,
			TotalSizeKb:  12.5,
		},
	}
	router := newTestRouter(&stubPriceService{}, cache)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report pricecache.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if report.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", report.TotalEntries)
	}
}

func TestCacheDelete(t *testing.T) {
	tests := []struct {
		name       string
		deleted    bool
		wantStatus int
	}{
		{"existing entry", true, http.StatusOK},
		{"missing entry", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubPriceService{}, &stubCacheAdmin{deleted: tt.deleted})

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/cache/K1", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubPriceService{}, &stubCacheAdmin{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q, want ok status", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubPriceService{}, &stubCacheAdmin{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
