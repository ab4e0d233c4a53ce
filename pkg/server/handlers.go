package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/arteq-commerce/rodin-gateway/pkg/pricelist"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricing"
)

// maxVisibleBodyBytes bounds the visible-SKU request body.
const maxVisibleBodyBytes = 64 << 10

type handlers struct {
	prices PriceService
	cache  CacheAdmin
	logger zerolog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports liveness.
func (h *handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetPrices serves a client's price list.
//
//	GET /api/v1/clients/{clientID}/prices?format=optimized&refresh=false&timeout_ms=5000
func (h *handlers) GetPrices(w http.ResponseWriter, req *http.Request) {
	clientID := chi.URLParam(req, "clientID")
	query := req.URL.Query()

	var timeout time.Duration
	if raw := query.Get("timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			writeError(w, http.StatusBadRequest, "timeout_ms must be a positive integer")
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	env, err := h.prices.FetchPriceList(req.Context(), pricelist.Request{
		ClientID:     clientID,
		Format:       pricing.ParseFormat(query.Get("format")),
		ForceRefresh: query.Get("refresh") == "true",
		Timeout:      timeout,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, env)
}

type visibleRequest struct {
	SKUs []string `json:"skus"`
}

// PostVisiblePrices resolves a subset of SKUs from the cached price index.
//
//	POST /api/v1/clients/{clientID}/prices/visible
//	{"skus": ["A-100", "B-200"]}
func (h *handlers) PostVisiblePrices(w http.ResponseWriter, req *http.Request) {
	clientID := chi.URLParam(req, "clientID")

	body, err := io.ReadAll(io.LimitReader(req.Body, maxVisibleBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var vr visibleRequest
	if err := json.Unmarshal(body, &vr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.prices.ResolveVisible(req.Context(), clientID, vr.SKUs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CacheStats reports cache occupancy and the most-read entries.
//
//	GET /api/v1/cache/stats
func (h *handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

// CacheDelete drops a client's cache entry.
//
//	DELETE /api/v1/cache/{clientID}
func (h *handlers) CacheDelete(w http.ResponseWriter, req *http.Request) {
	clientID := chi.URLParam(req, "clientID")

	if !h.cache.Delete(clientID) {
		writeError(w, http.StatusNotFound, "client price list not cached")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"clientId": clientID,
		"deleted":  true,
	})
}

// writeServiceError maps orchestrator errors to HTTP statuses. Upstream
// failures are logged in full but reach the client sanitized.
func (h *handlers) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *pricelist.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}

	if errors.Is(err, pricelist.ErrNotCached) {
		writeError(w, http.StatusNotFound, "client price list not cached")
		return
	}

	var upErr *pricelist.UpstreamError
	if errors.As(err, &upErr) {
		h.logger.Error().
			Str("client_id", upErr.ClientID).
			Str("phase", upErr.Phase).
			Dur("elapsed", upErr.Elapsed).
			Err(upErr.Err).
			Msg("Upstream price-list fetch failed")
		writeError(w, http.StatusBadGateway, "upstream price service unavailable")
		return
	}

	h.logger.Error().Err(err).Msg("Unhandled service error")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already on the wire; encode errors are unrecoverable.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
