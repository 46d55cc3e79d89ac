package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/predictpesa/predictpesa-api/internal/application/marketsvc"
)

// Paging of the trending and featured lists.
const (
	highlightDefaultLimit = 10
	highlightMaxLimit     = 50
)

// MarketHandler serves /api/v1/markets and /api/v1/oracle.
type MarketHandler struct {
	svc marketsvc.Service
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(svc marketsvc.Service) *MarketHandler {
	return &MarketHandler{svc: svc}
}

// RegisterRoutes mounts the market endpoints on r.  Static segments are
// registered alongside the {marketID} subtree; chi prefers them.
func (h *MarketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/create", h.Create)
	r.Get("/trending/", h.Trending)
	r.Get("/featured/", h.Featured)

	r.Route("/{marketID}", func(item chi.Router) {
		item.Get("/", h.Get)
		item.Put("/", h.Update)
		item.Delete("/", h.Delete)
		item.Get("/stats", h.Stats)
		item.Post("/resolve", h.Resolve)
	})
}

// RegisterOracleRoutes mounts the oracle endpoints on r.
func (h *MarketHandler) RegisterOracleRoutes(r chi.Router) {
	r.Post("/submit", h.SubmitOracleData)
	r.Get("/market/{marketID}", h.OracleData)
	r.Get("/sources", h.OracleSources)
}

// List handles GET /api/v1/markets/.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r, marketsvc.DefaultLimit, marketsvc.MaxLimit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	featured, err := queryBool(r, "featured_only")
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	trending, err := queryBool(r, "trending_only")
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := h.svc.List(r.Context(), &marketsvc.ListRequest{
		Skip:     skip,
		Limit:    limit,
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
		Featured: featured,
		Trending: trending,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Create handles POST /api/v1/markets/create.
func (h *MarketHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req marketsvc.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	m, err := h.svc.Create(r.Context(), id, &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Get handles GET /api/v1/markets/{marketID}.
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Update handles PUT /api/v1/markets/{marketID}.
func (h *MarketHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req marketsvc.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	m, err := h.svc.Update(r.Context(), id, chi.URLParam(r, "marketID"), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /api/v1/markets/{marketID}.
func (h *MarketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id, chi.URLParam(r, "marketID")); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Market deleted successfully"})
}

// Stats handles GET /api/v1/markets/{marketID}/stats.
func (h *MarketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Resolve handles POST /api/v1/markets/{marketID}/resolve.
func (h *MarketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req marketsvc.ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	m, err := h.svc.Resolve(r.Context(), id, chi.URLParam(r, "marketID"), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Trending handles GET /api/v1/markets/trending/.
func (h *MarketHandler) Trending(w http.ResponseWriter, r *http.Request) {
	_, limit, err := parsePagination(r, highlightDefaultLimit, highlightMaxLimit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	ms, err := h.svc.Trending(r.Context(), limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// Featured handles GET /api/v1/markets/featured/.
func (h *MarketHandler) Featured(w http.ResponseWriter, r *http.Request) {
	_, limit, err := parsePagination(r, highlightDefaultLimit, highlightMaxLimit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	ms, err := h.svc.Featured(r.Context(), limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// SubmitOracleData handles POST /api/v1/oracle/submit.
func (h *MarketHandler) SubmitOracleData(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req marketsvc.OracleSubmission
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	d, err := h.svc.SubmitOracleData(r.Context(), id, &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// OracleData handles GET /api/v1/oracle/market/{marketID}.
func (h *MarketHandler) OracleData(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.OracleData(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// OracleSources handles GET /api/v1/oracle/sources.
func (h *MarketHandler) OracleSources(w http.ResponseWriter, r *http.Request) {
	srcs, err := h.svc.OracleSources(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, srcs)
}
