package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/predictpesa/predictpesa-api/internal/application/staking"
)

// StakeHandler serves /api/v1/stakes.
type StakeHandler struct {
	svc staking.Service
}

// NewStakeHandler creates a new StakeHandler.
func NewStakeHandler(svc staking.Service) *StakeHandler {
	return &StakeHandler{svc: svc}
}

// RegisterRoutes mounts the stake endpoints on r.
func (h *StakeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create", h.Create)
	r.Get("/my-stakes", h.MyStakes)
	r.Get("/{stakeID}", h.Get)
	r.Delete("/{stakeID}", h.Cancel)
}

// Create handles POST /api/v1/stakes/create.
func (h *StakeHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req staking.PlaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	st, err := h.svc.Place(r.Context(), id, &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// MyStakes handles GET /api/v1/stakes/my-stakes.
func (h *StakeHandler) MyStakes(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	skip, limit, err := parsePagination(r, staking.DefaultLimit, staking.MaxLimit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.ListByUser(r.Context(), id, skip, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Get handles GET /api/v1/stakes/{stakeID}.
func (h *StakeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Get(r.Context(), id, chi.URLParam(r, "stakeID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Cancel handles DELETE /api/v1/stakes/{stakeID}.
func (h *StakeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), id, chi.URLParam(r, "stakeID")); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Stake cancelled successfully"})
}
