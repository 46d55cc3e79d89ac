package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/predictpesa/predictpesa-api/internal/application/identity"
)

// UserHandler serves /api/v1/users.
type UserHandler struct {
	svc identity.Service
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc identity.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// RegisterRoutes mounts the user endpoints on r.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Put("/me", h.UpdateMe)
	r.Get("/stats", h.Stats)
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Me(r.Context(), id.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe handles PUT /api/v1/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req identity.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), id.UserID, &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Stats handles GET /api/v1/users/stats.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Stats(r.Context(), id.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
