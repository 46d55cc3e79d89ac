package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/predictpesa/predictpesa-api/internal/application/identity"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/interfaces/http/middleware"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// AuthHandler serves /api/v1/auth.
type AuthHandler struct {
	svc identity.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc identity.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// TokenRequest carries a one-time verification or reset token.
type TokenRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password,omitempty"`
}

// EmailRequest is the body of forgot-password.
type EmailRequest struct {
	Email string `json:"email"`
}

// RegisterRoutes mounts the auth endpoints on r.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/refresh", h.Refresh)
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req identity.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	u, err := h.svc.Register(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req identity.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	resp, err := h.svc.Login(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout.  It always reports success once
// the caller is authenticated.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	h.svc.Logout(r.Context(), id, middleware.TokenFromContext(r.Context()))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Refresh(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyEmail handles POST /api/v1/auth/verify-email.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeAppError(w, r, errors.Validation("Email verification failed"))
		return
	}
	logging.FromContext(r.Context()).Info("Email verification attempt")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Email verified successfully"})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password.  The answer is the
// same whether or not the address is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeAppError(w, r, errors.Validation("email is required"))
		return
	}
	logging.FromContext(r.Context()).Info("Password reset request")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset email sent"})
}

// ResetPassword handles POST /api/v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeAppError(w, r, errors.Validation("Password reset failed"))
		return
	}
	logging.FromContext(r.Context()).Info("Password reset attempt")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}
