package handlers

import (
	"encoding/json"
	"net/http"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/services"
	"eventchat-backend/pkg/httputil"
)

// AuthHandlers handles agent authentication requests.
type AuthHandlers struct {
	svc *services.AuthService
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(svc *services.AuthService) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

// HandleLogin handles POST /api/auth/login.
func (h *AuthHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
