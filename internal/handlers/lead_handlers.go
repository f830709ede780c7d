package handlers

import (
	"encoding/json"
	"net/http"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/services"
	"eventchat-backend/pkg/httputil"
)

// LeadHandlers handles HTTP requests for sales leads.
type LeadHandlers struct {
	svc *services.LeadService
}

// NewLeadHandlers creates a new LeadHandlers instance.
func NewLeadHandlers(svc *services.LeadService) *LeadHandlers {
	return &LeadHandlers{svc: svc}
}

// HandleCreateLead handles POST /api/leads.
func (h *LeadHandlers) HandleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	lead, err := h.svc.CreateLead(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, lead)
}
