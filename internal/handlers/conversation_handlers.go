package handlers

import (
	"encoding/json"
	"net/http"

	"eventchat-backend/internal/auth"
	"eventchat-backend/internal/models"
	"eventchat-backend/internal/services"
	"eventchat-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ConversationHandlers handles HTTP requests related to conversations and
// their messages.
type ConversationHandlers struct {
	svc *services.ConversationService
}

// NewConversationHandlers creates a new ConversationHandlers instance.
func NewConversationHandlers(svc *services.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{svc: svc}
}

func conversationIDFromURL(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	return id, err == nil
}

// HandleCreateConversation handles POST /api/conversations.
func (h *ConversationHandlers) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	conv, err := h.svc.CreateConversation(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// HandleGetConversation handles GET /api/conversations/{conversationID}.
// Reconnecting clients use it to resume from persisted truth.
func (h *ConversationHandlers) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationIDFromURL(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	conv, err := h.svc.GetConversation(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// HandleUpdateConversation handles PATCH /api/conversations/{conversationID}
// with a partial intake field map.
func (h *ConversationHandlers) HandleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationIDFromURL(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	var req models.UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	conv, err := h.svc.UpdateConversationFields(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// HandleAppendMessage handles POST /api/conversations/{conversationID}/messages.
func (h *ConversationHandlers) HandleAppendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationIDFromURL(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	msg, err := h.svc.AppendMessage(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, msg)
}

// HandleListMessages handles GET /api/conversations/{conversationID}/messages.
func (h *ConversationHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationIDFromURL(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	limit, offset := parsePagination(r)
	msgs, err := h.svc.ListMessages(r.Context(), id, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgs)
}

// HandleRequestLiveAgent handles POST /api/conversations/{conversationID}/request-live-agent.
func (h *ConversationHandlers) HandleRequestLiveAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationIDFromURL(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	conv, err := h.svc.RequestLiveAgent(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// --- Admin console handlers (JWT required) ---

// HandleListConversations handles GET /api/admin/conversations.
func (h *ConversationHandlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	var status *models.ConversationStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.ConversationStatus(s)
		switch st {
		case models.StatusBot, models.StatusAwaitingAgent, models.StatusLive, models.StatusClosed:
			status = &st
		default:
			httputil.RespondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
	}
	limit, offset := parsePagination(r)
	convs, err := h.svc.ListConversations(r.Context(), status, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, convs)
}

// HandleClaimConversation handles POST /api/admin/conversations/{conversationID}/claim.
func (h *ConversationHandlers) HandleClaimConversation(w http.ResponseWriter, r *http.Request) {
	agentID, ok := auth.GetAgentIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	agentName, _ := auth.GetAgentNameFromContext(r.Context())

	id, okID := conversationIDFromURL(r)
	if !okID {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	conv, err := h.svc.ClaimConversation(r.Context(), id, agentID, agentName)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// HandleCloseConversation handles POST /api/admin/conversations/{conversationID}/close.
func (h *ConversationHandlers) HandleCloseConversation(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.GetAgentIDFromContext(r.Context()); !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, ok := conversationIDFromURL(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	conv, err := h.svc.CloseConversation(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}
