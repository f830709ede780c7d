package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"eventchat-backend/internal/services"
	"eventchat-backend/internal/store"
	"eventchat-backend/pkg/httputil"
)

// handleServiceError maps service-layer errors onto HTTP statuses so every
// handler reports failures the same way.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConversationClosed):
		httputil.RespondError(w, http.StatusConflict, "Conversation is closed")
	case errors.Is(err, services.ErrInvalidTransition):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		httputil.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parsePagination reads limit/offset query parameters, leaving zero values
// for the service defaults when absent or malformed.
func parsePagination(r *http.Request) (limit, offset int) {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	return limit, offset
}
