package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tommylisiak/portfolio-chat/internal/middleware"
	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/service"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

// HistoryHandler exposes the visitor-keyed durable history endpoints.
type HistoryHandler struct {
	history *service.HistoryService
	logger  *logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(history *service.HistoryService, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  log,
	}
}

// Get handles GET /api/v1/history
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	visitorID := middleware.VisitorID(r)
	if visitorID == "" {
		writeError(w, http.StatusBadRequest, "missing visitor ID")
		return
	}

	conv, err := h.history.Load(r.Context(), visitorID)
	if err != nil {
		h.logger.Error("failed to load history", "error", err, "visitor_id", visitorID)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, model.HistoryResponse{Conversation: conv})
}

// Append handles POST /api/v1/history/messages
func (h *HistoryHandler) Append(w http.ResponseWriter, r *http.Request) {
	visitorID := middleware.VisitorID(r)
	if visitorID == "" {
		writeError(w, http.StatusBadRequest, "missing visitor ID")
		return
	}

	var req model.AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAssistant {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content cannot be empty")
		return
	}

	msg, err := h.history.Append(r.Context(), visitorID, req.Role, req.Content)
	if err != nil {
		h.logger.Error("failed to append message", "error", err, "visitor_id", visitorID)
		writeError(w, http.StatusInternalServerError, "failed to append message")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Delete handles DELETE /api/v1/history
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	visitorID := middleware.VisitorID(r)
	if visitorID == "" {
		writeError(w, http.StatusBadRequest, "missing visitor ID")
		return
	}

	if err := h.history.Clear(r.Context(), visitorID); err != nil {
		h.logger.Error("failed to clear history", "error", err, "visitor_id", visitorID)
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
