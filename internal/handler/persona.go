package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/service"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

// PersonaHandler exposes the non-retrieval persona completion endpoint.
type PersonaHandler struct {
	persona *service.PersonaService
	logger  *logger.Logger
}

// NewPersonaHandler creates a new persona handler.
func NewPersonaHandler(persona *service.PersonaService, log *logger.Logger) *PersonaHandler {
	return &PersonaHandler{
		persona: persona,
		logger:  log,
	}
}

// Answer handles POST /api/v1/chat/persona
func (h *PersonaHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req model.PersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.persona.Answer(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}
		h.logger.Error("persona completion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unknown error occurred")
		return
	}

	writeJSON(w, http.StatusOK, model.PersonaResponse{Response: answer})
}
