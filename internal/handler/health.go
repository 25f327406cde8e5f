package handler

import (
	"net/http"

	"github.com/tommylisiak/portfolio-chat/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	history *service.HistoryService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(history *service.HistoryService) *HealthHandler {
	return &HealthHandler{
		history: history,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "store not reachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
