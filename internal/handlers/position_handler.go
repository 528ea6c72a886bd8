package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetsync/server/internal/repository"
)

// PositionHandler handles GPS position read endpoints
type PositionHandler struct {
	positionRepo repository.PositionRepo
}

// NewPositionHandler creates a new PositionHandler
func NewPositionHandler(positionRepo repository.PositionRepo) *PositionHandler {
	return &PositionHandler{positionRepo: positionRepo}
}

// ListPositions returns the latest known position of every device
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positionRepo.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list positions")
		return
	}

	writeJSON(w, http.StatusOK, positions)
}

// GetPosition returns the latest position of a single device
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	terid := chi.URLParam(r, "terid")
	if terid == "" {
		writeError(w, http.StatusBadRequest, "Terminal ID is required")
		return
	}

	pos, err := h.positionRepo.GetByTerid(r.Context(), terid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if pos == nil {
		writeError(w, http.StatusNotFound, "No position recorded for device")
		return
	}

	writeJSON(w, http.StatusOK, pos)
}
