package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/fleetsync/server/internal/models"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck returns the server health status including database
// connectivity. A failed ping degrades the status without failing the
// request.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.HealthResponse{
		Status:    "healthy",
		Database:  "connected",
		Timestamp: time.Now().UTC(),
	}

	if err := h.db.PingContext(r.Context()); err != nil {
		response.Status = "degraded"
		response.Database = "unreachable"
	}

	writeJSON(w, http.StatusOK, response)
}
