package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetsync/server/internal/repository"
)

// DeviceHandler handles device read endpoints
type DeviceHandler struct {
	deviceRepo repository.DeviceRepo
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(deviceRepo repository.DeviceRepo) *DeviceHandler {
	return &DeviceHandler{deviceRepo: deviceRepo}
}

// ListDevices returns all known devices
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.deviceRepo.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, devices)
}

// GetDevice returns a single device by terminal ID
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	terid := chi.URLParam(r, "terid")
	if terid == "" {
		writeError(w, http.StatusBadRequest, "Terminal ID is required")
		return
	}

	device, err := h.deviceRepo.GetByTerid(r.Context(), terid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	writeJSON(w, http.StatusOK, device)
}
