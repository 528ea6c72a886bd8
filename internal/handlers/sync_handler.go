package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fleetsync/server/internal/models"
	"github.com/fleetsync/server/internal/observability"
	"github.com/fleetsync/server/internal/services"
)

// SyncHandler exposes scheduler status and manual sync triggers
type SyncHandler struct {
	schedulers map[string]*services.Scheduler
	alarmSvc   *services.AlarmSyncService
}

// NewSyncHandler creates a new SyncHandler. The schedulers map is keyed
// by syncer name ("device", "alarm", "gps").
func NewSyncHandler(schedulers map[string]*services.Scheduler, alarmSvc *services.AlarmSyncService) *SyncHandler {
	return &SyncHandler{schedulers: schedulers, alarmSvc: alarmSvc}
}

// GetStatus returns the status of every scheduler and its sync service
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	statuses := make(map[string]models.SchedulerStatus, len(h.schedulers))
	for name, sched := range h.schedulers {
		statuses[name] = sched.Status()
	}

	writeJSON(w, http.StatusOK, statuses)
}

// ForceSync triggers an out-of-band sync for the named service. The
// sync runs in the background; the response acknowledges the request.
func (h *SyncHandler) ForceSync(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service")
	sched, ok := h.schedulers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown sync service")
		return
	}

	go func() {
		if !sched.ForceSync() {
			observability.Warnf("Forced %s sync reported failure", name)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"service": name,
	})
}

// RefreshDeviceAlarms re-fetches alarms for one device over an ad-hoc
// lookback. Optional query parameter hours defaults to 1.
func (h *SyncHandler) RefreshDeviceAlarms(w http.ResponseWriter, r *http.Request) {
	terid := chi.URLParam(r, "terid")
	if terid == "" {
		writeError(w, http.StatusBadRequest, "Terminal ID is required")
		return
	}

	hours := 1
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid hours parameter")
			return
		}
		hours = n
	}

	ok := h.alarmSvc.SyncForDevice(terid, hours)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": ok,
		"terid":   terid,
		"hours":   hours,
	})
}
