package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetsync/server/internal/models"
	"github.com/fleetsync/server/internal/repository"
)

const queryTimeLayout = "2006-01-02 15:04:05"

// AlarmHandler handles alarm read endpoints
type AlarmHandler struct {
	alarmRepo  repository.AlarmRepo
	deviceRepo repository.DeviceRepo
}

// NewAlarmHandler creates a new AlarmHandler
func NewAlarmHandler(alarmRepo repository.AlarmRepo, deviceRepo repository.DeviceRepo) *AlarmHandler {
	return &AlarmHandler{alarmRepo: alarmRepo, deviceRepo: deviceRepo}
}

// ListAlarms returns recent alarms, newest first. Optional query
// parameters: limit, terid, hours (trailing window), types
// (comma-separated codes).
func (h *AlarmHandler) ListAlarms(w http.ResponseWriter, r *http.Request) {
	filter := repository.AlarmFilter{
		Terid: r.URL.Query().Get("terid"),
		Limit: parseLimit(r.URL.Query().Get("limit"), 100),
	}

	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid hours parameter")
			return
		}
		filter.StartTime = time.Now().Add(-time.Duration(hours) * time.Hour).Format(queryTimeLayout)
	}

	types, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid types parameter")
		return
	}
	filter.Types = types

	alarms, err := h.alarmRepo.GetFiltered(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alarms")
		return
	}

	writeJSON(w, http.StatusOK, alarms)
}

// ListAlarmsByRange returns alarms within a time range. Required query
// parameters start and end use the "YYYY-MM-DD HH:MM:SS" layout;
// optional types is a comma-separated list of alarm type codes.
func (h *AlarmHandler) ListAlarmsByRange(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required")
		return
	}
	if _, err := time.ParseInLocation(queryTimeLayout, start, time.Local); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time, expected YYYY-MM-DD HH:MM:SS")
		return
	}
	if _, err := time.ParseInLocation(queryTimeLayout, end, time.Local); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end time, expected YYYY-MM-DD HH:MM:SS")
		return
	}

	types, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid types parameter")
		return
	}

	filter := repository.AlarmFilter{
		StartTime: start,
		EndTime:   end,
		Types:     types,
		Terid:     r.URL.Query().Get("terid"),
		Limit:     parseLimit(r.URL.Query().Get("limit"), 1000),
	}

	alarms, err := h.alarmRepo.GetFiltered(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query alarms")
		return
	}

	writeJSON(w, http.StatusOK, alarms)
}

// GetAlarm returns a single alarm by its row ID
func (h *AlarmHandler) GetAlarm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid alarm ID")
		return
	}

	alarm, err := h.alarmRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if alarm == nil {
		writeError(w, http.StatusNotFound, "Alarm not found")
		return
	}

	writeJSON(w, http.StatusOK, alarm)
}

// ListAlarmTypes returns the distinct alarm types present in the store
// with their display names, counts, and heatmap weights.
func (h *AlarmHandler) ListAlarmTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.alarmRepo.GetDistinctTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alarm types")
		return
	}

	writeJSON(w, http.StatusOK, types)
}

// GetStats returns aggregate statistics over the last 24 hours together
// with store totals.
func (h *AlarmHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalAlarms, err := h.alarmRepo.GetCount(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	totalDevices, err := h.deviceRepo.GetCount(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	cutoff := time.Now().Add(-24 * time.Hour).Format(queryTimeLayout)
	recent, err := h.alarmRepo.GetFiltered(ctx, repository.AlarmFilter{
		StartTime: cutoff,
		Limit:     100000,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	typeCounts := make(map[int]int)
	deviceCounts := make(map[string]int)
	for _, a := range recent {
		typeCounts[a.AlarmType]++
		deviceCounts[a.Terid]++
	}

	var mostActive *models.DeviceAlarmCount
	for terid, count := range deviceCounts {
		if mostActive == nil || count > mostActive.AlarmCount {
			mostActive = &models.DeviceAlarmCount{Terid: terid, AlarmCount: count}
		}
	}

	writeJSON(w, http.StatusOK, models.StatsResponse{
		TotalAlarms:      totalAlarms,
		TotalDevices:     totalDevices,
		RecentAlarms24h:  len(recent),
		AlarmTypeCounts:  typeCounts,
		MostActiveDevice: mostActive,
		LastUpdated:      time.Now().UTC(),
	})
}

func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseTypes(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	types := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		types = append(types, n)
	}
	return types, nil
}
