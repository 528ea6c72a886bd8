package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/server/internal/models"
	"github.com/fleetsync/server/internal/repository"
	"github.com/fleetsync/server/internal/services"
)

type testEnv struct {
	db        *sql.DB
	devices   *repository.DeviceRepository
	alarms    *repository.AlarmRepository
	positions *repository.PositionRepository
	router    chi.Router
}

// stubAlarmAPI satisfies the alarm service's API dependency for the
// refresh endpoint.
type stubAlarmAPI struct {
	records []models.AlarmRecord
	err     error
}

func (s *stubAlarmAPI) GetAlarmDetails(ctx context.Context, terids []string, start, end time.Time, types []int) ([]models.AlarmRecord, error) {
	return s.records, s.err
}

func setupEnv(t *testing.T) *testEnv {
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:        db,
		devices:   repository.NewDeviceRepository(db),
		alarms:    repository.NewAlarmRepository(db),
		positions: repository.NewPositionRepository(db),
	}

	alarmSvc := services.NewAlarmSyncService(&stubAlarmAPI{}, env.devices, env.alarms, services.AlarmSyncConfig{})
	schedulers := map[string]*services.Scheduler{}

	healthHandler := NewHealthHandler(db)
	deviceHandler := NewDeviceHandler(env.devices)
	alarmHandler := NewAlarmHandler(env.alarms, env.devices)
	positionHandler := NewPositionHandler(env.positions)
	syncHandler := NewSyncHandler(schedulers, alarmSvc)

	r := chi.NewRouter()
	r.Get("/health", healthHandler.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", deviceHandler.ListDevices)
			r.Get("/{terid}", deviceHandler.GetDevice)
			r.Post("/{terid}/alarms/refresh", syncHandler.RefreshDeviceAlarms)
		})
		r.Route("/alarms", func(r chi.Router) {
			r.Get("/", alarmHandler.ListAlarms)
			r.Get("/range", alarmHandler.ListAlarmsByRange)
			r.Get("/{id}", alarmHandler.GetAlarm)
		})
		r.Get("/alarm-types", alarmHandler.ListAlarmTypes)
		r.Get("/stats", alarmHandler.GetStats)
		r.Route("/gps", func(r chi.Router) {
			r.Get("/positions", positionHandler.ListPositions)
			r.Get("/positions/{terid}", positionHandler.GetPosition)
		})
		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", syncHandler.GetStatus)
			r.Post("/{service}/force", syncHandler.ForceSync)
		})
	})
	env.router = r
	return env
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(t *testing.T, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedAlarms(t *testing.T) {
	result := e.alarms.InsertBatch(context.Background(), []models.Alarm{
		{Terid: "T001", GPSTime: "2026-08-25 09:00:00", AlarmType: 18, Content: "a"},
		{Terid: "T001", GPSTime: "2026-08-25 10:00:00", AlarmType: 56, Content: "b"},
		{Terid: "T002", GPSTime: "2026-08-25 11:00:00", AlarmType: 18, Content: "c"},
	})
	require.Equal(t, 3, result.Inserted)
}

func TestHealthHandler(t *testing.T) {
	env := setupEnv(t)

	rec := env.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Database)
}

func TestDeviceEndpoints(t *testing.T) {
	t.Run("lists devices", func(t *testing.T) {
		env := setupEnv(t)
		env.devices.UpsertBatch(context.Background(), []models.Device{
			{Terid: "T001", CarLicense: "ABC-123"},
			{Terid: "T002", CarLicense: "DEF-456"},
		})

		rec := env.get(t, "/api/devices/")
		require.Equal(t, http.StatusOK, rec.Code)

		var devices []models.Device
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devices))
		assert.Len(t, devices, 2)
	})

	t.Run("returns one device by terid", func(t *testing.T) {
		env := setupEnv(t)
		env.devices.UpsertBatch(context.Background(), []models.Device{
			{Terid: "T001", CarLicense: "ABC-123"},
		})

		rec := env.get(t, "/api/devices/T001")
		require.Equal(t, http.StatusOK, rec.Code)

		var d models.Device
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
		assert.Equal(t, "ABC-123", d.CarLicense)
	})

	t.Run("unknown device is 404", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.get(t, "/api/devices/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAlarmEndpoints(t *testing.T) {
	t.Run("lists recent alarms newest first", func(t *testing.T) {
		env := setupEnv(t)
		env.seedAlarms(t)

		rec := env.get(t, "/api/alarms/")
		require.Equal(t, http.StatusOK, rec.Code)

		var alarms []models.Alarm
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alarms))
		require.Len(t, alarms, 3)
		assert.Equal(t, "2026-08-25 11:00:00", alarms[0].GPSTime)
	})

	t.Run("list endpoint filters by type", func(t *testing.T) {
		env := setupEnv(t)
		env.seedAlarms(t)

		rec := env.get(t, "/api/alarms/?types=18")
		require.Equal(t, http.StatusOK, rec.Code)

		var alarms []models.Alarm
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alarms))
		require.Len(t, alarms, 2)
		for _, a := range alarms {
			assert.Equal(t, 18, a.AlarmType)
		}
	})

	t.Run("list endpoint rejects invalid hours", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.get(t, "/api/alarms/?hours=soon")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("range endpoint requires window parameters", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.get(t, "/api/alarms/range")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.get(t, "/api/alarms/range?start=bogus&end="+url.QueryEscape("2026-08-25 23:00:00"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("range endpoint filters by window and type", func(t *testing.T) {
		env := setupEnv(t)
		env.seedAlarms(t)

		q := url.Values{}
		q.Set("start", "2026-08-25 00:00:00")
		q.Set("end", "2026-08-25 23:59:59")
		q.Set("types", "18")
		rec := env.get(t, "/api/alarms/range?"+q.Encode())
		require.Equal(t, http.StatusOK, rec.Code)

		var alarms []models.Alarm
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alarms))
		require.Len(t, alarms, 2)
		for _, a := range alarms {
			assert.Equal(t, 18, a.AlarmType)
		}
	})

	t.Run("invalid types parameter is 400", func(t *testing.T) {
		env := setupEnv(t)
		q := url.Values{}
		q.Set("start", "2026-08-25 00:00:00")
		q.Set("end", "2026-08-25 23:59:59")
		q.Set("types", "18,fire")
		rec := env.get(t, "/api/alarms/range?"+q.Encode())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("alarm by id", func(t *testing.T) {
		env := setupEnv(t)
		env.seedAlarms(t)

		rec := env.get(t, "/api/alarms/1")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.get(t, "/api/alarms/999")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.get(t, "/api/alarms/notanumber")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("alarm type catalog", func(t *testing.T) {
		env := setupEnv(t)
		env.seedAlarms(t)

		rec := env.get(t, "/api/alarm-types")
		require.Equal(t, http.StatusOK, rec.Code)

		var types []models.AlarmTypeCount
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
		require.Len(t, types, 2)
		assert.Equal(t, 18, types[0].Type)
		assert.Equal(t, 2, types[0].Count)
	})

	t.Run("stats aggregates recent activity", func(t *testing.T) {
		env := setupEnv(t)
		now := time.Now()
		env.alarms.InsertBatch(context.Background(), []models.Alarm{
			{Terid: "T001", GPSTime: now.Add(-time.Hour).Format("2006-01-02 15:04:05"), AlarmType: 18, Content: "a"},
			{Terid: "T001", GPSTime: now.Add(-2 * time.Hour).Format("2006-01-02 15:04:05"), AlarmType: 56, Content: "b"},
			{Terid: "T002", GPSTime: now.Add(-3 * time.Hour).Format("2006-01-02 15:04:05"), AlarmType: 18, Content: "c"},
		})

		rec := env.get(t, "/api/stats")
		require.Equal(t, http.StatusOK, rec.Code)

		var stats models.StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 3, stats.TotalAlarms)
		assert.Equal(t, 3, stats.RecentAlarms24h)
		assert.Equal(t, 2, stats.AlarmTypeCounts[18])
		require.NotNil(t, stats.MostActiveDevice)
		assert.Equal(t, "T001", stats.MostActiveDevice.Terid)
	})
}

func TestPositionEndpoints(t *testing.T) {
	t.Run("lists and fetches positions", func(t *testing.T) {
		env := setupEnv(t)
		require.NoError(t, env.positions.Replace(context.Background(), models.Position{
			Terid: "T001", Latitude: 51.5, Longitude: -0.12,
		}))

		rec := env.get(t, "/api/gps/positions")
		require.Equal(t, http.StatusOK, rec.Code)

		var positions []models.Position
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
		assert.Len(t, positions, 1)

		rec = env.get(t, "/api/gps/positions/T001")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = env.get(t, "/api/gps/positions/T999")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSyncEndpoints(t *testing.T) {
	t.Run("status covers every scheduler", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.get(t, "/api/sync/status")
		require.Equal(t, http.StatusOK, rec.Code)

		var statuses map[string]models.SchedulerStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
		assert.Empty(t, statuses)
	})

	t.Run("force sync on unknown service is 404", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.post(t, "/api/sync/bogus/force")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("device alarm refresh reports success", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.post(t, "/api/devices/T001/alarms/refresh?hours=2")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, float64(2), resp["hours"])
	})

	t.Run("invalid hours is 400", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.post(t, "/api/devices/T001/alarms/refresh?hours=soon")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
