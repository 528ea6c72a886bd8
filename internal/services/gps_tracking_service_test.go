package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/server/internal/models"
)

func positionRecord(terid, lat, lng string) models.PositionRecord {
	return models.PositionRecord{
		Terid:   terid,
		GPSTime: "2026-08-25 10:00:00",
		GPSLat:  lat,
		GPSLng:  lng,
		Speed:   "42",
	}
}

func TestGPSTrackingService_Sync(t *testing.T) {
	t.Run("replaces the latest position per device", func(t *testing.T) {
		devices := newFakeDeviceRepo()
		devices.seed("T001")
		api := &fakePositionAPI{records: []models.PositionRecord{
			positionRecord("T001", "51.5074", "-0.1278"),
		}}
		positions := newFakePositionRepo()
		svc := NewGPSTrackingService(api, devices, positions)

		assert.True(t, svc.Sync())

		pos, err := positions.GetByTerid(context.Background(), "T001")
		require.NoError(t, err)
		require.NotNil(t, pos)
		assert.Equal(t, 51.5074, pos.Latitude)
		assert.Equal(t, -0.1278, pos.Longitude)
		require.NotNil(t, pos.Speed)
		assert.Equal(t, 42, *pos.Speed)
		require.NotNil(t, pos.CarLicense)
		assert.Equal(t, "LIC-T001", *pos.CarLicense)
		require.NotNil(t, pos.GPSTime)
		assert.Equal(t, "2026-08-25 10:00:00", *pos.GPSTime)

		// A later fix replaces, never accumulates
		api.mu.Lock()
		api.records = []models.PositionRecord{positionRecord("T001", "48.8566", "2.3522")}
		api.mu.Unlock()
		assert.True(t, svc.Sync())

		count, _ := positions.GetCount(context.Background())
		assert.Equal(t, 1, count)
		pos, _ = positions.GetByTerid(context.Background(), "T001")
		assert.Equal(t, 48.8566, pos.Latitude)
	})

	t.Run("rejects the no-fix sentinel and out-of-range coordinates", func(t *testing.T) {
		devices := newFakeDeviceRepo()
		devices.seed("T001", "T002", "T003")
		api := &fakePositionAPI{records: []models.PositionRecord{
			positionRecord("T001", "0", "0"),
			positionRecord("T002", "200", "10"),
			positionRecord("T003", "51.5", "-0.12"),
		}}
		positions := newFakePositionRepo()
		svc := NewGPSTrackingService(api, devices, positions)

		assert.True(t, svc.Sync())

		count, _ := positions.GetCount(context.Background())
		assert.Equal(t, 1, count)

		pos, _ := positions.GetByTerid(context.Background(), "T003")
		assert.NotNil(t, pos)
	})

	t.Run("unparseable secondary fields become absent", func(t *testing.T) {
		devices := newFakeDeviceRepo()
		devices.seed("T001")
		rec := positionRecord("T001", "51.5", "-0.12")
		rec.Speed = "not-a-number"
		rec.Altitude = "12.0"
		rec.GPSTime = "garbage"
		api := &fakePositionAPI{records: []models.PositionRecord{rec}}
		positions := newFakePositionRepo()
		svc := NewGPSTrackingService(api, devices, positions)

		assert.True(t, svc.Sync())

		pos, _ := positions.GetByTerid(context.Background(), "T001")
		require.NotNil(t, pos)
		assert.Nil(t, pos.Speed)
		assert.Nil(t, pos.GPSTime)
		require.NotNil(t, pos.Altitude)
		assert.Equal(t, 12, *pos.Altitude)
	})

	t.Run("no devices fails the cycle", func(t *testing.T) {
		svc := NewGPSTrackingService(&fakePositionAPI{}, newFakeDeviceRepo(), newFakePositionRepo())
		assert.False(t, svc.Sync())
	})

	t.Run("fetch failure fails the cycle", func(t *testing.T) {
		devices := newFakeDeviceRepo()
		devices.seed("T001")
		api := &fakePositionAPI{err: fmt.Errorf("timeout")}
		svc := NewGPSTrackingService(api, devices, newFakePositionRepo())

		assert.False(t, svc.Sync())
	})

	t.Run("zero stored positions fails the cycle", func(t *testing.T) {
		devices := newFakeDeviceRepo()
		devices.seed("T001")
		api := &fakePositionAPI{records: []models.PositionRecord{
			positionRecord("T001", "0", "0"),
		}}
		svc := NewGPSTrackingService(api, devices, newFakePositionRepo())

		assert.False(t, svc.Sync())
	})
}

func TestGPSTrackingService_Status(t *testing.T) {
	t.Run("reports stored and skipped counts", func(t *testing.T) {
		devices := newFakeDeviceRepo()
		devices.seed("T001", "T002")
		api := &fakePositionAPI{records: []models.PositionRecord{
			positionRecord("T001", "51.5", "-0.12"),
			positionRecord("T002", "0", "0"),
		}}
		positions := newFakePositionRepo()
		svc := NewGPSTrackingService(api, devices, positions)

		assert.True(t, svc.Sync())

		status := svc.Status().(models.GPSSyncStatus)
		assert.Equal(t, 1, status.TrackedDevices)
		assert.Equal(t, 1, status.LastStored)
		assert.Equal(t, 1, status.LastSkipped)
		assert.NotNil(t, status.LastSyncTime)
	})
}

func TestValidGPSTimestamp(t *testing.T) {
	assert.True(t, validGPSTimestamp("2026-08-25 10:00:00"))
	assert.False(t, validGPSTimestamp(""))
	assert.False(t, validGPSTimestamp("2026-08-25T10:00:00Z"))
	assert.False(t, validGPSTimestamp("yesterday"))
}
