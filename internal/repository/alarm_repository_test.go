package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/server/internal/models"
)

func testAlarm(terid, gpsTime string, alarmType int) models.Alarm {
	speed := 42
	lat := 51.5074
	return models.Alarm{
		Terid:     terid,
		GPSTime:   gpsTime,
		AlarmType: alarmType,
		Content:   "triggered",
		Speed:     &speed,
		GPSLat:    &lat,
	}
}

func TestAlarmRepository_Insert(t *testing.T) {
	t.Run("inserts and reads back nullable fields", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		ctx := context.Background()

		inserted, err := repo.Insert(ctx, testAlarm("T001", "2026-08-25 10:00:00", 18))
		require.NoError(t, err)
		assert.True(t, inserted)

		alarms, err := repo.GetByTerid(ctx, "T001", 10)
		require.NoError(t, err)
		require.Len(t, alarms, 1)

		a := alarms[0]
		assert.Equal(t, 18, a.AlarmType)
		require.NotNil(t, a.Speed)
		assert.Equal(t, 42, *a.Speed)
		require.NotNil(t, a.GPSLat)
		assert.InDelta(t, 51.5074, *a.GPSLat, 0.0001)
		assert.Nil(t, a.Altitude)
	})

	t.Run("duplicate tuple is skipped", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		ctx := context.Background()

		alarm := testAlarm("T001", "2026-08-25 10:00:00", 18)
		inserted, err := repo.Insert(ctx, alarm)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = repo.Insert(ctx, alarm)
		require.NoError(t, err)
		assert.False(t, inserted)

		count, err := repo.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("same tuple with different type is a new row", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		ctx := context.Background()

		_, err := repo.Insert(ctx, testAlarm("T001", "2026-08-25 10:00:00", 18))
		require.NoError(t, err)
		inserted, err := repo.Insert(ctx, testAlarm("T001", "2026-08-25 10:00:00", 56))
		require.NoError(t, err)
		assert.True(t, inserted)
	})
}

func TestAlarmRepository_InsertBatch(t *testing.T) {
	t.Run("counts inserted, duplicates and failed", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		ctx := context.Background()

		result := repo.InsertBatch(ctx, []models.Alarm{
			testAlarm("T001", "2026-08-25 10:00:00", 18),
			testAlarm("T001", "2026-08-25 10:00:00", 18),
			testAlarm("T002", "2026-08-25 10:01:00", 56),
			{Terid: "", GPSTime: "2026-08-25 10:02:00"},
			{Terid: "T003", GPSTime: ""},
		})

		assert.Equal(t, 2, result.Inserted)
		assert.Equal(t, 1, result.Duplicates)
		assert.Equal(t, 2, result.Failed)
	})
}

func TestAlarmRepository_GetFiltered(t *testing.T) {
	seed := func(t *testing.T) *AlarmRepository {
		repo := NewAlarmRepository(setupTestDB(t))
		ctx := context.Background()
		repo.InsertBatch(ctx, []models.Alarm{
			testAlarm("T001", "2026-08-25 09:00:00", 18),
			testAlarm("T001", "2026-08-25 10:00:00", 56),
			testAlarm("T002", "2026-08-25 11:00:00", 18),
			testAlarm("T002", "2026-08-25 12:00:00", 160),
		})
		return repo
	}

	t.Run("empty filter returns everything", func(t *testing.T) {
		repo := seed(t)
		alarms, err := repo.GetFiltered(context.Background(), AlarmFilter{})
		require.NoError(t, err)
		assert.Len(t, alarms, 4)
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		repo := seed(t)
		alarms, err := repo.GetFiltered(context.Background(), AlarmFilter{
			StartTime: "2026-08-25 10:00:00",
			EndTime:   "2026-08-25 11:00:00",
		})
		require.NoError(t, err)
		assert.Len(t, alarms, 2)
	})

	t.Run("filters by type set", func(t *testing.T) {
		repo := seed(t)
		alarms, err := repo.GetFiltered(context.Background(), AlarmFilter{
			StartTime: "2026-08-25 00:00:00",
			EndTime:   "2026-08-25 23:59:59",
			Types:     []int{18, 160},
		})
		require.NoError(t, err)
		assert.Len(t, alarms, 3)
	})

	t.Run("filters by device", func(t *testing.T) {
		repo := seed(t)
		alarms, err := repo.GetFiltered(context.Background(), AlarmFilter{
			StartTime: "2026-08-25 00:00:00",
			EndTime:   "2026-08-25 23:59:59",
			Terid:     "T002",
		})
		require.NoError(t, err)
		require.Len(t, alarms, 2)
		for _, a := range alarms {
			assert.Equal(t, "T002", a.Terid)
		}
	})

	t.Run("orders newest first and honors limit", func(t *testing.T) {
		repo := seed(t)
		alarms, err := repo.GetFiltered(context.Background(), AlarmFilter{
			StartTime: "2026-08-25 00:00:00",
			EndTime:   "2026-08-25 23:59:59",
			Limit:     2,
		})
		require.NoError(t, err)
		require.Len(t, alarms, 2)
		assert.Equal(t, "2026-08-25 12:00:00", alarms[0].GPSTime)
		assert.Equal(t, "2026-08-25 11:00:00", alarms[1].GPSTime)
	})
}

func TestAlarmRepository_GetDistinctTypes(t *testing.T) {
	t.Run("returns counts with names and weights", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		ctx := context.Background()
		repo.InsertBatch(ctx, []models.Alarm{
			testAlarm("T001", "2026-08-25 09:00:00", 18),
			testAlarm("T001", "2026-08-25 10:00:00", 18),
			testAlarm("T002", "2026-08-25 11:00:00", 56),
		})

		types, err := repo.GetDistinctTypes(ctx)
		require.NoError(t, err)
		require.Len(t, types, 2)

		assert.Equal(t, 18, types[0].Type)
		assert.Equal(t, 2, types[0].Count)
		assert.NotEmpty(t, types[0].Name)
		assert.Greater(t, types[0].Weight, 0.0)
	})
}

func TestAlarmRepository_DeleteOlderThan(t *testing.T) {
	t.Run("removes only rows before the cutoff", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		ctx := context.Background()
		repo.InsertBatch(ctx, []models.Alarm{
			testAlarm("T001", "2026-08-25 09:00:00", 18),
			testAlarm("T002", "2026-08-25 10:00:00", 56),
		})

		// Everything was just created, so a cutoff in the past removes nothing
		deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().AddDate(0, 0, -30))
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted)

		// A future cutoff removes everything
		deleted, err = repo.DeleteOlderThan(ctx, time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		count, err := repo.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestAlarmRepository_GetByID(t *testing.T) {
	t.Run("missing alarm is nil, not an error", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		a, err := repo.GetByID(context.Background(), 12345)
		require.NoError(t, err)
		assert.Nil(t, a)
	})
}
