package repository

import (
	"context"
	"time"

	"github.com/fleetsync/server/internal/models"
)

// DeviceRepo defines the interface for device persistence operations.
// Upserts are idempotent: at most one row exists per terid.
type DeviceRepo interface {
	Upsert(ctx context.Context, device models.Device) (inserted bool, err error)
	UpsertBatch(ctx context.Context, devices []models.Device) models.BatchResult
	GetAll(ctx context.Context) ([]*models.Device, error)
	GetByTerid(ctx context.Context, terid string) (*models.Device, error)
	GetTerids(ctx context.Context) ([]string, error)
	GetCount(ctx context.Context) (int, error)
	GetLastUpdateTime(ctx context.Context) (*time.Time, error)
}

// AlarmFilter narrows alarm read queries. Zero values mean "no filter".
type AlarmFilter struct {
	StartTime string
	EndTime   string
	Types     []int
	Terid     string
	Limit     int
}

// AlarmRepo defines the interface for alarm persistence operations.
// Inserts deduplicate on (terid, gps_time, alarm_type, alarm_content).
type AlarmRepo interface {
	Insert(ctx context.Context, alarm models.Alarm) (inserted bool, err error)
	InsertBatch(ctx context.Context, alarms []models.Alarm) models.BatchResult
	GetByID(ctx context.Context, id int64) (*models.Alarm, error)
	GetByTerid(ctx context.Context, terid string, limit int) ([]*models.Alarm, error)
	GetFiltered(ctx context.Context, filter AlarmFilter) ([]*models.Alarm, error)
	GetDistinctTypes(ctx context.Context) ([]models.AlarmTypeCount, error)
	GetCount(ctx context.Context) (int, error)
	GetLastUpdateTime(ctx context.Context) (*time.Time, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PositionRepo defines the interface for latest-position persistence.
// Writes replace the single row held per terid.
type PositionRepo interface {
	Replace(ctx context.Context, pos models.Position) error
	GetAll(ctx context.Context) ([]*models.Position, error)
	GetByTerid(ctx context.Context, terid string) (*models.Position, error)
	GetCount(ctx context.Context) (int, error)
	GetLastUpdateTime(ctx context.Context) (*time.Time, error)
}
