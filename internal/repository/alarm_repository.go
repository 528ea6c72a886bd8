package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fleetsync/server/internal/models"
)

// AlarmRepository implements AlarmRepo for PostgreSQL/SQLite
type AlarmRepository struct {
	db *sql.DB
}

// NewAlarmRepository creates a new AlarmRepository
func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

const alarmColumns = `id, terid, gps_time, altitude, direction, gps_lat, gps_lng, speed,
	record_speed, state, server_time, alarm_type, alarm_content, cmd_type, created_at`

func scanAlarm(scanner interface{ Scan(...any) error }) (*models.Alarm, error) {
	var a models.Alarm
	var altitude, direction, speed, recordSpeed, state sql.NullInt64
	var lat, lng sql.NullFloat64
	var serverTime sql.NullString
	var cmdType sql.NullInt64

	err := scanner.Scan(
		&a.ID, &a.Terid, &a.GPSTime, &altitude, &direction, &lat, &lng, &speed,
		&recordSpeed, &state, &serverTime, &a.AlarmType, &a.Content, &cmdType, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Altitude = nullableInt(altitude)
	a.Direction = nullableInt(direction)
	a.Speed = nullableInt(speed)
	a.RecordSpeed = nullableInt(recordSpeed)
	a.State = nullableInt(state)
	if lat.Valid {
		a.GPSLat = &lat.Float64
	}
	if lng.Valid {
		a.GPSLng = &lng.Float64
	}
	a.ServerTime = serverTime.String
	if cmdType.Valid {
		a.CmdType = int(cmdType.Int64)
	}
	return &a, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// Insert adds an alarm, silently skipping it when the dedup tuple
// (terid, gps_time, alarm_type, alarm_content) already exists. Returns
// whether a row was actually created.
func (r *AlarmRepository) Insert(ctx context.Context, alarm models.Alarm) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms (
			terid, gps_time, altitude, direction, gps_lat, gps_lng, speed,
			record_speed, state, server_time, alarm_type, alarm_content, cmd_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (terid, gps_time, alarm_type, alarm_content) DO NOTHING`,
		alarm.Terid, alarm.GPSTime, optInt(alarm.Altitude), optInt(alarm.Direction),
		optFloat(alarm.GPSLat), optFloat(alarm.GPSLng), optInt(alarm.Speed),
		optInt(alarm.RecordSpeed), optInt(alarm.State), alarm.ServerTime,
		alarm.AlarmType, alarm.Content, alarm.CmdType,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// InsertBatch inserts alarms one at a time, counting inserted, duplicate
// and failed records. A failed record never aborts the batch.
func (r *AlarmRepository) InsertBatch(ctx context.Context, alarms []models.Alarm) models.BatchResult {
	var result models.BatchResult
	for _, alarm := range alarms {
		if alarm.Terid == "" || alarm.GPSTime == "" {
			result.Failed++
			continue
		}
		inserted, err := r.Insert(ctx, alarm)
		switch {
		case err != nil:
			result.Failed++
		case inserted:
			result.Inserted++
		default:
			result.Duplicates++
		}
	}
	return result
}

func (r *AlarmRepository) GetByID(ctx context.Context, id int64) (*models.Alarm, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+alarmColumns+` FROM alarms WHERE id = $1`, id)
	a, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AlarmRepository) GetByTerid(ctx context.Context, terid string, limit int) ([]*models.Alarm, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+alarmColumns+` FROM alarms WHERE terid = $1 ORDER BY created_at DESC LIMIT $2`,
		terid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlarms(rows)
}

// GetFiltered returns alarms narrowed by any combination of time
// window, alarm-type set and device. Zero-valued filter fields are
// skipped; every bound value is a parameter, never interpolated.
func (r *AlarmRepository) GetFiltered(ctx context.Context, filter AlarmFilter) ([]*models.Alarm, error) {
	var conds []string
	var args []any

	if filter.StartTime != "" {
		args = append(args, filter.StartTime)
		conds = append(conds, fmt.Sprintf("gps_time >= $%d", len(args)))
	}
	if filter.EndTime != "" {
		args = append(args, filter.EndTime)
		conds = append(conds, fmt.Sprintf("gps_time <= $%d", len(args)))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, fmt.Sprintf("alarm_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Terid != "" {
		args = append(args, filter.Terid)
		conds = append(conds, fmt.Sprintf("terid = $%d", len(args)))
	}

	query := `SELECT ` + alarmColumns + ` FROM alarms`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY gps_time DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlarms(rows)
}

func collectAlarms(rows *sql.Rows) ([]*models.Alarm, error) {
	var alarms []*models.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

// GetDistinctTypes returns each stored alarm type with its row count,
// most frequent first.
func (r *AlarmRepository) GetDistinctTypes(ctx context.Context) ([]models.AlarmTypeCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT alarm_type, COUNT(*) AS cnt
		FROM alarms
		GROUP BY alarm_type
		ORDER BY cnt DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.AlarmTypeCount
	for rows.Next() {
		var tc models.AlarmTypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		tc.Name = models.AlarmTypeName(tc.Type)
		tc.Weight = models.AlarmTypeWeight(tc.Type)
		result = append(result, tc)
	}
	return result, rows.Err()
}

func (r *AlarmRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alarms`).Scan(&count)
	return count, err
}

func (r *AlarmRepository) GetLastUpdateTime(ctx context.Context) (*time.Time, error) {
	var last time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT created_at FROM alarms ORDER BY created_at DESC LIMIT 1`).Scan(&last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &last, nil
}

// DeleteOlderThan removes alarms created before the cutoff. Used by
// retention cleanup to bound store growth.
func (r *AlarmRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM alarms WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func optInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func optFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
