package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleetsync/server/internal/models"
)

// PositionRepository implements PositionRepo for PostgreSQL/SQLite
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = `id, terid, car_license, gps_time, latitude, longitude, altitude,
	speed, record_speed, direction, state, address, last_updated`

func scanPosition(scanner interface{ Scan(...any) error }) (*models.Position, error) {
	var p models.Position
	var carLicense, gpsTime, address sql.NullString
	var altitude, speed, recordSpeed, direction, state sql.NullInt64

	err := scanner.Scan(
		&p.ID, &p.Terid, &carLicense, &gpsTime, &p.Latitude, &p.Longitude,
		&altitude, &speed, &recordSpeed, &direction, &state, &address, &p.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if carLicense.Valid {
		p.CarLicense = &carLicense.String
	}
	if gpsTime.Valid {
		p.GPSTime = &gpsTime.String
	}
	if address.Valid {
		p.Address = &address.String
	}
	p.Altitude = nullableInt(altitude)
	p.Speed = nullableInt(speed)
	p.RecordSpeed = nullableInt(recordSpeed)
	p.Direction = nullableInt(direction)
	p.State = nullableInt(state)
	return &p, nil
}

// Replace writes the latest position for a device, unconditionally
// overwriting whatever row existed for that terid.
func (r *PositionRepository) Replace(ctx context.Context, pos models.Position) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gps_positions (
			terid, car_license, gps_time, latitude, longitude, altitude,
			speed, record_speed, direction, state, address, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (terid) DO UPDATE SET
			car_license = EXCLUDED.car_license,
			gps_time = EXCLUDED.gps_time,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			altitude = EXCLUDED.altitude,
			speed = EXCLUDED.speed,
			record_speed = EXCLUDED.record_speed,
			direction = EXCLUDED.direction,
			state = EXCLUDED.state,
			address = EXCLUDED.address,
			last_updated = EXCLUDED.last_updated`,
		pos.Terid, optString(pos.CarLicense), optString(pos.GPSTime),
		pos.Latitude, pos.Longitude, optInt(pos.Altitude), optInt(pos.Speed),
		optInt(pos.RecordSpeed), optInt(pos.Direction), optInt(pos.State),
		optString(pos.Address), time.Now().UTC(),
	)
	return err
}

func (r *PositionRepository) GetAll(ctx context.Context) ([]*models.Position, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM gps_positions ORDER BY last_updated DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (r *PositionRepository) GetByTerid(ctx context.Context, terid string) (*models.Position, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM gps_positions WHERE terid = $1`, terid)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PositionRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gps_positions`).Scan(&count)
	return count, err
}

func (r *PositionRepository) GetLastUpdateTime(ctx context.Context) (*time.Time, error) {
	var last time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT last_updated FROM gps_positions ORDER BY last_updated DESC LIMIT 1`).Scan(&last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &last, nil
}

func optString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
