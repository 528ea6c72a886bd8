package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleetsync/server/internal/models"
)

// DeviceRepository implements DeviceRepo for PostgreSQL/SQLite
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, terid, car_license, sim, channel, plate_color, group_id, cname,
	device_type, link_type, device_username, device_password, register_ip, register_port,
	transmit_ip, transmit_port, channel_enable, company_branch, company_name, last_updated`

func scanDevice(scanner interface{ Scan(...any) error }) (*models.Device, error) {
	var d models.Device
	err := scanner.Scan(
		&d.ID, &d.Terid, &d.CarLicense, &d.SIM, &d.Channel, &d.PlateColor, &d.GroupID,
		&d.CName, &d.DeviceType, &d.LinkType, &d.DeviceUsername, &d.DevicePassword,
		&d.RegisterIP, &d.RegisterPort, &d.TransmitIP, &d.TransmitPort, &d.ChannelEnable,
		&d.CompanyBranch, &d.CompanyName, &d.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Upsert inserts the device if its terid is unseen, otherwise updates the
// existing row in place and refreshes last_updated. Returns whether a new
// row was created.
func (r *DeviceRepository) Upsert(ctx context.Context, device models.Device) (bool, error) {
	var existingID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM devices WHERE terid = $1`, device.Terid).Scan(&existingID)

	now := time.Now().UTC()

	if err == sql.ErrNoRows {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO devices (
				terid, car_license, sim, channel, plate_color, group_id, cname,
				device_type, link_type, device_username, device_password,
				register_ip, register_port, transmit_ip, transmit_port,
				channel_enable, company_branch, company_name, last_updated
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			device.Terid, device.CarLicense, device.SIM, device.Channel, device.PlateColor,
			device.GroupID, device.CName, device.DeviceType, device.LinkType,
			device.DeviceUsername, device.DevicePassword, device.RegisterIP, device.RegisterPort,
			device.TransmitIP, device.TransmitPort, device.ChannelEnable,
			device.CompanyBranch, device.CompanyName, now,
		)
		if err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	// Placeholders stay in numeric order so positional binding works the
	// same under lib/pq and go-sqlite3.
	_, err = r.db.ExecContext(ctx, `
		UPDATE devices SET
			car_license = $1, sim = $2, channel = $3, plate_color = $4, group_id = $5,
			cname = $6, device_type = $7, link_type = $8, device_username = $9,
			device_password = $10, register_ip = $11, register_port = $12,
			transmit_ip = $13, transmit_port = $14, channel_enable = $15,
			company_branch = $16, company_name = $17, last_updated = $18
		WHERE terid = $19`,
		device.CarLicense, device.SIM, device.Channel, device.PlateColor,
		device.GroupID, device.CName, device.DeviceType, device.LinkType,
		device.DeviceUsername, device.DevicePassword, device.RegisterIP, device.RegisterPort,
		device.TransmitIP, device.TransmitPort, device.ChannelEnable,
		device.CompanyBranch, device.CompanyName, now, device.Terid,
	)
	return false, err
}

// UpsertBatch upserts devices one at a time, counting outcomes. A failed
// record never aborts the batch.
func (r *DeviceRepository) UpsertBatch(ctx context.Context, devices []models.Device) models.BatchResult {
	var result models.BatchResult
	for _, device := range devices {
		if device.Terid == "" {
			result.Failed++
			continue
		}
		inserted, err := r.Upsert(ctx, device)
		switch {
		case err != nil:
			result.Failed++
		case inserted:
			result.Inserted++
		default:
			result.Updated++
		}
	}
	return result
}

func (r *DeviceRepository) GetAll(ctx context.Context) ([]*models.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY car_license`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *DeviceRepository) GetByTerid(ctx context.Context, terid string) (*models.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE terid = $1`, terid)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DeviceRepository) GetTerids(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT terid FROM devices ORDER BY terid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terids []string
	for rows.Next() {
		var terid string
		if err := rows.Scan(&terid); err != nil {
			return nil, err
		}
		terids = append(terids, terid)
	}
	return terids, rows.Err()
}

func (r *DeviceRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&count)
	return count, err
}

func (r *DeviceRepository) GetLastUpdateTime(ctx context.Context) (*time.Time, error) {
	var last time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT last_updated FROM devices ORDER BY last_updated DESC LIMIT 1`).Scan(&last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &last, nil
}
