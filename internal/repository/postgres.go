package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTablesPostgres(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTablesPostgres(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		id BIGSERIAL PRIMARY KEY,
		terid TEXT UNIQUE NOT NULL,
		car_license TEXT NOT NULL DEFAULT 'Unknown',
		sim TEXT NOT NULL DEFAULT 'Unknown',
		channel INTEGER NOT NULL DEFAULT 0,
		plate_color INTEGER NOT NULL DEFAULT 0,
		group_id INTEGER NOT NULL DEFAULT 0,
		cname TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT '0',
		link_type TEXT NOT NULL DEFAULT '0',
		device_username TEXT NOT NULL DEFAULT '',
		device_password TEXT NOT NULL DEFAULT '',
		register_ip TEXT NOT NULL DEFAULT '',
		register_port INTEGER NOT NULL DEFAULT 0,
		transmit_ip TEXT NOT NULL DEFAULT '',
		transmit_port INTEGER NOT NULL DEFAULT 0,
		channel_enable INTEGER NOT NULL DEFAULT 0,
		company_branch TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_devices_car_license ON devices(car_license);

	CREATE TABLE IF NOT EXISTS alarms (
		id BIGSERIAL PRIMARY KEY,
		terid TEXT NOT NULL,
		gps_time TEXT NOT NULL,
		altitude INTEGER,
		direction INTEGER,
		gps_lat DOUBLE PRECISION,
		gps_lng DOUBLE PRECISION,
		speed INTEGER,
		record_speed INTEGER,
		state INTEGER,
		server_time TEXT,
		alarm_type INTEGER NOT NULL,
		alarm_content TEXT NOT NULL DEFAULT '',
		cmd_type INTEGER,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(terid, gps_time, alarm_type, alarm_content)
	);

	CREATE INDEX IF NOT EXISTS idx_alarms_terid ON alarms(terid);
	CREATE INDEX IF NOT EXISTS idx_alarms_gps_time ON alarms(gps_time);
	CREATE INDEX IF NOT EXISTS idx_alarms_type ON alarms(alarm_type);
	CREATE INDEX IF NOT EXISTS idx_alarms_created_at ON alarms(created_at);

	CREATE TABLE IF NOT EXISTS gps_positions (
		id BIGSERIAL PRIMARY KEY,
		terid TEXT UNIQUE NOT NULL,
		car_license TEXT,
		gps_time TEXT,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		altitude INTEGER,
		speed INTEGER,
		record_speed INTEGER,
		direction INTEGER,
		state INTEGER,
		address TEXT,
		last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_gps_last_updated ON gps_positions(last_updated);
	`

	_, err := db.Exec(schema)
	return err
}
