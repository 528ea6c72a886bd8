package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Serialize writers instead of failing on lock contention; the three
	// sync services write concurrently through this one handle.
	if _, err := db.Exec("PRAGMA busy_timeout = 30000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTablesSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTablesSQLite(db *sql.DB) error {
	schema := `
	-- Devices: one row per terminal, mutated in place on re-sync
	CREATE TABLE IF NOT EXISTS devices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
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
		last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_devices_car_license ON devices(car_license);

	-- Alarms: append-only event log, deduplicated on the business tuple
	CREATE TABLE IF NOT EXISTS alarms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		terid TEXT NOT NULL,
		gps_time TEXT NOT NULL,
		altitude INTEGER,
		direction INTEGER,
		gps_lat REAL,
		gps_lng REAL,
		speed INTEGER,
		record_speed INTEGER,
		state INTEGER,
		server_time TEXT,
		alarm_type INTEGER NOT NULL,
		alarm_content TEXT NOT NULL DEFAULT '',
		cmd_type INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(terid, gps_time, alarm_type, alarm_content)
	);

	CREATE INDEX IF NOT EXISTS idx_alarms_terid ON alarms(terid);
	CREATE INDEX IF NOT EXISTS idx_alarms_gps_time ON alarms(gps_time);
	CREATE INDEX IF NOT EXISTS idx_alarms_type ON alarms(alarm_type);
	CREATE INDEX IF NOT EXISTS idx_alarms_created_at ON alarms(created_at);

	-- GPS positions: latest fix only, one row per terid
	CREATE TABLE IF NOT EXISTS gps_positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		terid TEXT UNIQUE NOT NULL,
		car_license TEXT,
		gps_time TEXT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		altitude INTEGER,
		speed INTEGER,
		record_speed INTEGER,
		direction INTEGER,
		state INTEGER,
		address TEXT,
		last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_gps_last_updated ON gps_positions(last_updated);
	`

	_, err := db.Exec(schema)
	return err
}
