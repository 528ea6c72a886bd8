package models

import "time"

// Position is the latest known GPS fix for a device. Exactly one row is
// kept per terid; every write replaces the previous one.
type Position struct {
	ID          int64     `json:"id"`
	Terid       string    `json:"terid"`
	CarLicense  *string   `json:"carLicense"`
	GPSTime     *string   `json:"gpsTime"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Altitude    *int      `json:"altitude"`
	Speed       *int      `json:"speed"`
	RecordSpeed *int      `json:"recordSpeed"`
	Direction   *int      `json:"direction"`
	State       *int      `json:"state"`
	Address     *string   `json:"address"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// PositionRecord is the raw last-position payload returned by the
// vendor API.
type PositionRecord struct {
	Terid       string `json:"terid"`
	GPSTime     string `json:"gpstime"`
	GPSLat      string `json:"gpslat"`
	GPSLng      string `json:"gpslng"`
	Altitude    string `json:"altitude"`
	Speed       string `json:"speed"`
	RecordSpeed string `json:"recordspeed"`
	Direction   string `json:"direction"`
	State       string `json:"state"`
}

// ValidCoordinates reports whether a parsed latitude/longitude pair is a
// usable fix. (0,0) is the vendor's "no fix" sentinel and is rejected
// along with anything outside geographic range.
func ValidCoordinates(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
