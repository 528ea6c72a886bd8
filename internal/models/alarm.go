package models

import (
	"strconv"
	"time"
)

// Alarm is a single alarm event as stored locally. Rows are immutable
// after insert; the store deduplicates on (terid, gps_time, alarm_type,
// alarm_content). GPSTime and ServerTime keep the vendor's
// "YYYY-MM-DD HH:MM:SS" local format so the dedup key matches the wire
// value byte for byte.
type Alarm struct {
	ID          int64     `json:"id"`
	Terid       string    `json:"terid"`
	GPSTime     string    `json:"gpsTime"`
	Altitude    *int      `json:"altitude"`
	Direction   *int      `json:"direction"`
	GPSLat      *float64  `json:"gpsLat"`
	GPSLng      *float64  `json:"gpsLng"`
	Speed       *int      `json:"speed"`
	RecordSpeed *int      `json:"recordSpeed"`
	State       *int      `json:"state"`
	ServerTime  string    `json:"serverTime"`
	AlarmType   int       `json:"alarmType"`
	Content     string    `json:"content"`
	CmdType     int       `json:"cmdType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AlarmRecord is the raw alarm payload returned by the vendor API.
// Numeric fields arrive as strings more often than not, so everything
// ambiguous is kept as a string and parsed during normalization.
type AlarmRecord struct {
	Terid       string `json:"terid"`
	GPSTime     string `json:"gpstime"`
	Altitude    string `json:"altitude"`
	Direction   string `json:"direction"`
	GPSLat      string `json:"gpslat"`
	GPSLng      string `json:"gpslng"`
	Speed       string `json:"speed"`
	RecordSpeed string `json:"recordspeed"`
	State       string `json:"state"`
	Time        string `json:"time"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	CmdType     string `json:"cmdtype"`
}

// NormalizeAlarm maps a raw alarm record onto the local schema. Numeric
// fields are parsed permissively: unparseable values are stored as
// absent rather than failing the record.
func NormalizeAlarm(rec AlarmRecord) Alarm {
	alarmType, _ := strconv.Atoi(rec.Type)
	cmdType, _ := strconv.Atoi(rec.CmdType)

	return Alarm{
		Terid:       rec.Terid,
		GPSTime:     rec.GPSTime,
		Altitude:    ParseOptionalInt(rec.Altitude),
		Direction:   ParseOptionalInt(rec.Direction),
		GPSLat:      ParseOptionalFloat(rec.GPSLat),
		GPSLng:      ParseOptionalFloat(rec.GPSLng),
		Speed:       ParseOptionalInt(rec.Speed),
		RecordSpeed: ParseOptionalInt(rec.RecordSpeed),
		State:       ParseOptionalInt(rec.State),
		ServerTime:  rec.Time,
		AlarmType:   alarmType,
		Content:     rec.Content,
		CmdType:     cmdType,
	}
}

// ParseOptionalInt converts a vendor numeric string to an int, returning
// nil when the value is empty or malformed.
func ParseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some firmware versions send integers with a decimal tail.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		v = int(f)
	}
	return &v
}

// ParseOptionalFloat converts a vendor numeric string to a float64,
// returning nil when the value is empty or malformed.
func ParseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
