package models

import "time"

// BatchResult aggregates per-record outcomes of a batch store operation.
type BatchResult struct {
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Total returns the number of records the batch attempted to process.
func (r BatchResult) Total() int {
	return r.Inserted + r.Updated + r.Duplicates + r.Failed
}

// Add folds another batch result into this one.
func (r *BatchResult) Add(other BatchResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Duplicates += other.Duplicates
	r.Failed += other.Failed
}

// DeviceSyncStatus is the status payload of the device sync service.
type DeviceSyncStatus struct {
	LastSyncTime   *time.Time `json:"lastSyncTime"`
	LastRunID      string     `json:"lastRunId,omitempty"`
	SyncInProgress bool       `json:"syncInProgress"`
	TotalDevices   int        `json:"totalDevices"`
	LastDBUpdate   *time.Time `json:"lastDbUpdate"`
	LastResult     BatchResult `json:"lastResult"`
}

// AlarmSyncStatus is the status payload of the alarm sync service.
type AlarmSyncStatus struct {
	LastSyncTime      *time.Time  `json:"lastSyncTime"`
	LastRunID         string      `json:"lastRunId,omitempty"`
	SyncInProgress    bool        `json:"syncInProgress"`
	DevicesMonitored  int         `json:"devicesMonitored"`
	TotalAlarms       int         `json:"totalAlarms"`
	LastAlarmUpdate   *time.Time  `json:"lastAlarmUpdate"`
	LookbackMinutes   int         `json:"lookbackMinutes"`
	BatchSize         int         `json:"batchSize"`
	RetentionDays     int         `json:"retentionDays"`
	LastCleanupTime   *time.Time  `json:"lastCleanupTime"`
	LastResult        BatchResult `json:"lastResult"`
}

// GPSSyncStatus is the status payload of the GPS tracking service.
type GPSSyncStatus struct {
	LastSyncTime    *time.Time `json:"lastSyncTime"`
	LastRunID       string     `json:"lastRunId,omitempty"`
	SyncInProgress  bool       `json:"syncInProgress"`
	TrackedDevices  int        `json:"trackedDevices"`
	LastStored      int        `json:"lastStored"`
	LastSkipped     int        `json:"lastSkipped"`
}

// SchedulerStatus describes a scheduler and the sync operation it
// drives.
type SchedulerStatus struct {
	Name       string      `json:"name"`
	Running    bool        `json:"running"`
	Interval   string      `json:"interval"`
	NextRun    *time.Time  `json:"nextRun"`
	SyncStatus interface{} `json:"syncStatus"`
}

// AlarmTypeCount is one row of the distinct-alarm-types read query.
type AlarmTypeCount struct {
	Type   int     `json:"type"`
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

// DeviceAlarmCount identifies the device with the most recent alarms.
type DeviceAlarmCount struct {
	Terid      string `json:"terid"`
	AlarmCount int    `json:"alarmCount"`
}

// StatsResponse is the aggregate statistics payload of the read API.
type StatsResponse struct {
	TotalAlarms      int               `json:"totalAlarms"`
	TotalDevices     int               `json:"totalDevices"`
	RecentAlarms24h  int               `json:"recentAlarms24h"`
	AlarmTypeCounts  map[int]int       `json:"alarmTypeCounts"`
	MostActiveDevice *DeviceAlarmCount `json:"mostActiveDevice"`
	LastUpdated      time.Time         `json:"lastUpdated"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}
