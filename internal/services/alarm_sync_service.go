package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetsync/server/internal/models"
	"github.com/fleetsync/server/internal/observability"
	"github.com/fleetsync/server/internal/repository"
)

// AlarmAPI is the slice of the vendor client the alarm sync needs.
type AlarmAPI interface {
	GetAlarmDetails(ctx context.Context, terids []string, start, end time.Time, types []int) ([]models.AlarmRecord, error)
}

// AlarmSyncConfig tunes the alarm sync service.
type AlarmSyncConfig struct {
	// Lookback is the trailing window re-queried each cycle. It should
	// exceed the sync interval; the store's dedup absorbs the overlap.
	Lookback time.Duration
	// BatchSize is the maximum number of devices per alarm query.
	BatchSize int
	// RetentionDays bounds how long alarms are kept.
	RetentionDays int
	// CleanupInterval is how often retention cleanup runs.
	CleanupInterval time.Duration
	// BatchDelay spaces consecutive batch queries to stay within API
	// rate expectations. Defaults to 500ms.
	BatchDelay time.Duration
}

// AlarmSyncService pulls alarms for all known devices over a sliding
// lookback window, batched to respect API limits.
type AlarmSyncService struct {
	api     AlarmAPI
	devices repository.DeviceRepo
	alarms  repository.AlarmRepo
	cfg     AlarmSyncConfig

	mu          sync.Mutex
	inProgress  bool
	lastSync    *time.Time
	lastRunID   string
	lastResult  models.BatchResult
	lastCleanup time.Time
}

// NewAlarmSyncService creates a new AlarmSyncService
func NewAlarmSyncService(api AlarmAPI, devices repository.DeviceRepo, alarms repository.AlarmRepo, cfg AlarmSyncConfig) *AlarmSyncService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 10 * time.Minute
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 500 * time.Millisecond
	}
	return &AlarmSyncService{api: api, devices: devices, alarms: alarms, cfg: cfg}
}

// Name identifies the service in scheduler logs and status payloads.
func (s *AlarmSyncService) Name() string { return "alarm" }

// Sync fetches alarms for every known device over the lookback window.
// Device batches fail independently; a failed batch counts its device
// total against the cycle and the loop continues. Returns overall cycle
// success.
func (s *AlarmSyncService) Sync() bool {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		observability.Warn("Alarm sync already in progress, skipping")
		return false
	}
	s.inProgress = true
	runID := uuid.New().String()
	s.lastRunID = runID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProgress = false
		s.mu.Unlock()
	}()

	log := observability.WithField("run_id", runID)
	log.Info("Starting alarm synchronization...")
	start := time.Now()
	ctx := context.Background()

	terids, err := s.devices.GetTerids(ctx)
	if err != nil {
		log.Errorf("Failed to read device terids: %v", err)
		return false
	}
	if len(terids) == 0 {
		log.Warn("No devices found in database for alarm monitoring")
		return true
	}

	log.Infof("Monitoring alarms for %d devices", len(terids))

	endTime := time.Now()
	startTime := endTime.Add(-s.cfg.Lookback)

	var result models.BatchResult
	totalAlarms := 0

	for i := 0; i < len(terids); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(terids) {
			end = len(terids)
		}
		batch := terids[i:end]
		batchNum := i/s.cfg.BatchSize + 1

		records, err := s.api.GetAlarmDetails(ctx, batch, startTime, endTime, nil)
		if err != nil {
			log.Errorf("Failed to fetch alarms for batch %d: %v", batchNum, err)
			result.Failed += len(batch)
			continue
		}

		if len(records) > 0 {
			alarms := make([]models.Alarm, 0, len(records))
			for _, rec := range records {
				alarms = append(alarms, models.NormalizeAlarm(rec))
			}
			batchResult := s.alarms.InsertBatch(ctx, alarms)
			totalAlarms += len(records)
			result.Add(batchResult)

			log.Debugf("Batch %d: %d alarms found, %d inserted, %d duplicates, %d failed",
				batchNum, len(records), batchResult.Inserted, batchResult.Duplicates, batchResult.Failed)
		} else {
			log.Debugf("Batch %d: No alarms found", batchNum)
		}

		if end < len(terids) {
			time.Sleep(s.cfg.BatchDelay)
		}
	}

	log.Infof("Alarm sync completed in %s: %d total alarms, %d inserted, %d duplicates, %d failed",
		time.Since(start).Round(time.Millisecond), totalAlarms, result.Inserted, result.Duplicates, result.Failed)

	now := time.Now()
	s.mu.Lock()
	s.lastSync = &now
	s.lastResult = result
	s.mu.Unlock()

	s.maybeCleanup(ctx)

	return withinFailureBudget(result.Failed, len(terids))
}

// maybeCleanup runs retention cleanup at most once per CleanupInterval.
func (s *AlarmSyncService) maybeCleanup(ctx context.Context) {
	s.mu.Lock()
	due := s.lastCleanup.IsZero() || time.Since(s.lastCleanup) >= s.cfg.CleanupInterval
	if due {
		s.lastCleanup = time.Now()
	}
	s.mu.Unlock()
	if !due {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	deleted, err := s.alarms.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		observability.Errorf("Failed to cleanup old alarms: %v", err)
		return
	}
	if deleted > 0 {
		observability.Infof("Cleaned up %d old alarm records", deleted)
	}
}

// SyncForDevice fetches and stores alarms for a single device over the
// given lookback, bypassing batching. Used for ad-hoc refresh.
func (s *AlarmSyncService) SyncForDevice(terid string, lookbackHours int) bool {
	if lookbackHours <= 0 {
		lookbackHours = 1
	}

	ctx := context.Background()
	endTime := time.Now()
	startTime := endTime.Add(-time.Duration(lookbackHours) * time.Hour)

	records, err := s.api.GetAlarmDetails(ctx, []string{terid}, startTime, endTime, nil)
	if err != nil {
		observability.Errorf("Failed to fetch alarms for device %s: %v", terid, err)
		return false
	}
	if len(records) == 0 {
		observability.Debugf("No alarms found for device %s", terid)
		return true
	}

	alarms := make([]models.Alarm, 0, len(records))
	for _, rec := range records {
		alarms = append(alarms, models.NormalizeAlarm(rec))
	}
	result := s.alarms.InsertBatch(ctx, alarms)

	observability.Infof("Device %s: %d alarms found, %d inserted, %d duplicates, %d failed",
		terid, len(records), result.Inserted, result.Duplicates, result.Failed)

	return result.Failed == 0
}

// Status reports the last cycle outcome together with store counters and
// the configuration echo. It never triggers a sync.
func (s *AlarmSyncService) Status() interface{} {
	ctx := context.Background()
	deviceCount, err := s.devices.GetCount(ctx)
	if err != nil {
		observability.Errorf("Failed to get device count: %v", err)
	}
	alarmCount, err := s.alarms.GetCount(ctx)
	if err != nil {
		observability.Errorf("Failed to get alarm count: %v", err)
	}
	lastAlarmUpdate, err := s.alarms.GetLastUpdateTime(ctx)
	if err != nil {
		observability.Errorf("Failed to get alarm last update time: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastCleanup *time.Time
	if !s.lastCleanup.IsZero() {
		c := s.lastCleanup
		lastCleanup = &c
	}

	return models.AlarmSyncStatus{
		LastSyncTime:     s.lastSync,
		LastRunID:        s.lastRunID,
		SyncInProgress:   s.inProgress,
		DevicesMonitored: deviceCount,
		TotalAlarms:      alarmCount,
		LastAlarmUpdate:  lastAlarmUpdate,
		LookbackMinutes:  int(s.cfg.Lookback.Minutes()),
		BatchSize:        s.cfg.BatchSize,
		RetentionDays:    s.cfg.RetentionDays,
		LastCleanupTime:  lastCleanup,
		LastResult:       s.lastResult,
	}
}
