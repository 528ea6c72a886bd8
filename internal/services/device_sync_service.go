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

// DeviceAPI is the slice of the vendor client the device sync needs.
type DeviceAPI interface {
	Authenticate(ctx context.Context) error
	GetDevices(ctx context.Context) ([]models.DeviceRecord, error)
}

// DeviceSyncService pulls the full device roster each cycle and upserts
// it into the store.
type DeviceSyncService struct {
	api     DeviceAPI
	devices repository.DeviceRepo

	mu         sync.Mutex
	inProgress bool
	lastSync   *time.Time
	lastRunID  string
	lastResult models.BatchResult
}

// NewDeviceSyncService creates a new DeviceSyncService
func NewDeviceSyncService(api DeviceAPI, devices repository.DeviceRepo) *DeviceSyncService {
	return &DeviceSyncService{api: api, devices: devices}
}

// Name identifies the service in scheduler logs and status payloads.
func (s *DeviceSyncService) Name() string { return "device" }

// withinFailureBudget is the shared bulk-sync success rule: a cycle
// tolerates a small fraction of per-record failures without flagging the
// whole cycle as broken.
func withinFailureBudget(failed, total int) bool {
	return failed == 0 || float64(failed) < float64(total)*0.1
}

// Sync fetches the device roster and upserts it. A fetch failure fails
// the cycle; an empty roster does not. Returns overall cycle success.
func (s *DeviceSyncService) Sync() bool {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		observability.Warn("Device sync already in progress, skipping")
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
	log.Info("Starting device synchronization...")
	start := time.Now()
	ctx := context.Background()

	records, err := s.api.GetDevices(ctx)
	if err != nil {
		log.Errorf("Failed to fetch devices from API: %v", err)
		return false
	}

	if len(records) == 0 {
		log.Warn("No devices returned from API")
		s.finish(time.Now(), models.BatchResult{})
		return true
	}

	devices := make([]models.Device, 0, len(records))
	for _, rec := range records {
		devices = append(devices, models.NormalizeDevice(rec))
	}

	result := s.devices.UpsertBatch(ctx, devices)
	total := result.Total()

	log.Infof("Device sync completed in %s: %d total, %d inserted, %d updated, %d failed",
		time.Since(start).Round(time.Millisecond), total, result.Inserted, result.Updated, result.Failed)

	s.finish(time.Now(), result)
	return withinFailureBudget(result.Failed, total)
}

func (s *DeviceSyncService) finish(at time.Time, result models.BatchResult) {
	s.mu.Lock()
	s.lastSync = &at
	s.lastResult = result
	s.mu.Unlock()
}

// Status reports the last cycle outcome together with store counters.
// It never triggers a sync.
func (s *DeviceSyncService) Status() interface{} {
	ctx := context.Background()
	count, err := s.devices.GetCount(ctx)
	if err != nil {
		observability.Errorf("Failed to get device count: %v", err)
	}
	lastDBUpdate, err := s.devices.GetLastUpdateTime(ctx)
	if err != nil {
		observability.Errorf("Failed to get device last update time: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DeviceSyncStatus{
		LastSyncTime:   s.lastSync,
		LastRunID:      s.lastRunID,
		SyncInProgress: s.inProgress,
		TotalDevices:   count,
		LastDBUpdate:   lastDBUpdate,
		LastResult:     s.lastResult,
	}
}

// ValidateConnection performs only the authentication step. Used as a
// pre-flight gate before the scheduler starts.
func (s *DeviceSyncService) ValidateConnection() bool {
	if err := s.api.Authenticate(context.Background()); err != nil {
		observability.Errorf("API validation failed: %v", err)
		return false
	}
	return true
}
