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

// PositionAPI is the slice of the vendor client the GPS tracking needs.
type PositionAPI interface {
	GetLastPositions(ctx context.Context, terids []string) ([]models.PositionRecord, error)
}

// GPSTrackingService pulls the last known position of every device and
// replaces each device's latest-position row.
type GPSTrackingService struct {
	api       PositionAPI
	devices   repository.DeviceRepo
	positions repository.PositionRepo

	mu          sync.Mutex
	inProgress  bool
	lastSync    *time.Time
	lastRunID   string
	lastStored  int
	lastSkipped int
}

// NewGPSTrackingService creates a new GPSTrackingService
func NewGPSTrackingService(api PositionAPI, devices repository.DeviceRepo, positions repository.PositionRepo) *GPSTrackingService {
	return &GPSTrackingService{api: api, devices: devices, positions: positions}
}

// Name identifies the service in scheduler logs and status payloads.
func (s *GPSTrackingService) Name() string { return "gps" }

// Sync fetches last-known positions for the whole fleet in one call and
// stores each valid fix via replace-latest. Success means at least one
// record was stored; zero stored is treated as failure because the
// service cannot distinguish it from a dead feed.
func (s *GPSTrackingService) Sync() bool {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		observability.Warn("GPS sync already in progress, skipping")
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
	ctx := context.Background()

	devices, err := s.devices.GetAll(ctx)
	if err != nil {
		log.Errorf("Failed to read devices: %v", err)
		return false
	}
	if len(devices) == 0 {
		log.Warn("No devices found in database")
		return false
	}

	terids := make([]string, 0, len(devices))
	licenseByTerid := make(map[string]string, len(devices))
	for _, d := range devices {
		terids = append(terids, d.Terid)
		licenseByTerid[d.Terid] = d.CarLicense
	}

	log.Infof("Fetching GPS data for %d devices", len(terids))

	records, err := s.api.GetLastPositions(ctx, terids)
	if err != nil {
		log.Errorf("Failed to fetch GPS positions: %v", err)
		return false
	}
	if len(records) == 0 {
		log.Warn("No GPS data received from API")
		return false
	}

	stored, skipped := 0, 0
	for _, rec := range records {
		if s.storePosition(ctx, log, rec, licenseByTerid) {
			stored++
		} else {
			skipped++
		}
	}

	log.Infof("Stored GPS data for %d/%d devices", stored, len(records))

	now := time.Now()
	s.mu.Lock()
	s.lastSync = &now
	s.lastStored = stored
	s.lastSkipped = skipped
	s.mu.Unlock()

	return stored > 0
}

// storePosition validates and writes a single position record. A record
// with no usable fix is skipped without failing the cycle; numeric
// fields other than the coordinates are parsed permissively.
func (s *GPSTrackingService) storePosition(ctx context.Context, log *observability.Logger, rec models.PositionRecord, licenseByTerid map[string]string) bool {
	if rec.Terid == "" {
		log.Warn("Skipping GPS record with missing terid")
		return false
	}

	lat := models.ParseOptionalFloat(rec.GPSLat)
	lng := models.ParseOptionalFloat(rec.GPSLng)
	if lat == nil || lng == nil {
		log.Warnf("Invalid GPS coordinates for %s: lat=%q, lng=%q", rec.Terid, rec.GPSLat, rec.GPSLng)
		return false
	}
	if !models.ValidCoordinates(*lat, *lng) {
		log.Debugf("Skipping GPS data with unusable coordinates for %s: lat=%v, lng=%v", rec.Terid, *lat, *lng)
		return false
	}

	pos := models.Position{
		Terid:       rec.Terid,
		Latitude:    *lat,
		Longitude:   *lng,
		Altitude:    models.ParseOptionalInt(rec.Altitude),
		Speed:       models.ParseOptionalInt(rec.Speed),
		RecordSpeed: models.ParseOptionalInt(rec.RecordSpeed),
		Direction:   models.ParseOptionalInt(rec.Direction),
		State:       models.ParseOptionalInt(rec.State),
	}

	if license, ok := licenseByTerid[rec.Terid]; ok && license != "" {
		pos.CarLicense = &license
	}
	if validGPSTimestamp(rec.GPSTime) {
		t := rec.GPSTime
		pos.GPSTime = &t
	} else if rec.GPSTime != "" {
		log.Warnf("Invalid timestamp format for %s: %q", rec.Terid, rec.GPSTime)
	}

	if err := s.positions.Replace(ctx, pos); err != nil {
		log.Errorf("Failed to store GPS data for %s: %v", rec.Terid, err)
		return false
	}
	return true
}

// validGPSTimestamp checks the vendor's "YYYY-MM-DD HH:MM:SS" layout.
// Timestamps that do not parse are stored as absent, not fatal.
func validGPSTimestamp(s string) bool {
	if s == "" {
		return false
	}
	_, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
	return err == nil
}

// Status reports the last cycle outcome together with the stored
// position count. It never triggers a sync.
func (s *GPSTrackingService) Status() interface{} {
	count, err := s.positions.GetCount(context.Background())
	if err != nil {
		observability.Errorf("Failed to get position count: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return models.GPSSyncStatus{
		LastSyncTime:   s.lastSync,
		LastRunID:      s.lastRunID,
		SyncInProgress: s.inProgress,
		TrackedDevices: count,
		LastStored:     s.lastStored,
		LastSkipped:    s.lastSkipped,
	}
}
