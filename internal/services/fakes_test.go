package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetsync/server/internal/models"
	"github.com/fleetsync/server/internal/repository"
)

// fakeDeviceRepo is an in-memory DeviceRepo with injectable errors.
type fakeDeviceRepo struct {
	mu         sync.Mutex
	devices    map[string]models.Device
	getAllErr  error
	teridsErr  error
	upsertFail map[string]bool
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{
		devices:    make(map[string]models.Device),
		upsertFail: make(map[string]bool),
	}
}

func (r *fakeDeviceRepo) seed(terids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range terids {
		r.devices[id] = models.Device{Terid: id, CarLicense: "LIC-" + id}
	}
}

func (r *fakeDeviceRepo) Upsert(ctx context.Context, d models.Device) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Terid == "" || r.upsertFail[d.Terid] {
		return false, fmt.Errorf("upsert rejected")
	}
	_, exists := r.devices[d.Terid]
	r.devices[d.Terid] = d
	return !exists, nil
}

func (r *fakeDeviceRepo) UpsertBatch(ctx context.Context, devices []models.Device) models.BatchResult {
	var result models.BatchResult
	for _, d := range devices {
		inserted, err := r.Upsert(ctx, d)
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

func (r *fakeDeviceRepo) GetAll(ctx context.Context) ([]*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getAllErr != nil {
		return nil, r.getAllErr
	}
	out := make([]*models.Device, 0, len(r.devices))
	for _, d := range r.devices {
		dc := d
		out = append(out, &dc)
	}
	return out, nil
}

func (r *fakeDeviceRepo) GetByTerid(ctx context.Context, terid string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[terid]; ok {
		return &d, nil
	}
	return nil, nil
}

func (r *fakeDeviceRepo) GetTerids(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.teridsErr != nil {
		return nil, r.teridsErr
	}
	out := make([]string, 0, len(r.devices))
	for id := range r.devices {
		out = append(out, id)
	}
	return out, nil
}

func (r *fakeDeviceRepo) GetCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices), nil
}

func (r *fakeDeviceRepo) GetLastUpdateTime(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

// fakeAlarmRepo is an in-memory AlarmRepo deduplicating on the same
// tuple as the real store.
type fakeAlarmRepo struct {
	mu        sync.Mutex
	seen      map[string]bool
	alarms    []models.Alarm
	deleted   int64
	cutoffs   []time.Time
	deleteErr error
}

func newFakeAlarmRepo() *fakeAlarmRepo {
	return &fakeAlarmRepo{seen: make(map[string]bool)}
}

func alarmKey(a models.Alarm) string {
	return fmt.Sprintf("%s|%s|%d|%s", a.Terid, a.GPSTime, a.AlarmType, a.Content)
}

func (r *fakeAlarmRepo) Insert(ctx context.Context, a models.Alarm) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.Terid == "" || a.GPSTime == "" {
		return false, fmt.Errorf("insert rejected")
	}
	key := alarmKey(a)
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	r.alarms = append(r.alarms, a)
	return true, nil
}

func (r *fakeAlarmRepo) InsertBatch(ctx context.Context, alarms []models.Alarm) models.BatchResult {
	var result models.BatchResult
	for _, a := range alarms {
		inserted, err := r.Insert(ctx, a)
		switch {
		case err != nil:
			result.Failed++
		case inserted:
			result.Inserted++
		default:
			result.Duplicates++
		}
	}
	return result
}

func (r *fakeAlarmRepo) GetByID(ctx context.Context, id int64) (*models.Alarm, error) {
	return nil, nil
}

func (r *fakeAlarmRepo) GetByTerid(ctx context.Context, terid string, limit int) ([]*models.Alarm, error) {
	return nil, nil
}

func (r *fakeAlarmRepo) GetFiltered(ctx context.Context, filter repository.AlarmFilter) ([]*models.Alarm, error) {
	return nil, nil
}

func (r *fakeAlarmRepo) GetDistinctTypes(ctx context.Context) ([]models.AlarmTypeCount, error) {
	return nil, nil
}

func (r *fakeAlarmRepo) GetCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alarms), nil
}

func (r *fakeAlarmRepo) GetLastUpdateTime(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

func (r *fakeAlarmRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.deleted, nil
}

// fakePositionRepo is an in-memory PositionRepo keeping one row per
// terid.
type fakePositionRepo struct {
	mu         sync.Mutex
	positions  map[string]models.Position
	replaceErr error
}

func newFakePositionRepo() *fakePositionRepo {
	return &fakePositionRepo{positions: make(map[string]models.Position)}
}

func (r *fakePositionRepo) Replace(ctx context.Context, pos models.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.positions[pos.Terid] = pos
	return nil
}

func (r *fakePositionRepo) GetAll(ctx context.Context) ([]*models.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Position, 0, len(r.positions))
	for _, p := range r.positions {
		pc := p
		out = append(out, &pc)
	}
	return out, nil
}

func (r *fakePositionRepo) GetByTerid(ctx context.Context, terid string) (*models.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.positions[terid]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *fakePositionRepo) GetCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positions), nil
}

func (r *fakePositionRepo) GetLastUpdateTime(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

// fakeDeviceAPI implements DeviceAPI with canned responses.
type fakeDeviceAPI struct {
	mu      sync.Mutex
	records []models.DeviceRecord
	err     error
	authErr error
	block   chan struct{}
}

func (a *fakeDeviceAPI) Authenticate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authErr
}

func (a *fakeDeviceAPI) GetDevices(ctx context.Context) ([]models.DeviceRecord, error) {
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.records, a.err
}

// fakeAlarmAPI implements AlarmAPI, recording the batches it was asked
// for.
type fakeAlarmAPI struct {
	mu       sync.Mutex
	byTerid  map[string][]models.AlarmRecord
	errTerid map[string]error
	batches  [][]string
	windows  [][2]time.Time
}

func newFakeAlarmAPI() *fakeAlarmAPI {
	return &fakeAlarmAPI{
		byTerid:  make(map[string][]models.AlarmRecord),
		errTerid: make(map[string]error),
	}
}

func (a *fakeAlarmAPI) GetAlarmDetails(ctx context.Context, terids []string, start, end time.Time, types []int) ([]models.AlarmRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, append([]string(nil), terids...))
	a.windows = append(a.windows, [2]time.Time{start, end})

	var out []models.AlarmRecord
	for _, id := range terids {
		if err, ok := a.errTerid[id]; ok {
			return nil, err
		}
		out = append(out, a.byTerid[id]...)
	}
	return out, nil
}

// fakePositionAPI implements PositionAPI with canned responses.
type fakePositionAPI struct {
	mu      sync.Mutex
	records []models.PositionRecord
	err     error
}

func (a *fakePositionAPI) GetLastPositions(ctx context.Context, terids []string) ([]models.PositionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.records, a.err
}
