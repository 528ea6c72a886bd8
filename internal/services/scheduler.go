package services

import (
	"sync"
	"time"

	"github.com/fleetsync/server/internal/models"
	"github.com/fleetsync/server/internal/observability"
)

// Syncer is a periodic sync operation driven by a Scheduler. Sync
// reports per-cycle success as a boolean; failures never escape as
// panics from a well-behaved implementation, but the scheduler guards
// against them anyway.
type Syncer interface {
	Name() string
	Sync() bool
	Status() interface{}
}

// ConnectionValidator is implemented by syncers that can pre-flight
// their upstream connection before the scheduler starts.
type ConnectionValidator interface {
	ValidateConnection() bool
}

// Scheduler drives one Syncer on a fixed interval from its own
// goroutine. Start runs an immediate synchronous sync; the loop then
// waits interval-by-interval, surviving any error the sync operation
// produces.
type Scheduler struct {
	syncer      Syncer
	interval    time.Duration
	cooldown    time.Duration
	stopTimeout time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	nextRun time.Time
}

// NewScheduler creates a stopped scheduler for the given syncer.
func NewScheduler(syncer Syncer, interval time.Duration) *Scheduler {
	return &Scheduler{
		syncer:      syncer,
		interval:    interval,
		cooldown:    time.Minute,
		stopTimeout: 10 * time.Second,
	}
}

// Start transitions the scheduler to running, launches the interval
// loop, and performs one immediate synchronous sync so initial data is
// attempted before Start returns. Returns false if already running or
// if the syncer's connection pre-flight fails.
func (s *Scheduler) Start() bool {
	if v, ok := s.syncer.(ConnectionValidator); ok {
		if !v.ValidateConnection() {
			observability.Errorf("Cannot start %s scheduler: connection validation failed", s.syncer.Name())
			return false
		}
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		observability.Warnf("%s scheduler is already running", s.syncer.Name())
		return false
	}
	s.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	s.stopCh = stopCh
	s.doneCh = doneCh
	s.nextRun = time.Now().Add(s.interval)
	s.mu.Unlock()

	observability.Infof("Starting %s scheduler (interval: %s)", s.syncer.Name(), s.interval)
	go s.loop(stopCh, doneCh)

	observability.Infof("Performing initial %s sync...", s.syncer.Name())
	if !s.runOnce(stopCh) {
		observability.Warnf("Initial %s sync failed, scheduler will continue running", s.syncer.Name())
	}

	return true
}

// Stop signals the loop and waits up to stopTimeout for it to exit. The
// goroutine is abandoned, not killed, if it does not exit in time.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		observability.Warnf("%s scheduler is not running", s.syncer.Name())
		return false
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	observability.Infof("Stopping %s scheduler...", s.syncer.Name())

	select {
	case <-done:
		observability.Infof("%s scheduler stopped", s.syncer.Name())
		return true
	case <-time.After(s.stopTimeout):
		observability.Warnf("%s scheduler loop did not stop within %s", s.syncer.Name(), s.stopTimeout)
		return false
	}
}

// IsRunning reports whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status reports the scheduler state together with the wrapped sync
// operation's own status payload.
func (s *Scheduler) Status() models.SchedulerStatus {
	s.mu.Lock()
	running := s.running
	var nextRun *time.Time
	if running {
		n := s.nextRun
		nextRun = &n
	}
	s.mu.Unlock()

	return models.SchedulerStatus{
		Name:       s.syncer.Name(),
		Running:    running,
		Interval:   s.interval.String(),
		NextRun:    nextRun,
		SyncStatus: s.syncer.Status(),
	}
}

// ForceSync invokes the sync operation out-of-band. The interval clock
// is not reset.
func (s *Scheduler) ForceSync() bool {
	observability.Infof("Force %s sync requested", s.syncer.Name())
	return s.syncer.Sync()
}

// loop is bound to the channels of the Start call that launched it. A
// loop abandoned by a timed-out Stop must never observe the channels of
// a later Start, so it receives its own generation as arguments instead
// of reading the fields.
func (s *Scheduler) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-stopCh:
				return
			default:
			}
			s.mu.Lock()
			s.nextRun = time.Now().Add(s.interval)
			s.mu.Unlock()
			if s.runOnce(stopCh) {
				observability.Infof("Scheduled %s sync completed successfully", s.syncer.Name())
			} else {
				observability.Errorf("Scheduled %s sync failed", s.syncer.Name())
			}
		case <-stopCh:
			return
		}
	}
}

// runOnce invokes one sync cycle. A panic escaping the sync operation is
// caught and followed by an interruptible cooldown so the loop never
// dies on a sync-time error.
func (s *Scheduler) runOnce(stopCh chan struct{}) (ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ok = false
			recordSyncRun(s.syncer.Name(), false, time.Since(start))
			observability.Errorf("Panic in %s sync: %v", s.syncer.Name(), r)
			select {
			case <-time.After(s.cooldown):
			case <-stopCh:
			}
		}
	}()

	ok = s.syncer.Sync()
	recordSyncRun(s.syncer.Name(), ok, time.Since(start))
	return ok
}
