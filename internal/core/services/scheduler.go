package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// maxCheckInterval bounds how long a due sync waits to be noticed.
const maxCheckInterval = time.Minute

// ScheduledSync is the schedule state of one target.
type ScheduledSync struct {
	SourceID    string
	NextRun     time.Time
	LastRun     time.Time
	LastSuccess time.Time
	LastError   string
	Running     bool
}

type scheduledTask struct {
	target *driving.SyncTarget
	state  ScheduledSync
}

// Scheduler re-syncs targets whose last sync is older than the interval.
// The first run of a target is scheduled from its persisted sync state, so
// a restart does not re-sync sources that are still fresh.
type Scheduler struct {
	orch     driving.IngestionOrchestrator
	states   driven.SyncStateStore
	interval time.Duration
	check    time.Duration
	now      func() time.Time
	onResult func(*domain.SyncResult)

	mu      sync.Mutex
	tasks   []*scheduledTask
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the time source.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithResultHandler receives every finished sync result.
func WithResultHandler(fn func(*domain.SyncResult)) SchedulerOption {
	return func(s *Scheduler) {
		s.onResult = fn
	}
}

// NewScheduler creates a scheduler. states may be nil, in which case every
// target is synced immediately on Start.
func NewScheduler(
	orch driving.IngestionOrchestrator,
	states driven.SyncStateStore,
	interval time.Duration,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		orch:     orch,
		states:   states,
		interval: interval,
		check:    min(interval, maxCheckInterval),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a target.
func (s *Scheduler) Add(target *driving.SyncTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &scheduledTask{
		target: target,
		state:  ScheduledSync{SourceID: target.Source.SourceID()},
	})
}

// Tasks returns a snapshot of the schedule.
func (s *Scheduler) Tasks() []ScheduledSync {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledSync, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.state
	}
	return out
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.initialiseTasks(ctx)
	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running syncs to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks schedules the first run of each target from its last sync.
func (s *Scheduler) initialiseTasks(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if !t.state.NextRun.IsZero() {
			continue
		}
		t.state.NextRun = s.now()
		if s.states == nil {
			continue
		}
		last, err := s.states.Get(ctx, t.state.SourceID)
		switch {
		case err == nil:
			t.state.LastRun = last.LastSync
			t.state.NextRun = last.LastSync.Add(s.interval)
		case !errors.Is(err, domain.ErrNotFound):
			logger.Warn("scheduler: failed to read sync state of %s: %v", t.state.SourceID, err)
		}
	}
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	// Check for due syncs immediately on startup
	s.checkAndRunDue(ctx)

	ticker := time.NewTicker(s.check)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDue(ctx)
		}
	}
}

// checkAndRunDue starts every sync that is due and not already running.
func (s *Scheduler) checkAndRunDue(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, t := range s.tasks {
		if t.state.Running {
			continue
		}
		if t.state.NextRun.IsZero() || !t.state.NextRun.After(now) {
			t.state.Running = true
			s.runTask(ctx, t)
		}
	}
}

// runTask executes a single sync in the background.
func (s *Scheduler) runTask(ctx context.Context, t *scheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		started := s.now()
		result, err := s.orch.Sync(ctx, t.target.Source, t.target.ChunkStore, t.target.DocumentStore)
		if err == nil && result != nil {
			err = result.Err
		}
		ended := s.now()

		s.mu.Lock()
		t.state.Running = false
		t.state.LastRun = started
		t.state.NextRun = ended.Add(s.interval)
		if err != nil {
			t.state.LastError = err.Error()
			logger.Warn("scheduler: sync of %s failed: %v", t.state.SourceID, err)
		} else {
			t.state.LastError = ""
			t.state.LastSuccess = ended
		}
		onResult := s.onResult
		s.mu.Unlock()

		if onResult != nil && result != nil {
			onResult(result)
		}
	}()
}
