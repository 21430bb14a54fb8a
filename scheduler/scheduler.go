// Package scheduler runs the background housekeeping of the dermacare API: a periodic
// sweep of the upload directory for files a crashed request left behind.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/giygas/dermacare-api/interfaces"
	"github.com/giygas/dermacare-api/logging"
	"github.com/giygas/dermacare-api/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler sweeps stale uploads on a fixed interval
type Scheduler struct {
	store     interfaces.UploadSweeper
	interval  time.Duration
	maxAge    time.Duration
	scheduler *gocron.Scheduler

	mu      sync.RWMutex
	lastRun time.Time
}

// NewScheduler creates a scheduler that removes uploads older than maxAge every interval
func NewScheduler(store interfaces.UploadSweeper, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		interval:  interval,
		maxAge:    maxAge,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start performs an initial sweep and schedules the following ones
func (s *Scheduler) Start() error {
	// Initial sweep
	if err := s.sweep(); err != nil {
		logging.Error("Failed to perform initial upload sweep", "error", err)
		return fmt.Errorf("initial upload sweep failed: %w", err)
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(func() {
		if err := s.sweep(); err != nil {
			logging.Error("Failed to sweep uploads", "error", err)
		}
	})

	if err != nil {
		logging.Error("Failed to schedule upload sweep", "error", err)
		return fmt.Errorf("failed to schedule upload sweep: %w", err)
	}

	s.scheduler.StartAsync()

	logging.Info("Upload sweeper started", "interval", s.interval.String(), "max_age", s.maxAge.String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// LastRun returns when the last successful sweep finished
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

func (s *Scheduler) sweep() error {
	start := time.Now()

	removed, err := s.store.Sweep(s.maxAge)
	if err != nil {
		return err
	}

	metrics.UploadsSweptTotal.Add(float64(removed))

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	if removed > 0 {
		logging.Warn("Removed stale uploads", "count", removed, "duration", time.Since(start).String())
	} else {
		logging.Debug("Upload sweep found nothing to remove")
	}

	return nil
}
