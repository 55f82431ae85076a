package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs RefreshAll on a cron schedule.
type Scheduler struct {
	service  *Service
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler for the standard cron expression
// schedule. An empty schedule makes Start a no-op.
func NewScheduler(service *Service, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		service:  service,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "discovery.scheduler"),
	}
}

// Start schedules periodic refreshes and stops them when ctx is done.
//
// Common cron expressions:
//   - "0 */6 * * *"  - Every 6 hours
//   - "*/30 * * * *" - Every 30 minutes
//   - "0 4 * * *"    - Daily at 4 AM
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Debug("discovery schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule model refresh: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("discovery scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	s.logger.Info("starting scheduled model refresh")

	updated, failed := 0, 0
	for _, r := range s.service.RefreshAll(ctx, "") {
		if r.Updated {
			updated++
		} else {
			failed++
		}
	}

	s.logger.Info("scheduled model refresh completed", "updated", updated, "failed", failed)
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("discovery scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled refresh time, or nil.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
