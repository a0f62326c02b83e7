// Package schedule runs pipeline stages on a cron timetable for unattended
// refreshes.
package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"

	"github.com/vietdata/tourism-pipeline/internal/observability"
)

// Job is one named unit of scheduled work.
type Job struct {
	Name string
	Run  func() error
}

// Scheduler wraps a cron runner with logging and stage timing.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New builds an empty scheduler.
func New(logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{cron: cron.New(), logger: logger, metrics: metrics}
}

// Add registers a job under a cron spec ("@daily", "@every 6h", or the
// classic field syntax).
func (s *Scheduler) Add(spec string, job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %q has no work", job.Name)
	}
	err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Info("scheduled job starting", "job", job.Name)
		if err := job.Run(); err != nil {
			s.logger.Error("scheduled job failed", "job", job.Name, "error", err)
			return
		}
		elapsed := time.Since(start)
		s.metrics.StageDuration.WithLabelValues(job.Name).Observe(elapsed.Seconds())
		s.logger.Info("scheduled job finished", "job", job.Name, "elapsed", elapsed)
	})
	if err != nil {
		return fmt.Errorf("schedule %q on %q: %w", job.Name, spec, err)
	}
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the timetable. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}
