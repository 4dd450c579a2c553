package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"PubmedLoader/internal/ports"
)

// Scheduler wires a recurring driver with the pipeline so new update files get picked up.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	once  sync.Once
	fatal chan error
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger, fatal: make(chan error, 1)}
}

// Start registers the pipeline with the provided scheduler. The first run that fails with a
// fatal error is delivered on Err and every later trigger is ignored.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	var failed bool
	job := func(trigger time.Time) {
		if failed {
			s.logger.Warn("scheduled run skipped after fatal error", "trigger", trigger)
			return
		}

		report, err := s.pipeline.Run(ctx)
		if err != nil {
			failed = true
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
			s.once.Do(func() { s.fatal <- err })
			return
		}
		s.logger.Info("scheduled run finished",
			"trigger", trigger,
			"files", report.Totals.Files,
			"articles", report.Totals.Articles,
		)
	}

	return s.driver.Start(ctx, job)
}

// Err receives the fatal error that stopped scheduled runs.
func (s *Scheduler) Err() <-chan error {
	return s.fatal
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
