package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
)

// Scheduler drives the pipeline from a recurring trigger and from manual
// requests. At most one run is in flight at a time.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
	running  atomic.Bool
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// RunNow executes the pipeline unless a run is already in progress, in which
// case it returns domain.ErrRunInProgress.
func (s *Scheduler) RunNow(ctx context.Context) (domain.Payload, error) {
	if s.pipeline == nil {
		return domain.Payload{}, nil
	}
	if !s.running.CompareAndSwap(false, true) {
		return domain.Payload{}, domain.ErrRunInProgress
	}
	defer s.running.Store(false)

	return s.pipeline.Run(ctx)
}

// Start registers the pipeline with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, err := s.RunNow(ctx)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			s.logger.Info("scheduled run skipped", "trigger", trigger, "reason", "previous run still active")
		case err != nil:
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
