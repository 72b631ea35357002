package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ReviewAspects/internal/ports"
)

// Scheduler wires the cron driver with the incremental pass.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   zerolog.Logger
}

// NewScheduler returns a helper to start/stop recurring passes.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger zerolog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info().Time("trigger", trigger).Msg("scheduled pass started")
		if _, err := s.pipeline.RunIncrementalPass(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled pass failed")
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
