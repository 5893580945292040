package cron

import (
	"context"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/metrics"
)

const defaultSchedule = "0 3 * * *"

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Schedule is a standard five-field cron expression evaluated in Location.
	Schedule string
	Location *time.Location
}

// Service executes registered cron jobs on a cron schedule.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	schedule string
	cron     *robfig.Cron
}

// NewService builds a cron service. The schedule is parsed up front so a bad
// expression fails at startup.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	schedule := params.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	if _, err := robfig.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: schedule,
		cron:     robfig.New(robfig.WithLocation(loc)),
	}, nil
}

// Run schedules the registered jobs and blocks until the context is canceled.
// A run already in progress is allowed to finish.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
	}); err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}
	s.cron.Start()
	logCtx := s.logg.WithField(ctx, "schedule", s.schedule)
	s.logg.Info(logCtx, "cron schedule started")

	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// RunOnce runs every registered job once under the lock.
func (s *Service) RunOnce(ctx context.Context) error {
	ran, err := s.Exclusive(ctx, func(ctx context.Context) error {
		s.logg.Info(ctx, "scheduled run starting")
		for _, job := range s.registry.Jobs() {
			s.runJob(ctx, job)
		}
		s.logg.Info(ctx, "scheduled run complete")
		return nil
	})
	if err != nil {
		return err
	}
	if !ran {
		s.metrics.IncLockSkipped()
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
	}
	return nil
}

// Exclusive runs fn while holding the lock. It reports false without calling fn
// when another holder owns the lock.
func (s *Service) Exclusive(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		return false, nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()
	return true, fn(ctx)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	finished := time.Now()
	duration := finished.Sub(start)
	s.metrics.ObserveRun(job.Name(), duration, finished, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}
