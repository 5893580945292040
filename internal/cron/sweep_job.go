package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/orders"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/metrics"
)

const (
	SweepJobName     = "zero-value-sweep"
	defaultBatchSize = 500
	lastSweepMarker  = "last-sweep"
	markerTTL        = 30 * 24 * time.Hour
)

type sweepOrders interface {
	ZeroValueCandidates(ctx context.Context, after *orders.SweepCandidate, limit int) ([]orders.SweepCandidate, error)
	AutoFinalizeZeroValue(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (bool, error)
}

type markerStore interface {
	MarkerKey(name string) string
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ZeroValueSweepJobParams configure the zero-value finalize sweep.
type ZeroValueSweepJobParams struct {
	Logger    *logger.Logger
	Orders    sweepOrders
	Actor     orders.Actor
	BatchSize int
	Metrics   *metrics.SweepMetrics
	// Markers, when set, receives the completion time of each sweep.
	Markers markerStore
}

// SweepResult counts the outcome of one sweep run.
type SweepResult struct {
	Processed int `json:"processed"`
	Finalized int `json:"finalized"`
	Errors    int `json:"errors"`
}

// ZeroValueSweepJob finalizes orders in the pricing and payment phases whose
// final value is effectively zero.
type ZeroValueSweepJob struct {
	logg      *logger.Logger
	orders    sweepOrders
	actor     orders.Actor
	batchSize int
	metrics   *metrics.SweepMetrics
	markers   markerStore
	now       func() time.Time
}

// NewZeroValueSweepJob builds the sweep job. The actor is the system user resolved
// at startup and is passed on every finalize call.
func NewZeroValueSweepJob(params ZeroValueSweepJobParams) (*ZeroValueSweepJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Actor.UserID == uuid.Nil {
		return nil, fmt.Errorf("system actor required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &ZeroValueSweepJob{
		logg:      params.Logger,
		orders:    params.Orders,
		actor:     params.Actor,
		batchSize: batch,
		metrics:   params.Metrics,
		markers:   params.Markers,
		now:       time.Now,
	}, nil
}

func (j *ZeroValueSweepJob) Name() string { return SweepJobName }

// Run is the scheduled entry point. Per-order failures are counted, not returned.
func (j *ZeroValueSweepJob) Run(ctx context.Context) error {
	_, err := j.Trigger(ctx)
	return err
}

// Trigger runs one sweep and reports its counts. The error is set only when the
// candidate scan itself fails.
func (j *ZeroValueSweepJob) Trigger(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	var errs []error
	var after *orders.SweepCandidate

	for {
		candidates, err := j.orders.ZeroValueCandidates(ctx, after, j.batchSize)
		if err != nil {
			return result, fmt.Errorf("list sweep candidates: %w", err)
		}
		for _, candidate := range candidates {
			result.Processed++
			finalized, err := j.finalize(ctx, candidate)
			if err != nil {
				result.Errors++
				errs = append(errs, err)
				continue
			}
			if finalized {
				result.Finalized++
			}
		}
		if len(candidates) < j.batchSize {
			break
		}
		last := candidates[len(candidates)-1]
		after = &last
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": result.Processed,
		"finalized": result.Finalized,
		"errors":    result.Errors,
	})
	if err := multierr.Combine(errs...); err != nil {
		j.logg.Error(logCtx, "zero-value sweep finished with failures", err)
	} else {
		j.logg.Info(logCtx, "zero-value sweep complete")
	}
	j.mark(ctx)
	return result, nil
}

// finalize re-validates and finalizes one order in its own transaction.
func (j *ZeroValueSweepJob) finalize(ctx context.Context, candidate orders.SweepCandidate) (bool, error) {
	orderCtx := j.logg.WithOrderID(ctx, candidate.ID.String())
	finalized, err := j.orders.AutoFinalizeZeroValue(orderCtx, j.actor, candidate.ID)
	switch {
	case err != nil:
		j.metrics.IncFailed()
		failCtx := j.logg.WithField(orderCtx, "error_dump", pkgerrors.Dump(err))
		j.logg.Error(failCtx, "auto finalize failed", err)
		return false, fmt.Errorf("order %s: %w", candidate.OrderNumber, err)
	case finalized:
		j.metrics.IncFinalized()
		j.logg.Info(orderCtx, "order auto finalized")
	default:
		j.metrics.IncSkipped()
		j.logg.Debug(orderCtx, "order changed since scan; skipped")
	}
	return finalized, nil
}

func (j *ZeroValueSweepJob) mark(ctx context.Context) {
	if j.markers == nil {
		return
	}
	stamp := j.now().UTC().Format(time.RFC3339)
	if err := j.markers.Set(ctx, j.markers.MarkerKey(lastSweepMarker), stamp, markerTTL); err != nil {
		j.logg.Warn(ctx, "failed to record sweep marker")
	}
}

// ManualSweep runs the zero-value sweep on demand under the lock the schedule uses.
type ManualSweep struct {
	service *Service
	job     *ZeroValueSweepJob
}

func NewManualSweep(service *Service, job *ZeroValueSweepJob) (*ManualSweep, error) {
	if service == nil {
		return nil, fmt.Errorf("cron service required")
	}
	if job == nil {
		return nil, fmt.Errorf("sweep job required")
	}
	return &ManualSweep{service: service, job: job}, nil
}

// Trigger returns a CONFLICT error when another sweep holds the lock.
func (m *ManualSweep) Trigger(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	ran, err := m.service.Exclusive(ctx, func(ctx context.Context) error {
		var err error
		result, err = m.job.Trigger(ctx)
		return err
	})
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "zero-value sweep failed")
	}
	if !ran {
		return result, pkgerrors.New(pkgerrors.CodeConflict, "a zero-value sweep is already running")
	}
	return result, nil
}
