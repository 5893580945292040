package controllers

import (
	"context"
	"net/http"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/responses"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/cron"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
)

type SweepTrigger interface {
	Trigger(ctx context.Context) (cron.SweepResult, error)
}

// TriggerSweep runs the zero-value sweep and returns its counts.
func TriggerSweep(trigger SweepTrigger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithJob(ctx, cron.SweepJobName)
			logg.Info(ctx, "manual sweep requested")
		}
		result, err := trigger.Trigger(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
