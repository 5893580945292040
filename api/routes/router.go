package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/controllers"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/middleware"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
)

const metricsPath = "/metrics"

// OpsParams lists what the worker's operational endpoints need.
type OpsParams struct {
	Env      string
	Logger   *logger.Logger
	Deps     map[string]controllers.Pinger
	Sweep    controllers.SweepTrigger
	Gatherer prometheus.Gatherer
}

// NewOpsRouter serves health probes, Prometheus metrics and the manual sweep trigger.
func NewOpsRouter(params OpsParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger, metricsPath, "/health/live"),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(params.Env))
		r.Get("/ready", controllers.HealthReady(params.Env, params.Logger, params.Deps))
	})

	gatherer := params.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if params.Sweep != nil {
		r.Post("/ops/sweep", controllers.TriggerSweep(params.Sweep, params.Logger))
	}
	return r
}
