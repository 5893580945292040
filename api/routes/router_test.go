package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/controllers"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/responses"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/cron"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/metrics"
)

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

type sweepStub struct {
	result cron.SweepResult
	err    error
	calls  int
}

func (s *sweepStub) Trigger(context.Context) (cron.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

func newTestRouter(deps map[string]controllers.Pinger, sweep controllers.SweepTrigger) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	metrics.NewSweepMetrics(reg).IncFinalized()
	return NewOpsRouter(OpsParams{
		Env:      "test",
		Logger:   logger.New(logger.Options{ServiceName: "routes-test", Output: &bytes.Buffer{}}),
		Deps:     deps,
		Sweep:    sweep,
		Gatherer: reg,
	}), reg
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestRouter(map[string]controllers.Pinger{"db": pingStub{}, "redis": pingStub{}}, nil)

	w := serve(h, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", w.Header().Get("X-Pedidos-Env"))

	w = serve(h, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)
}

func TestReadyFailsWhenDependencyDown(t *testing.T) {
	h, _ := newTestRouter(map[string]controllers.Pinger{
		"db":    pingStub{},
		"redis": pingStub{err: errors.New("connection refused")},
	}, nil)

	w := serve(h, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body responses.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeDependency), body.Error.Code)
	details, ok := body.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connection refused", details["redis"])
	assert.Equal(t, "ok", details["db"])
}

func TestMetricsEndpointServesGatherer(t *testing.T) {
	h, _ := newTestRouter(nil, nil)

	w := serve(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "sweep_orders_total"))
}

func TestSweepTrigger(t *testing.T) {
	sweep := &sweepStub{result: cron.SweepResult{Processed: 3, Finalized: 2, Errors: 1}}
	h, _ := newTestRouter(nil, sweep)

	w := serve(h, http.MethodPost, "/ops/sweep")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data cron.SweepResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, sweep.result, body.Data)

	w = serve(h, http.MethodGet, "/ops/sweep")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, 1, sweep.calls)
}

func TestSweepTriggerLocked(t *testing.T) {
	sweep := &sweepStub{err: pkgerrors.New(pkgerrors.CodeConflict, "a zero-value sweep is already running")}
	h, _ := newTestRouter(nil, sweep)

	w := serve(h, http.MethodPost, "/ops/sweep")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSweepRouteAbsentWithoutTrigger(t *testing.T) {
	h, _ := newTestRouter(nil, nil)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPost, "/ops/sweep").Code)
}
