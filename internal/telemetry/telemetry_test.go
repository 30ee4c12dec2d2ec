package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/superres/internal/metriclog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record() metriclog.Record {
	return metriclog.Record{
		Iteration:  100,
		ValError:   0.02,
		EvalError:  0.03,
		Benchmarks: []metriclog.BenchmarkResult{{Name: "Set5", PSNR: 30.1, SSIM: 0.88}},
	}
}

func TestMetricsPublish(t *testing.T) {
	m := NewMetrics()
	require.NoError(t, m.Publish(context.Background(), record()))
	require.NoError(t, m.Publish(context.Background(), record()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EvaluationsTotal))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.Iteration))
	assert.Equal(t, 0.02, testutil.ToFloat64(m.ValError))
	assert.Equal(t, 30.1, testutil.ToFloat64(m.BenchmarkPSNR.WithLabelValues("Set5")))
	assert.Equal(t, 0.88, testutil.ToFloat64(m.BenchmarkSSIM.WithLabelValues("Set5")))
}

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	m.ObserveStep(20*time.Millisecond, 0.5, 7, 2)
	m.ObserveCheckpoint(time.Second)

	assert.Equal(t, 0.5, testutil.ToFloat64(m.TrainLoss))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Iteration))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Epoch))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepDurationSeconds))

	count, err := testutil.GatherAndCount(m.Registry, "superres_checkpoint_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatusServerRoutes(t *testing.T) {
	m := NewMetrics()
	require.NoError(t, m.Publish(context.Background(), record()))
	rec := record()
	s := NewStatusServer(":0", m, func() Snapshot {
		return Snapshot{State: "running", Iteration: 100, Epoch: 1, LastEvaluation: &rec}
	}, slog.New(slog.DiscardHandler))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "running", snap.State)
	assert.Equal(t, int64(100), snap.LastEvaluation.Iteration)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `superres_benchmark_psnr_db{benchmark="Set5"} 30.1`)
}

func TestStatusServerStartShutdown(t *testing.T) {
	s := NewStatusServer("127.0.0.1:0", NewMetrics(), func() Snapshot { return Snapshot{} }, slog.New(slog.DiscardHandler))
	addr, err := s.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "ok"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
