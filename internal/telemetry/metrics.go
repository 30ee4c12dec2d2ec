// Package telemetry exposes the state of a training run: Prometheus metrics
// on a private registry and an optional HTTP status server.
//
// All metric operations are thread-safe via Prometheus's internal locking.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/born-ml/superres/internal/metriclog"
)

// Namespace for all metrics.
const metricsNamespace = "superres"

// Metrics holds the Prometheus collectors of a run.
type Metrics struct {
	Registry *prometheus.Registry

	// Iteration is the current training iteration.
	Iteration prometheus.Gauge
	// Epoch is the current epoch.
	Epoch prometheus.Gauge
	// TrainLoss is the loss of the latest training batch.
	TrainLoss prometheus.Gauge
	// ValError and EvalError are the latest evaluator outputs.
	ValError  prometheus.Gauge
	EvalError prometheus.Gauge
	// BenchmarkPSNR and BenchmarkSSIM are labelled by benchmark.
	BenchmarkPSNR *prometheus.GaugeVec
	BenchmarkSSIM *prometheus.GaugeVec
	// EvaluationsTotal counts completed evaluations.
	EvaluationsTotal prometheus.Counter
	// StepDurationSeconds measures one forward/loss/optimize step.
	StepDurationSeconds prometheus.Histogram
	// CheckpointDurationSeconds measures one checkpoint save.
	CheckpointDurationSeconds prometheus.Histogram
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: metricsNamespace, Name: name, Help: help})
	}

	return &Metrics{
		Registry:  reg,
		Iteration: gauge("iteration", "Current training iteration"),
		Epoch:     gauge("epoch", "Current training epoch"),
		TrainLoss: gauge("train_loss", "Loss of the latest training batch"),
		ValError:  gauge("val_error", "Latest validation error"),
		EvalError: gauge("eval_error", "Latest eval error"),
		BenchmarkPSNR: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "benchmark",
			Name:      "psnr_db",
			Help:      "Latest mean PSNR by benchmark",
		}, []string{"benchmark"}),
		BenchmarkSSIM: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "benchmark",
			Name:      "ssim",
			Help:      "Latest mean SSIM by benchmark",
		}, []string{"benchmark"}),
		EvaluationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "evaluations_total",
			Help:      "Completed periodic evaluations",
		}),
		StepDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of one training step",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		CheckpointDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "checkpoint_duration_seconds",
			Help:      "Duration of one checkpoint save",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 6),
		}),
	}
}

// ObserveStep records one training step.
func (m *Metrics) ObserveStep(d time.Duration, loss float64, iteration int64, epoch int) {
	m.StepDurationSeconds.Observe(d.Seconds())
	m.TrainLoss.Set(loss)
	m.Iteration.Set(float64(iteration))
	m.Epoch.Set(float64(epoch))
}

// ObserveCheckpoint records one checkpoint save.
func (m *Metrics) ObserveCheckpoint(d time.Duration) {
	m.CheckpointDurationSeconds.Observe(d.Seconds())
}

// Publish implements metriclog.Publisher.
func (m *Metrics) Publish(_ context.Context, rec metriclog.Record) error {
	m.EvaluationsTotal.Inc()
	m.Iteration.Set(float64(rec.Iteration))
	m.ValError.Set(rec.ValError)
	m.EvalError.Set(rec.EvalError)
	for _, br := range rec.Benchmarks {
		m.BenchmarkPSNR.WithLabelValues(br.Name).Set(br.PSNR)
		m.BenchmarkSSIM.WithLabelValues(br.Name).Set(br.SSIM)
	}
	return nil
}
