// Package training drives the train/evaluate cycle of a super-resolution
// network.
//
// The loop moves through Initializing, Running and Evaluating. While
// Running it walks the training set batch by batch. Whenever the iteration
// counter is a multiple of the log frequency it first evaluates: validation
// and eval error, every benchmark, one metric log record, both error plots
// and a checkpoint at that iteration. It then takes one optimisation step
// and increments the counter. Training, evaluation, logging and
// checkpointing never overlap.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/born-ml/superres/internal/benchmark"
	"github.com/born-ml/superres/internal/checkpoint"
	"github.com/born-ml/superres/internal/compute"
	"github.com/born-ml/superres/internal/dataset"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/metriclog"
	"github.com/born-ml/superres/internal/model"
	"github.com/born-ml/superres/internal/telemetry"
)

// State is the phase of the loop.
type State int32

// Loop states.
const (
	StateInitializing State = iota
	StateRunning
	StateEvaluating
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateEvaluating:
		return "evaluating"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Benchmarks evaluates a model on every benchmark, in order.
type Benchmarks interface {
	Evaluate(ctx context.Context, m model.Trainable, outDir string, iteration int64) ([]benchmark.Result, error)
}

// Checkpointer persists model state keyed by iteration.
type Checkpointer interface {
	Save(m model.Trainable, dir string, iteration int64, info checkpoint.Info) (string, error)
}

// Config holds the loop parameters.
type Config struct {
	BatchSize int
	LogFreq   int64
	MaxEpochs int

	RunDir      string
	RunName     string
	ExamplesDir string // Benchmark outputs are written here when set

	// Iteration and Epoch to start from.
	Iteration int64
	Epoch     int
	// Resumed marks Iteration as restored from a checkpoint written by an
	// evaluation, so that iteration is not evaluated a second time.
	Resumed bool

	ProgressInterval time.Duration
	TrainingMeta     map[string]any
}

// Components are the collaborators of the loop.
type Components struct {
	Model       model.Trainable
	Train       dataset.Dataset
	Val         dataset.Dataset
	Eval        dataset.Dataset
	Benchmarks  Benchmarks // Optional
	Checkpoints Checkpointer
	Log         *metriclog.Log
	History     []metriclog.Record  // Records already in Log
	Publisher   metriclog.Publisher // Optional
	Metrics     *telemetry.Metrics  // Optional
	Compute     *compute.Context
	Logger      *slog.Logger
}

// Loop is the training state machine.
type Loop struct {
	cfg         Config
	model       model.Trainable
	train       dataset.Dataset
	val         dataset.Dataset
	eval        dataset.Dataset
	benchmarks  Benchmarks
	checkpoints Checkpointer
	log         *metriclog.Log
	publisher   metriclog.Publisher
	metrics     *telemetry.Metrics
	cc          *compute.Context
	logger      *slog.Logger
	evaluator   *Evaluator
	progress    *Progress

	mu            sync.RWMutex
	state         State
	iteration     int64
	epoch         int
	lastEvaluated int64
	trainLoss     float64
	startedAt     time.Time
	history       []metriclog.Record
}

// New validates the configuration against the training set and returns an
// initialised loop.
func New(cfg Config, c Components) (*Loop, error) {
	if cfg.LogFreq <= 0 {
		return nil, fault.Configf("log frequency must be positive, got %d", cfg.LogFreq)
	}
	if cfg.MaxEpochs < 0 {
		return nil, fault.Configf("max epochs must be non-negative, got %d", cfg.MaxEpochs)
	}
	if cfg.Iteration < 0 {
		return nil, fault.Configf("negative start iteration %d", cfg.Iteration)
	}
	if c.Model == nil || c.Train == nil || c.Val == nil || c.Eval == nil || c.Checkpoints == nil || c.Log == nil {
		return nil, fault.Configf("training loop is missing a collaborator")
	}
	if _, err := dataset.NewCursor(c.Train.Len(), cfg.BatchSize); err != nil {
		return nil, err
	}
	if c.Compute == nil {
		cc, err := compute.New("", 0)
		if err != nil {
			return nil, err
		}
		c.Compute = cc
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	l := &Loop{
		cfg:           cfg,
		model:         c.Model,
		train:         c.Train,
		val:           c.Val,
		eval:          c.Eval,
		benchmarks:    c.Benchmarks,
		checkpoints:   c.Checkpoints,
		log:           c.Log,
		publisher:     c.Publisher,
		metrics:       c.Metrics,
		cc:            c.Compute,
		logger:        c.Logger,
		evaluator:     NewEvaluator(c.Model, cfg.BatchSize, c.Compute),
		progress:      NewProgress(cfg.ProgressInterval, c.Logger),
		state:         StateInitializing,
		iteration:     cfg.Iteration,
		epoch:         cfg.Epoch,
		lastEvaluated: -1,
		history:       c.History,
	}
	if cfg.Resumed {
		l.lastEvaluated = cfg.Iteration
	}
	return l, nil
}

// Run trains until MaxEpochs passes are complete or ctx is cancelled.
// Cancellation is checked before every batch and returns ctx.Err().
// Any collaborator failure is returned tagged with its stage.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	l.mu.Lock()
	l.state = StateRunning
	l.startedAt = time.Now()
	l.mu.Unlock()

	l.logger.Info("training started",
		"run_dir", l.cfg.RunDir,
		"iteration", l.Iteration(),
		"epoch", l.Epoch(),
		"max_epochs", l.cfg.MaxEpochs,
		"batches_per_epoch", l.train.Len()/l.cfg.BatchSize,
	)

	for l.Epoch() < l.cfg.MaxEpochs {
		cursor, err := dataset.NewCursor(l.train.Len(), l.cfg.BatchSize)
		if err != nil {
			return err
		}
		for offset := range cursor.Offsets() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if it := l.Iteration(); it%l.cfg.LogFreq == 0 && it != l.lastEvaluated {
				if err := l.evaluate(ctx, it); err != nil {
					return err
				}
			}
			if err := l.step(offset); err != nil {
				return err
			}
		}

		l.mu.Lock()
		l.epoch++
		epoch, it := l.epoch, l.iteration
		l.mu.Unlock()
		if l.metrics != nil {
			l.metrics.Epoch.Set(float64(epoch))
		}
		l.logger.Debug("epoch complete", "epoch", epoch, "iteration", it)
	}

	l.logger.Info("training finished", "iteration", l.Iteration(), "epoch", l.Epoch())
	return nil
}

// step runs one forward/loss/optimise pass on the batch at offset.
func (l *Loop) step(offset int) error {
	start := time.Now()
	it := l.Iteration()
	fail := func(err error) error {
		return fault.At(fault.StageTrainStep, fmt.Sprintf("iteration %d", it), err)
	}

	hr, err := l.train.Slice(offset, offset+l.cfg.BatchSize)
	if err != nil {
		return fail(err)
	}
	lr, target, err := dataset.LowRes(hr, l.model.Scale(), l.cc)
	if err != nil {
		return fail(err)
	}
	sr, err := l.model.Forward(lr, model.ModeTrain)
	if err != nil {
		return fail(err)
	}
	loss, err := l.model.ComputeLoss(target, sr)
	if err != nil {
		return fail(err)
	}
	v := loss.Value()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fail(fmt.Errorf("non-finite loss %v", v))
	}
	if err := l.model.OptimizeStep(loss); err != nil {
		return fail(err)
	}

	l.mu.Lock()
	l.iteration++
	l.trainLoss = v
	it, epoch := l.iteration, l.epoch
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.ObserveStep(time.Since(start), v, it, epoch)
	}
	l.progress.Report(it, epoch, v)
	return nil
}

// evaluate runs the evaluation side effects for iteration it, in order:
// errors, benchmarks, log record, plots, checkpoint, publishers.
// Publisher failures are logged; every other failure is returned.
func (l *Loop) evaluate(ctx context.Context, it int64) error {
	l.setState(StateEvaluating)
	defer l.setState(StateRunning)

	valErr, err := l.evaluator.Error(ctx, l.val)
	if err != nil {
		return fault.At(fault.StageEvaluate, "val", err)
	}
	evalErr, err := l.evaluator.Error(ctx, l.eval)
	if err != nil {
		return fault.At(fault.StageEvaluate, "eval", err)
	}
	rec := metriclog.Record{Iteration: it, ValError: valErr, EvalError: evalErr}

	if l.benchmarks != nil {
		results, err := l.benchmarks.Evaluate(ctx, l.model, l.cfg.ExamplesDir, it)
		if err != nil {
			return fault.At(fault.StageBenchmarkEvaluate, l.cfg.ExamplesDir, err)
		}
		for _, r := range results {
			rec.Benchmarks = append(rec.Benchmarks, metriclog.BenchmarkResult{Name: r.Name, PSNR: r.PSNR, SSIM: r.SSIM})
		}
	}

	if err := l.log.Append(rec); err != nil {
		return fault.At(fault.StageLogAppend, l.log.Path(), err)
	}
	l.mu.Lock()
	l.history = append(l.history, rec)
	history := l.history
	l.mu.Unlock()

	if err := metriclog.Plot(history, l.cfg.RunDir); err != nil {
		return fault.At(fault.StagePlot, l.cfg.RunDir, err)
	}

	start := time.Now()
	path, err := l.checkpoints.Save(l.model, l.cfg.RunDir, it, checkpoint.Info{
		Epoch:        l.Epoch(),
		RunName:      l.cfg.RunName,
		TrainingMeta: l.cfg.TrainingMeta,
	})
	if err != nil {
		return fault.At(fault.StageCheckpointSave, checkpoint.PathFor(l.cfg.RunDir, it), err)
	}
	if l.metrics != nil {
		l.metrics.ObserveCheckpoint(time.Since(start))
	}
	l.lastEvaluated = it

	attrs := []any{"iteration", it, "val_error", valErr, "eval_error", evalErr, "checkpoint", path}
	for _, b := range rec.Benchmarks {
		attrs = append(attrs, slog.Group(b.Name, "psnr", b.PSNR, "ssim", b.SSIM))
	}
	l.logger.Info("evaluation", attrs...)

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, rec); err != nil {
			l.logger.Warn("publishing evaluation failed", "error", fault.At(fault.StagePublish, "", err))
		}
	}
	return nil
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// State returns the current phase.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Iteration returns the number of optimisation steps taken, including
// those before a restore.
func (l *Loop) Iteration() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.iteration
}

// Epoch returns the number of completed passes.
func (l *Loop) Epoch() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch
}

// History returns the evaluation records so far, oldest first.
func (l *Loop) History() []metriclog.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]metriclog.Record(nil), l.history...)
}

// Snapshot reports the loop state for the status server.
func (l *Loop) Snapshot() telemetry.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := telemetry.Snapshot{
		State:     l.state.String(),
		RunDir:    l.cfg.RunDir,
		Iteration: l.iteration,
		Epoch:     l.epoch,
		MaxEpochs: l.cfg.MaxEpochs,
		TrainLoss: l.trainLoss,
		StartedAt: l.startedAt,
	}
	if n := len(l.history); n > 0 {
		last := l.history[n-1]
		s.LastEvaluation = &last
	}
	return s
}
