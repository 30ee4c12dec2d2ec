package training

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/born-ml/superres/internal/benchmark"
	"github.com/born-ml/superres/internal/checkpoint"
	"github.com/born-ml/superres/internal/compute"
	"github.com/born-ml/superres/internal/config"
	"github.com/born-ml/superres/internal/dataset"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/metriclog"
	"github.com/born-ml/superres/internal/model"
	"github.com/born-ml/superres/internal/model/srnet"
	"github.com/born-ml/superres/internal/nn"
	"github.com/born-ml/superres/internal/quality"
	"github.com/born-ml/superres/internal/rundir"
	"github.com/born-ml/superres/internal/telemetry"
)

// ExamplesDir is the run subdirectory receiving benchmark outputs.
const ExamplesDir = "examples"

// Session holds the collaborators built from a configuration: the compute
// context, the network with any restored state, and the benchmark suite.
type Session struct {
	Compute  *compute.Context
	Model    *srnet.Net
	Suite    *benchmark.Suite
	Metrics  *telemetry.Metrics
	Restored *checkpoint.Record // Nil for a fresh network

	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// NewSession builds the network, restores --load or --load-gen and opens
// the benchmarks. cfg must already be validated.
func NewSession(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{cfg: cfg, logger: logger, Metrics: telemetry.NewMetrics()}

	cc, err := compute.New(cfg.Compute.GPU, cfg.Compute.Workers)
	if err != nil {
		return nil, fault.At(fault.StageConfig, "gpu", err)
	}
	s.Compute = cc
	logger.Info("compute context", "compute", cc)

	net, err := srnet.New(srnet.Config{
		Scale:        cfg.Train.Scale,
		LearningRate: float32(cfg.Train.LearningRate),
		ContentLoss:  nn.LossKind(cfg.Train.ContentLoss),
		Init:         cfg.Train.Init,
		Seed:         cfg.Train.Seed,
		UseGAN:       cfg.Train.UseGAN,
		VGGWeights:   cfg.Train.VGGWeights,
	}, cc)
	if err != nil {
		return nil, fault.At(fault.StageConfig, "model", err)
	}
	s.Model = net

	switch {
	case cfg.Run.Load != "":
		if err := s.restore(cfg.Run.Load, model.ScopeAll); err != nil {
			return nil, err
		}
	case cfg.Run.LoadGen != "":
		if err := s.restore(cfg.Run.LoadGen, model.ScopeGenerator); err != nil {
			return nil, err
		}
	}

	suite, err := benchmark.OpenSuite(cfg.Benchmarks.Root, cfg.Benchmarks.Names, benchmark.Options{
		Scale:      cfg.Train.Scale,
		Convention: quality.Canonical(cfg.Train.Scale),
		Workers:    cfg.Compute.Workers,
	}, logger)
	if err != nil {
		return nil, fault.At(fault.StageValidate, cfg.Benchmarks.Root, err)
	}
	s.Suite = suite
	return s, nil
}

func (s *Session) restore(path string, scope model.Scope) error {
	resolved, err := checkpoint.Resolve(path)
	if err != nil {
		return fault.At(fault.StageRestore, path, err)
	}
	rec, err := checkpoint.Restore(s.Model, resolved, scope)
	if err != nil {
		return fault.At(fault.StageRestore, resolved, err)
	}
	s.Restored = &rec
	s.logger.Info("checkpoint restored",
		"path", resolved,
		"iteration", rec.Iteration,
		"epoch", rec.Epoch,
		"generator_only", scope == model.ScopeGenerator,
	)
	return nil
}

// startIteration is the restored iteration for --load and 0 otherwise.
func (s *Session) startIteration() (int64, int) {
	if s.Restored == nil || s.cfg.Run.Load == "" {
		return 0, 0
	}
	return s.Restored.Iteration, s.Restored.Epoch
}

// ScoreBenchmarks evaluates every benchmark once and writes one
// " [name] PSNR: x, SSIM: y" entry per benchmark to w. With --load the
// super-resolved images go to the restored run's examples directory.
func (s *Session) ScoreBenchmarks(ctx context.Context, w io.Writer) ([]benchmark.Result, error) {
	it, _ := s.startIteration()
	results, err := s.Suite.Evaluate(ctx, s.Model, s.scoreOutputDir(), it)
	if err != nil {
		return nil, fault.At(fault.StageBenchmarkEvaluate, s.cfg.Benchmarks.Root, err)
	}
	for _, r := range results {
		fmt.Fprintf(w, " [%s] PSNR: %.2f, SSIM: %.4f", r.Name, r.PSNR, r.SSIM)
	}
	fmt.Fprintln(w)
	return results, nil
}

// scoreOutputDir is the examples directory of the run restored with --load,
// or "" when there is no run to write into.
func (s *Session) scoreOutputDir() string {
	if s.Restored == nil || s.cfg.Run.Load == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(s.Restored.Path), ExamplesDir)
}

// ValidateBenchmarks checks every benchmark against its shipped reference
// when validate-benchmarks is set. All failures are reported together.
func (s *Session) ValidateBenchmarks(ctx context.Context) error {
	if !s.cfg.Benchmarks.Validate {
		return nil
	}
	if err := s.Suite.ValidateAll(ctx); err != nil {
		return fault.At(fault.StageValidate, s.cfg.Benchmarks.Root, err)
	}
	return nil
}

// Prepare loads the datasets, validates the benchmarks when asked,
// allocates the run directory and returns the loop. argv is recorded in a
// fresh run directory.
func (s *Session) Prepare(ctx context.Context, argv []string) (*Loop, error) {
	cfg := s.cfg

	train, val, eval, err := s.loadDatasets(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.ValidateBenchmarks(ctx); err != nil {
		return nil, err
	}

	dir, err := s.runDir(argv)
	if err != nil {
		return nil, fault.At(fault.StageConfig, cfg.Run.LogRoot, err)
	}
	s.logger.Info("run directory", "path", dir.Path, "reused", dir.Reused)

	mlog := metriclog.New(dir.Path)
	history, err := mlog.Read(s.Suite.Names())
	if err != nil {
		return nil, fault.At(fault.StageLogAppend, mlog.Path(), err)
	}

	var loop *Loop
	publishers := metriclog.Multi{
		s.Metrics,
		metriclog.NewProgression(dir.Path, cfg.Run.Epochs, func() int { return loop.Epoch() }),
	}
	if cfg.Influx.URL != "" {
		influx := metriclog.NewInfluxPublisher(metriclog.InfluxConfig{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		}, dir.Name)
		s.closers = append(s.closers, influx.Close)
		publishers = append(publishers, influx)
	}

	examples := ""
	if cfg.Run.SaveExamples {
		examples = filepath.Join(dir.Path, ExamplesDir)
	}
	iteration, epoch := s.startIteration()

	loop, err = New(Config{
		BatchSize:        cfg.Train.BatchSize,
		LogFreq:          cfg.Train.LogFreq,
		MaxEpochs:        cfg.Run.Epochs,
		RunDir:           dir.Path,
		RunName:          dir.Name,
		ExamplesDir:      examples,
		Iteration:        iteration,
		Epoch:            epoch,
		Resumed:          cfg.Resuming(),
		ProgressInterval: cfg.Logging.ProgressInterval,
		TrainingMeta: map[string]any{
			"batch_size":    cfg.Train.BatchSize,
			"log_freq":      cfg.Train.LogFreq,
			"learning_rate": cfg.Train.LearningRate,
			"content_loss":  cfg.Train.ContentLoss,
			"scale":         cfg.Train.Scale,
			"overfit":       cfg.Train.Overfit,
		},
	}, Components{
		Model:       s.Model,
		Train:       train,
		Val:         val,
		Eval:        eval,
		Benchmarks:  s.Suite,
		Checkpoints: checkpoint.NewStore(),
		Log:         mlog,
		History:     history,
		Publisher:   publishers,
		Metrics:     s.Metrics,
		Compute:     s.Compute,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, fault.At(fault.StageConfig, "", err)
	}
	return loop, nil
}

func (s *Session) loadDatasets(ctx context.Context) (train, val, eval dataset.Dataset, err error) {
	cfg := s.cfg
	if cfg.Data.TrainDir != "" {
		ds, err := dataset.LoadFolder(ctx, cfg.Data.TrainDir, dataset.FolderOptions{
			CropSize: cfg.Train.ImageSize,
			Workers:  cfg.Compute.Workers,
			Logger:   s.logger,
		})
		if err != nil {
			return nil, nil, nil, fault.At(fault.StageDatasetLoad, cfg.Data.TrainDir, err)
		}
		train = ds
	} else {
		ds, err := dataset.Load(cfg.Data.Train)
		if err != nil {
			return nil, nil, nil, fault.At(fault.StageDatasetLoad, cfg.Data.Train, err)
		}
		train = ds
	}
	if cfg.Train.Overfit {
		if train, err = dataset.Overfit(train, cfg.Train.BatchSize); err != nil {
			return nil, nil, nil, fault.At(fault.StageDatasetLoad, "overfit", err)
		}
	}

	valDS, err := dataset.Load(cfg.Data.Val)
	if err != nil {
		return nil, nil, nil, fault.At(fault.StageDatasetLoad, cfg.Data.Val, err)
	}
	evalDS, err := dataset.Load(cfg.Data.Eval)
	if err != nil {
		return nil, nil, nil, fault.At(fault.StageDatasetLoad, cfg.Data.Eval, err)
	}
	s.logger.Info("datasets loaded", "train", train.Len(), "val", valDS.Len(), "eval", evalDS.Len())
	return train, valDS, evalDS, nil
}

// runDir reuses the checkpoint's directory when resuming without a name
// and creates a fresh one otherwise.
func (s *Session) runDir(argv []string) (*rundir.Dir, error) {
	cfg := s.cfg
	if cfg.Resuming() && cfg.Run.Name == "" && s.Restored != nil {
		return rundir.Reuse(filepath.Dir(s.Restored.Path))
	}
	data, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}
	return rundir.Create(rundir.Options{
		Root:   cfg.Run.LogRoot,
		Name:   cfg.Run.Name,
		Argv:   argv,
		Config: data,
	})
}

// Close releases publisher connections.
func (s *Session) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}
