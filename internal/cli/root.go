// Package cli implements the superres command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/superres/internal/config"
	"github.com/born-ml/superres/internal/fault"
)

// Version info (set from main)
var Version = "dev"

// options holds every flag of the root command. Flags override the config
// file only when set explicitly.
type options struct {
	configFile string

	load               string
	loadGen            string
	name               string
	overfit            bool
	batchSize          int
	logFreq            int64
	learningRate       float64
	contentLoss        string
	useGAN             bool
	imageSize          int
	vggWeights         string
	trainDir           string
	validateBenchmarks bool
	gpu                string
	epoch              int
	isVal              bool

	logRoot          string
	dataTrain        string
	dataVal          string
	dataEval         string
	benchmarkRoot    string
	benchmarks       []string
	scale            int
	initMode         string
	seed             int64
	saveExamples     bool
	workers          int
	statusAddr       string
	progressInterval time.Duration
	logLevel         string
	logFormat        string
	influxURL        string
	influxToken      string
	influxOrg        string
	influxBucket     string
}

func newRootCmd() (*cobra.Command, *options) {
	opts := &options{}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "superres",
		Short: "Train and evaluate a super-resolution network",
		Long: `superres trains a super-resolution network on a preprocessed dataset.
Every --log-freq iterations it measures the validation and eval error,
scores every benchmark (PSNR/SSIM), appends a line to loss.csv, redraws
the error curves and writes a checkpoint named weights-<iteration>.

With --is-val it scores the benchmarks once and exits.`,
		Example: `  superres --name baseline --log-freq 1000
  superres --load results/baseline --epoch 50
  superres --load results/baseline/weights-20000 --is-val
  superres prepare --input images/ --output done_dataset/PreprocessedData.srds`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, opts)
		},
	}
	cmd.Version = Version

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "config file path")
	pf.StringVar(&opts.logLevel, "log-level", def.Logging.Level, "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", def.Logging.Format, "log format (text, json, auto)")
	pf.IntVar(&opts.workers, "workers", def.Compute.Workers, "worker goroutines for batch and metric computation")

	f := cmd.Flags()
	f.StringVar(&opts.load, "load", "", "checkpoint (or run directory) to load all state from")
	f.StringVar(&opts.loadGen, "load-gen", "", "checkpoint to load generator weights only from")
	f.StringVar(&opts.name, "name", "", "name of the experiment")
	f.BoolVar(&opts.overfit, "overfit", false, "overfit to a single image")
	f.IntVar(&opts.batchSize, "batch-size", def.Train.BatchSize, "mini-batch size")
	f.Int64Var(&opts.logFreq, "log-freq", def.Train.LogFreq, "training iterations between evaluations and checkpoints")
	f.Float64Var(&opts.learningRate, "learning-rate", def.Train.LearningRate, "learning rate for Adam")
	f.StringVar(&opts.contentLoss, "content-loss", def.Train.ContentLoss, "content loss (mse, L1, edge_loss_mse, edge_loss_L1)")
	f.BoolVar(&opts.useGAN, "use-gan", false, "add an adversarial loss term and train a discriminator")
	f.IntVar(&opts.imageSize, "image-size", def.Train.ImageSize, "crop size of training samples")
	f.StringVar(&opts.vggWeights, "vgg-weights", def.Train.VGGWeights, "VGG19 weights file, recorded in the run metadata")
	f.StringVar(&opts.trainDir, "train-dir", "", "directory of training images (replaces --data-train)")
	f.BoolVar(&opts.validateBenchmarks, "validate-benchmarks", false, "check the shipped benchmark reference values before training")
	f.StringVar(&opts.gpu, "gpu", def.Compute.GPU, "GPU ids, comma separated (-1 for CPU)")
	f.IntVar(&opts.epoch, "epoch", def.Run.Epochs, "number of passes over the training set")
	f.BoolVar(&opts.isVal, "is-val", false, "score every benchmark once and exit")

	f.StringVar(&opts.logRoot, "log-root", def.Run.LogRoot, "parent directory of run directories")
	f.StringVar(&opts.dataTrain, "data-train", def.Data.Train, "training dataset container")
	f.StringVar(&opts.dataVal, "data-val", def.Data.Val, "validation dataset container")
	f.StringVar(&opts.dataEval, "data-eval", def.Data.Eval, "eval dataset container")
	f.StringVar(&opts.benchmarkRoot, "benchmark-root", def.Benchmarks.Root, "directory holding the benchmarks")
	f.StringSliceVar(&opts.benchmarks, "benchmarks", def.Benchmarks.Names, "benchmarks to evaluate, in order")
	f.IntVar(&opts.scale, "scale", def.Train.Scale, "upscaling factor")
	f.StringVar(&opts.initMode, "init", def.Train.Init, "residual weight initialisation (zero, xavier)")
	f.Int64Var(&opts.seed, "seed", 0, "seed for xavier initialisation")
	f.BoolVar(&opts.saveExamples, "save-examples", false, "write benchmark outputs at every evaluation")
	f.StringVar(&opts.statusAddr, "status-addr", "", "serve /healthz, /status and /metrics on this address")
	f.DurationVar(&opts.progressInterval, "progress-interval", def.Logging.ProgressInterval, "minimum time between progress lines (0 disables)")
	f.StringVar(&opts.influxURL, "influx-url", "", "InfluxDB URL for evaluation points")
	f.StringVar(&opts.influxToken, "influx-token", "", "InfluxDB token")
	f.StringVar(&opts.influxOrg, "influx-org", "", "InfluxDB organisation")
	f.StringVar(&opts.influxBucket, "influx-bucket", "", "InfluxDB bucket")

	cmd.AddCommand(newPrepareCmd(opts), newVersionCmd())
	return cmd, opts
}

// loadConfig reads the config file and overlays the flags that were set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fault.At(fault.StageConfig, opts.configFile, err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, o *options, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.InheritedFlags().Lookup(name)
		}
		return f != nil && f.Changed
	}
	set := []struct {
		flag  string
		apply func()
	}{
		{"load", func() { cfg.Run.Load = o.load }},
		{"load-gen", func() { cfg.Run.LoadGen = o.loadGen }},
		{"name", func() { cfg.Run.Name = o.name }},
		{"overfit", func() { cfg.Train.Overfit = o.overfit }},
		{"batch-size", func() { cfg.Train.BatchSize = o.batchSize }},
		{"log-freq", func() { cfg.Train.LogFreq = o.logFreq }},
		{"learning-rate", func() { cfg.Train.LearningRate = o.learningRate }},
		{"content-loss", func() { cfg.Train.ContentLoss = o.contentLoss }},
		{"use-gan", func() { cfg.Train.UseGAN = o.useGAN }},
		{"image-size", func() { cfg.Train.ImageSize = o.imageSize }},
		{"vgg-weights", func() { cfg.Train.VGGWeights = o.vggWeights }},
		{"train-dir", func() { cfg.Data.TrainDir = o.trainDir }},
		{"validate-benchmarks", func() { cfg.Benchmarks.Validate = o.validateBenchmarks }},
		{"gpu", func() { cfg.Compute.GPU = o.gpu }},
		{"epoch", func() { cfg.Run.Epochs = o.epoch }},
		{"is-val", func() { cfg.Run.IsVal = o.isVal }},
		{"log-root", func() { cfg.Run.LogRoot = o.logRoot }},
		{"data-train", func() { cfg.Data.Train = o.dataTrain }},
		{"data-val", func() { cfg.Data.Val = o.dataVal }},
		{"data-eval", func() { cfg.Data.Eval = o.dataEval }},
		{"benchmark-root", func() { cfg.Benchmarks.Root = o.benchmarkRoot }},
		{"benchmarks", func() { cfg.Benchmarks.Names = o.benchmarks }},
		{"scale", func() { cfg.Train.Scale = o.scale }},
		{"init", func() { cfg.Train.Init = o.initMode }},
		{"seed", func() { cfg.Train.Seed = o.seed }},
		{"save-examples", func() { cfg.Run.SaveExamples = o.saveExamples }},
		{"workers", func() { cfg.Compute.Workers = o.workers }},
		{"status-addr", func() { cfg.Status.Addr = o.statusAddr }},
		{"progress-interval", func() { cfg.Logging.ProgressInterval = o.progressInterval }},
		{"log-level", func() { cfg.Logging.Level = o.logLevel }},
		{"log-format", func() { cfg.Logging.Format = o.logFormat }},
		{"influx-url", func() { cfg.Influx.URL = o.influxURL }},
		{"influx-token", func() { cfg.Influx.Token = o.influxToken }},
		{"influx-org", func() { cfg.Influx.Org = o.influxOrg }},
		{"influx-bucket", func() { cfg.Influx.Bucket = o.influxBucket }},
	}
	for _, s := range set {
		if changed(s.flag) {
			s.apply()
		}
	}
}

// Run executes the command line and returns the process exit code.
// An interrupt during training is a clean exit.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, _ := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	default:
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
}

// Execute runs the root command with os.Args and exits on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	Version = v
}
