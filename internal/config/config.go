// Package config holds the run configuration: a YAML file overlaid by
// command-line flags.
package config

import "time"

type Config struct {
	Run        RunConfig       `yaml:"run"`
	Train      TrainConfig     `yaml:"train"`
	Data       DataConfig      `yaml:"data"`
	Benchmarks BenchmarkConfig `yaml:"benchmarks"`
	Compute    ComputeConfig   `yaml:"compute"`
	Logging    LoggingConfig   `yaml:"logging"`
	Status     StatusConfig    `yaml:"status"`
	Influx     InfluxConfig    `yaml:"influx"`
}

// RunConfig selects what the run does and where it writes.
type RunConfig struct {
	// Name of the experiment; also the run directory name under LogRoot.
	Name    string `yaml:"name"`
	LogRoot string `yaml:"log_root" validate:"required"`
	// Load restores all state from a checkpoint (or the latest one in a directory).
	Load string `yaml:"load"`
	// LoadGen restores generator weights only; the iteration starts at 0.
	LoadGen string `yaml:"load_gen"`
	// Epochs bounds the number of passes over the training set.
	Epochs int `yaml:"epochs" validate:"gt=0"`
	// IsVal evaluates every benchmark once and exits.
	IsVal bool `yaml:"is_val"`
	// SaveExamples writes benchmark outputs under <run>/examples at every evaluation.
	SaveExamples bool `yaml:"save_examples"`
}

type TrainConfig struct {
	BatchSize    int     `yaml:"batch_size" validate:"gt=0"`
	LogFreq      int64   `yaml:"log_freq" validate:"gt=0"`
	LearningRate float64 `yaml:"learning_rate" validate:"gt=0"`
	ContentLoss  string  `yaml:"content_loss" validate:"oneof=mse L1 edge_loss_mse edge_loss_L1"`
	UseGAN       bool    `yaml:"use_gan"`
	ImageSize    int     `yaml:"image_size" validate:"gt=0"`
	VGGWeights   string  `yaml:"vgg_weights"`
	Scale        int     `yaml:"scale" validate:"gte=1,lte=8"`
	// Overfit repeats the first training sample to fill one batch.
	Overfit bool   `yaml:"overfit"`
	Init    string `yaml:"init" validate:"oneof=zero xavier"`
	Seed    int64  `yaml:"seed"`
}

type DataConfig struct {
	// TrainDir, when set, replaces the training container with an image folder.
	TrainDir string `yaml:"train_dir"`
	Train    string `yaml:"train" validate:"required_without=TrainDir"`
	Val      string `yaml:"val" validate:"required"`
	Eval     string `yaml:"eval" validate:"required"`
}

type BenchmarkConfig struct {
	Root     string   `yaml:"root" validate:"required"`
	Names    []string `yaml:"names" validate:"dive,required"`
	Validate bool     `yaml:"validate"`
}

type ComputeConfig struct {
	// GPU is a comma-separated device list; "" or "-1" selects the CPU.
	GPU     string `yaml:"gpu"`
	Workers int    `yaml:"workers" validate:"gte=0"`
}

type LoggingConfig struct {
	Level            string        `yaml:"level" validate:"oneof=debug info warn error"`
	Format           string        `yaml:"format" validate:"oneof=text json auto"`
	ProgressInterval time.Duration `yaml:"progress_interval" validate:"gte=0"`
}

// StatusConfig enables the HTTP status server when Addr is set.
type StatusConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// InfluxConfig enables the InfluxDB publisher when URL is set.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org" validate:"required_with=URL"`
	Bucket string `yaml:"bucket" validate:"required_with=URL"`
}

// Resuming reports whether the run continues from a full checkpoint.
func (c *Config) Resuming() bool {
	return c.Run.Load != ""
}
