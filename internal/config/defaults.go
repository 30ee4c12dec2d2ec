package config

import (
	"runtime"
	"time"
)

// Default returns the configuration used when no file or flag overrides a value.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			LogRoot: "results",
			Epochs:  1000000,
		},
		Train: TrainConfig{
			BatchSize:    16,
			LogFreq:      10000,
			LearningRate: 1e-4,
			ContentLoss:  "mse",
			ImageSize:    96,
			VGGWeights:   "vgg_19.ckpt",
			Scale:        4,
			Init:         "zero",
		},
		Data: DataConfig{
			Train: "done_dataset/PreprocessedData.srds",
			Val:   "done_dataset/PreprocessedData_val.srds",
			Eval:  "done_dataset/PreprocessedData_eval.srds",
		},
		Benchmarks: BenchmarkConfig{
			Root:  "Benchmarks",
			Names: []string{"Set5", "Set14", "BSD100"},
		},
		Compute: ComputeConfig{
			GPU:     "0",
			Workers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			ProgressInterval: 2 * time.Second,
		},
	}
}
