package metriclog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ProgressionFileName is the status file read by training operators.
const ProgressionFileName = "training_progression.json"

// ProgressionFile is the JSON layout of the status file.
type ProgressionFile struct {
	CurrentStep     *int64         `json:"current_step,omitempty"`
	CurrentEpoch    *int64         `json:"current_epoch,omitempty"`
	TotalEpochs     *int64         `json:"total_epochs,omitempty"`
	Message         string         `json:"message,omitempty"`
	TrainingMetrics map[string]any `json:"training_metrics,omitempty"`
	Metrics         map[string]any `json:"metrics,omitempty"`
	Timestamp       int64          `json:"timestamp"`
	StartTime       *int64         `json:"start_time,omitempty"`
}

// Progression rewrites the status file after each evaluation.
type Progression struct {
	path        string
	totalEpochs int64
	start       int64
	epoch       func() int
	now         func() time.Time

	mu sync.Mutex
}

// NewProgression writes to dir/training_progression.json. epoch reports the
// loop's current epoch at publish time.
func NewProgression(dir string, totalEpochs int, epoch func() int) *Progression {
	return &Progression{
		path:        filepath.Join(dir, ProgressionFileName),
		totalEpochs: int64(totalEpochs),
		start:       time.Now().Unix(),
		epoch:       epoch,
		now:         time.Now,
	}
}

// Path returns the status file path.
func (p *Progression) Path() string {
	return p.path
}

// Publish implements Publisher.
func (p *Progression) Publish(_ context.Context, rec Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	step := rec.Iteration
	epoch := int64(p.epoch())
	metrics := map[string]any{}
	for _, br := range rec.Benchmarks {
		metrics[br.Name+"_psnr"] = br.PSNR
		metrics[br.Name+"_ssim"] = br.SSIM
	}
	status := ProgressionFile{
		CurrentStep:  &step,
		CurrentEpoch: &epoch,
		TotalEpochs:  &p.totalEpochs,
		Message:      rec.Summary(),
		TrainingMetrics: map[string]any{
			"val_error":  rec.ValError,
			"eval_error": rec.EvalError,
		},
		Metrics:   metrics,
		Timestamp: p.now().Unix(),
		StartTime: &p.start,
	}

	b, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("progression: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}
