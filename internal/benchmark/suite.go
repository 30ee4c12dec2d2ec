package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/born-ml/superres/internal/model"
)

// Suite is the ordered set of benchmarks of a run.
type Suite struct {
	Benchmarks []*Benchmark
	logger     *slog.Logger
}

// OpenSuite opens root/<name> for every name, in order.
func OpenSuite(root string, names []string, opts Options, logger *slog.Logger) (*Suite, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Suite{logger: logger}
	for _, name := range names {
		b, err := Open(filepath.Join(root, name), name, opts)
		if err != nil {
			return nil, err
		}
		s.Benchmarks = append(s.Benchmarks, b)
	}
	return s, nil
}

// Names returns the benchmark names in order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.Benchmarks))
	for i, b := range s.Benchmarks {
		names[i] = b.Name
	}
	return names
}

// ValidateAll validates every benchmark, including those after a failure,
// and joins the failures.
func (s *Suite) ValidateAll(ctx context.Context) error {
	var errs []error
	for _, b := range s.Benchmarks {
		if err := b.Validate(ctx); err != nil {
			s.logger.Error("benchmark validation failed", "benchmark", b.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("benchmark validated", "benchmark", b.Name, "images", len(b.Pairs))
	}
	return errors.Join(errs...)
}

// Evaluate runs every benchmark in order. Examples are written under outDir
// when it is non-empty. The first failure stops the evaluation.
func (s *Suite) Evaluate(ctx context.Context, m model.Trainable, outDir string, iteration int64) ([]Result, error) {
	results := make([]Result, 0, len(s.Benchmarks))
	for _, b := range s.Benchmarks {
		res, err := b.Evaluate(ctx, m, outDir, iteration)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}
