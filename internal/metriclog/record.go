// Package metriclog persists the evaluation history of a run.
//
// The authoritative store is loss.csv in the run directory, one line per
// evaluation, only ever appended:
//
//	<iteration>, <val_error>, <eval_error>[,<psnr>, <ssim>]...
//
// The error curves are regenerated from the full history after every
// append, and each record is forwarded to the configured publishers.
package metriclog

import (
	"fmt"
	"strings"
)

// FileName is the metric log inside a run directory.
const FileName = "loss.csv"

// BenchmarkResult is the score of one benchmark at one evaluation.
type BenchmarkResult struct {
	Name string
	PSNR float64
	SSIM float64
}

// Record is one evaluation. Records are never mutated once appended.
type Record struct {
	Iteration  int64
	ValError   float64
	EvalError  float64
	Benchmarks []BenchmarkResult
}

// Line renders the record in loss.csv format, without the newline.
func (r Record) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d, %.15f, %.15f", r.Iteration, r.ValError, r.EvalError)
	for _, br := range r.Benchmarks {
		fmt.Fprintf(&b, ",%.7f, %.7f", br.PSNR, br.SSIM)
	}
	return b.String()
}

// Summary renders the record as the console evaluation line.
func (r Record) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] Test: %.7f, Train: %.7f", r.Iteration, r.ValError, r.EvalError)
	for _, br := range r.Benchmarks {
		fmt.Fprintf(&b, " [%s] PSNR: %.2f, SSIM: %.4f", br.Name, br.PSNR, br.SSIM)
	}
	return b.String()
}
