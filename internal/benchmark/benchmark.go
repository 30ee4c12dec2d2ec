// Package benchmark evaluates a trainable on named reference image sets.
//
// A benchmark directory holds:
//
//	HR/              high-resolution ground truth (PNG or JPEG)
//	LR/              low-resolution inputs with the same file stems (optional;
//	                 derived from HR by bicubic downsampling when absent)
//	SR/              reference super-resolved outputs (needed by Validate)
//	reference.yaml   shipped PSNR/SSIM of SR/ against HR/ (needed by Validate)
//
// Validate and Evaluate score images with the same quality.Convention.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/model"
	"github.com/born-ml/superres/internal/quality"
)

// Layout names.
const (
	HRDir         = "HR"
	LRDir         = "LR"
	SRDir         = "SR"
	ReferenceFile = "reference.yaml"
)

// Default tolerances applied when reference.yaml leaves them unset.
const (
	DefaultPSNRTolerance = 0.01
	DefaultSSIMTolerance = 0.001
)

// Score is a PSNR/SSIM pair.
type Score struct {
	PSNR float64 `yaml:"psnr" json:"psnr"`
	SSIM float64 `yaml:"ssim" json:"ssim"`
}

// Reference is the content of reference.yaml.
type Reference struct {
	Score     `yaml:",inline"`
	Tolerance Score            `yaml:"tolerance"`
	Images    map[string]Score `yaml:"images,omitempty"`
}

// Pair is one benchmark image.
type Pair struct {
	Name string         // File stem
	HR   *imaging.Image // Ground truth, mod-cropped to the scale
	LR   *imaging.Image // Network input
	SR   *imaging.Image // Shipped reference output, nil when absent
}

// Benchmark is an immutable named reference set.
type Benchmark struct {
	Name      string
	Dir       string
	Scale     int
	Reference *Reference
	Pairs     []Pair

	conv    quality.Convention
	workers int
}

// Options configures Open.
type Options struct {
	Scale      int
	Convention quality.Convention
	Workers    int // Concurrent metric computations (<= 0 means 1)
}

// Open loads the benchmark in dir. Layout problems wrap ErrBenchmarkIntegrity.
func Open(dir, name string, opts Options) (*Benchmark, error) {
	if opts.Scale <= 0 {
		return nil, fault.Configf("benchmark scale must be positive, got %d", opts.Scale)
	}
	b := &Benchmark{Name: name, Dir: dir, Scale: opts.Scale, conv: opts.Convention, workers: max(opts.Workers, 1)}

	hrFiles, err := listImages(filepath.Join(dir, HRDir))
	if err != nil {
		return nil, b.integrity("%v", err)
	}
	if len(hrFiles) == 0 {
		return nil, b.integrity("no images in %s", filepath.Join(dir, HRDir))
	}
	lrFiles, _ := listImages(filepath.Join(dir, LRDir))
	srFiles, _ := listImages(filepath.Join(dir, SRDir))

	for _, stem := range sortedStems(hrFiles) {
		p, err := b.loadPair(stem, hrFiles[stem], lrFiles[stem], srFiles[stem])
		if err != nil {
			return nil, err
		}
		b.Pairs = append(b.Pairs, p)
	}

	ref, err := loadReference(filepath.Join(dir, ReferenceFile))
	if err != nil {
		return nil, b.integrity("%v", err)
	}
	b.Reference = ref
	return b, nil
}

func (b *Benchmark) loadPair(stem, hrPath, lrPath, srPath string) (Pair, error) {
	hr, err := imaging.Load(hrPath)
	if err != nil {
		return Pair{}, b.integrity("%v", err)
	}
	p := Pair{Name: stem, HR: hr.ModCrop(b.Scale)}

	if lrPath != "" {
		if p.LR, err = imaging.Load(lrPath); err != nil {
			return Pair{}, b.integrity("%v", err)
		}
		if p.LR.W*b.Scale != p.HR.W || p.LR.H*b.Scale != p.HR.H {
			return Pair{}, b.integrity("%s: LR %dx%d does not match HR %dx%d at scale %d",
				stem, p.LR.W, p.LR.H, p.HR.W, p.HR.H, b.Scale)
		}
	} else if p.LR, err = imaging.Downsample(p.HR, b.Scale); err != nil {
		return Pair{}, b.integrity("%s: %v", stem, err)
	}

	if srPath != "" {
		if p.SR, err = imaging.Load(srPath); err != nil {
			return Pair{}, b.integrity("%v", err)
		}
		p.SR = p.SR.ModCrop(b.Scale)
	}
	return p, nil
}

func (b *Benchmark) integrity(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", fault.ErrBenchmarkIntegrity, b.Name, fmt.Sprintf(format, args...))
}

// Validate recomputes the metrics of the shipped reference outputs and
// compares them with reference.yaml. Any deviation beyond tolerance wraps
// ErrBenchmarkIntegrity.
func (b *Benchmark) Validate(ctx context.Context) error {
	if b.Reference == nil {
		return b.integrity("missing %s", ReferenceFile)
	}
	srs := make([]*imaging.Image, len(b.Pairs))
	for i, p := range b.Pairs {
		if p.SR == nil {
			return b.integrity("%s: no reference output in %s", p.Name, SRDir)
		}
		srs[i] = p.SR
	}

	mean, per, err := b.score(ctx, srs)
	if err != nil {
		return err
	}

	var errs []error
	tol := b.Reference.Tolerance
	if d := math.Abs(mean.PSNR - b.Reference.PSNR); d > tol.PSNR {
		errs = append(errs, b.integrity("PSNR %.4f differs from reference %.4f by %.4f (tolerance %g)",
			mean.PSNR, b.Reference.PSNR, d, tol.PSNR))
	}
	if d := math.Abs(mean.SSIM - b.Reference.SSIM); d > tol.SSIM {
		errs = append(errs, b.integrity("SSIM %.5f differs from reference %.5f by %.5f (tolerance %g)",
			mean.SSIM, b.Reference.SSIM, d, tol.SSIM))
	}
	for i, p := range b.Pairs {
		want, ok := b.Reference.Images[p.Name]
		if !ok {
			continue
		}
		got := per[i]
		if math.Abs(got.PSNR-want.PSNR) > tol.PSNR || math.Abs(got.SSIM-want.SSIM) > tol.SSIM {
			errs = append(errs, b.integrity("%s: got PSNR %.4f SSIM %.5f, reference PSNR %.4f SSIM %.5f",
				p.Name, got.PSNR, got.SSIM, want.PSNR, want.SSIM))
		}
	}
	return errors.Join(errs...)
}

// Result is the outcome of one benchmark evaluation.
type Result struct {
	Name     string
	Score                      // Mean over all images
	Images   map[string]Score  // Per image, by stem
	Outputs  []*imaging.Image  // Network outputs, clamped and quantised, in Pairs order
	Files    []string          // Example outputs written, if any
	Metadata map[string]string // Convention and sizes
}

// Evaluate super-resolves every LR image with m, scores each output against
// its HR image and averages. When outDir is non-empty the outputs are
// written to outDir/<name>/<iteration>/<stem>.png.
func (b *Benchmark) Evaluate(ctx context.Context, m model.Trainable, outDir string, iteration int64) (Result, error) {
	if m.Scale() != b.Scale {
		return Result{}, fault.Configf("model scale %d, benchmark %s scale %d", m.Scale(), b.Name, b.Scale)
	}

	outputs := make([]*imaging.Image, len(b.Pairs))
	for i, p := range b.Pairs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		sr, err := m.Forward([]*imaging.Image{p.LR}, model.ModeEval)
		if err != nil {
			return Result{}, fmt.Errorf("%s/%s: %w", b.Name, p.Name, err)
		}
		// Scores are taken on what would be written to disk.
		outputs[i] = sr[0].Quantize()
	}

	mean, per, err := b.score(ctx, outputs)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Name:    b.Name,
		Score:   mean,
		Images:  make(map[string]Score, len(b.Pairs)),
		Outputs: outputs,
		Metadata: map[string]string{
			"convention": b.conv.String(),
			"images":     fmt.Sprint(len(b.Pairs)),
		},
	}
	for i, p := range b.Pairs {
		res.Images[p.Name] = per[i]
	}

	if outDir != "" {
		dir := filepath.Join(outDir, b.Name, fmt.Sprint(iteration))
		for i, p := range b.Pairs {
			path := filepath.Join(dir, p.Name+".png")
			if err := imaging.SavePNG(path, outputs[i]); err != nil {
				return Result{}, err
			}
			res.Files = append(res.Files, path)
		}
	}
	return res, nil
}

// score computes per-image metrics in parallel and their mean.
func (b *Benchmark) score(ctx context.Context, srs []*imaging.Image) (Score, []Score, error) {
	per := make([]Score, len(srs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range srs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			psnr, ssim, err := b.conv.Measure(srs[i], b.Pairs[i].HR)
			if err != nil {
				return b.integrity("%s: %v", b.Pairs[i].Name, err)
			}
			per[i] = Score{PSNR: psnr, SSIM: ssim}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Score{}, nil, err
	}

	var mean Score
	for _, s := range per {
		mean.PSNR += s.PSNR
		mean.SSIM += s.SSIM
	}
	mean.PSNR /= float64(len(per))
	mean.SSIM /= float64(len(per))
	return mean, per, nil
}

// listImages maps file stem to path for every image directly in dir.
func listImages(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !imaging.IsImageFile(e.Name()) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		files[stem] = filepath.Join(dir, e.Name())
	}
	return files, nil
}

func sortedStems(files map[string]string) []string {
	stems := make([]string, 0, len(files))
	for s := range files {
		stems = append(stems, s)
	}
	sort.Strings(stems)
	return stems
}

// loadReference reads reference.yaml. A missing file yields nil.
func loadReference(path string) (*Reference, error) {
	//nolint:gosec // G304: path is inside the benchmark directory
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if ref.Tolerance.PSNR == 0 {
		ref.Tolerance.PSNR = DefaultPSNRTolerance
	}
	if ref.Tolerance.SSIM == 0 {
		ref.Tolerance.SSIM = DefaultSSIMTolerance
	}
	return &ref, nil
}

// WriteReference stores ref as reference.yaml in dir.
func WriteReference(dir string, ref Reference) error {
	data, err := yaml.Marshal(ref)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ReferenceFile), data, 0o644)
}
