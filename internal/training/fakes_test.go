package training

import (
	"context"
	"sync"

	"github.com/born-ml/superres/internal/benchmark"
	"github.com/born-ml/superres/internal/checkpoint"
	"github.com/born-ml/superres/internal/dataset"
	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/model"
	"github.com/born-ml/superres/internal/tensor"
)

// fakeModel upsamples by pixel repetition and records every call.
type fakeModel struct {
	scale int
	loss  float64

	mu     sync.Mutex
	calls  []string
	steps  int
	failOn string
}

type fakeLoss float64

func (l fakeLoss) Value() float64 { return float64(l) }

func (f *fakeModel) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeModel) Forward(lr []*imaging.Image, mode model.Mode) ([]*imaging.Image, error) {
	f.record("forward:" + mode.String())
	out := make([]*imaging.Image, len(lr))
	for i, im := range lr {
		out[i] = imaging.New(im.W*f.scale, im.H*f.scale)
	}
	return out, nil
}

func (f *fakeModel) ComputeLoss(hr, sr []*imaging.Image) (model.Loss, error) {
	f.record("loss")
	return fakeLoss(f.loss + float64(f.steps)), nil
}

func (f *fakeModel) OptimizeStep(model.Loss) error {
	f.record("optimize")
	f.steps++
	return nil
}

func (f *fakeModel) StateDict() map[string]*tensor.Tensor {
	w := tensor.Zeros(tensor.Shape{1})
	w.Data[0] = float32(f.steps)
	return map[string]*tensor.Tensor{model.GeneratorPrefix + "w": w}
}

func (f *fakeModel) LoadStateDict(map[string]*tensor.Tensor, model.Scope) error { return nil }

func (f *fakeModel) Architecture() model.Architecture {
	return model.Architecture{Name: "fake", Scale: f.scale}
}

func (f *fakeModel) Scale() int { return f.scale }

// count returns how often call was recorded.
func (f *fakeModel) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeStore records saved iterations.
type fakeStore struct {
	saved []int64
	err   error
}

func (s *fakeStore) Save(_ model.Trainable, dir string, iteration int64, _ checkpoint.Info) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, iteration)
	return checkpoint.PathFor(dir, iteration), nil
}

// fakeBenchmarks reports a PSNR that grows with the iteration.
type fakeBenchmarks struct {
	names      []string
	iterations []int64
	err        error
}

func (b *fakeBenchmarks) Evaluate(_ context.Context, _ model.Trainable, _ string, it int64) ([]benchmark.Result, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.iterations = append(b.iterations, it)
	var out []benchmark.Result
	for i, name := range b.names {
		out = append(out, benchmark.Result{
			Name:  name,
			Score: benchmark.Score{PSNR: 20 + float64(it) + float64(i), SSIM: 0.5},
		})
	}
	return out, nil
}

func samples(n, size int) *dataset.InMemory {
	ims := make([]*imaging.Image, n)
	for i := range ims {
		im := imaging.New(size, size)
		for j := range im.Pix {
			im.Pix[j] = float32((i+j)%7) / 7
		}
		ims[i] = im
	}
	ds, err := dataset.NewInMemory(ims)
	if err != nil {
		panic(err)
	}
	return ds
}
