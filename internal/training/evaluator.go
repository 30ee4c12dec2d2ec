package training

import (
	"context"
	"fmt"
	"sync"

	"github.com/born-ml/superres/internal/compute"
	"github.com/born-ml/superres/internal/dataset"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/model"
)

// Evaluator computes the scalar error of a model over a dataset: the mean
// loss in ModeEval over every batch-sized window. A dataset shorter than
// the batch size is scored as a single window.
//
// The low-resolution inputs of a dataset are derived once and reused by
// later evaluations of the same dataset.
type Evaluator struct {
	m     model.Trainable
	batch int
	cc    *compute.Context

	mu      sync.Mutex
	windows map[dataset.Dataset]*windows
}

type windows struct {
	lr [][]*imaging.Image
	hr [][]*imaging.Image
}

// NewEvaluator scores m with windows of batch samples.
func NewEvaluator(m model.Trainable, batch int, cc *compute.Context) *Evaluator {
	return &Evaluator{m: m, batch: batch, cc: cc, windows: make(map[dataset.Dataset]*windows)}
}

// Error returns the mean loss of the model over ds.
func (e *Evaluator) Error(ctx context.Context, ds dataset.Dataset) (float64, error) {
	w, err := e.derive(ds)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range w.lr {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		sr, err := e.m.Forward(w.lr[i], model.ModeEval)
		if err != nil {
			return 0, fmt.Errorf("window %d: %w", i, err)
		}
		loss, err := e.m.ComputeLoss(w.hr[i], sr)
		if err != nil {
			return 0, fmt.Errorf("window %d: %w", i, err)
		}
		sum += loss.Value()
	}
	return sum / float64(len(w.lr)), nil
}

func (e *Evaluator) derive(ds dataset.Dataset) (*windows, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[ds]; ok {
		return w, nil
	}

	n := ds.Len()
	if n == 0 {
		return nil, fault.Datasetf("cannot evaluate an empty dataset")
	}
	cursor, err := dataset.NewCursor(n, min(e.batch, n))
	if err != nil {
		return nil, err
	}

	w := &windows{}
	for offset := range cursor.Offsets() {
		hr, err := ds.Slice(offset, offset+cursor.BatchSize())
		if err != nil {
			return nil, err
		}
		lr, target, err := dataset.LowRes(hr, e.m.Scale(), e.cc)
		if err != nil {
			return nil, err
		}
		w.lr = append(w.lr, lr)
		w.hr = append(w.hr, target)
	}
	e.windows[ds] = w
	return w, nil
}
