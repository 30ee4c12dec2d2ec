// Package dataset provides the high-resolution sample sets the driver trains
// and evaluates on, the batch cursor over them, and their on-disk forms.
//
// Samples are stored at high resolution only; low-resolution inputs are
// derived per batch with LowRes.
package dataset

import (
	"fmt"

	"github.com/born-ml/superres/internal/compute"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
)

// Dataset is an ordered, fixed-length sequence of high-resolution samples.
// Contiguous slicing is the only access pattern.
type Dataset interface {
	Len() int
	// Slice returns samples [lo, hi). The returned images must not be modified.
	Slice(lo, hi int) ([]*imaging.Image, error)
}

// InMemory is a Dataset held entirely in memory.
type InMemory struct {
	samples []*imaging.Image
}

// NewInMemory builds a dataset. Every sample must have the same size.
func NewInMemory(samples []*imaging.Image) (*InMemory, error) {
	if len(samples) == 0 {
		return nil, fault.Datasetf("no samples")
	}
	first := samples[0]
	for i, s := range samples {
		if s == nil {
			return nil, fault.Datasetf("sample %d is nil", i)
		}
		if !s.SameSize(first) {
			return nil, fault.Datasetf("sample %d is %dx%d, sample 0 is %dx%d", i, s.W, s.H, first.W, first.H)
		}
	}
	return &InMemory{samples: samples}, nil
}

// Len returns the number of samples.
func (d *InMemory) Len() int {
	return len(d.samples)
}

// Slice returns samples [lo, hi).
func (d *InMemory) Slice(lo, hi int) ([]*imaging.Image, error) {
	if lo < 0 || hi > len(d.samples) || lo > hi {
		return nil, fmt.Errorf("slice [%d:%d] out of range [0:%d]", lo, hi, len(d.samples))
	}
	return d.samples[lo:hi], nil
}

// SampleSize returns the width and height shared by every sample.
func (d *InMemory) SampleSize() (int, int) {
	return d.samples[0].W, d.samples[0].H
}

// overfit repeats one sample.
type overfit struct {
	sample *imaging.Image
	n      int
}

// Overfit returns a dataset of n copies of ds's first sample. Training on it
// checks that the network can memorise a single image.
func Overfit(ds Dataset, n int) (Dataset, error) {
	if n <= 0 {
		return nil, fault.Configf("overfit size must be positive, got %d", n)
	}
	if ds.Len() == 0 {
		return nil, fault.Datasetf("cannot overfit an empty dataset")
	}
	first, err := ds.Slice(0, 1)
	if err != nil {
		return nil, err
	}
	return &overfit{sample: first[0], n: n}, nil
}

func (o *overfit) Len() int {
	return o.n
}

func (o *overfit) Slice(lo, hi int) ([]*imaging.Image, error) {
	if lo < 0 || hi > o.n || lo > hi {
		return nil, fmt.Errorf("slice [%d:%d] out of range [0:%d]", lo, hi, o.n)
	}
	out := make([]*imaging.Image, hi-lo)
	for i := range out {
		out[i] = o.sample
	}
	return out, nil
}

// LowRes derives the low-resolution input for every high-resolution sample.
// The targets are mod-cropped to a multiple of factor so that the network
// output and the target have the same size.
func LowRes(hr []*imaging.Image, factor int, cc *compute.Context) (lr, target []*imaging.Image, err error) {
	lr = make([]*imaging.Image, len(hr))
	target = make([]*imaging.Image, len(hr))
	errs := make([]error, len(hr))
	cc.For(len(hr), func(i int) {
		target[i] = hr[i].ModCrop(factor)
		lr[i], errs[i] = imaging.Downsample(target[i], factor)
	})
	for i, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return lr, target, nil
}
