package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/serialization"
	"github.com/born-ml/superres/internal/tensor"
)

// Extension is the conventional suffix of dataset containers.
const Extension = ".srds"

const samplePrefix = "sample."

func sampleName(i int) string {
	return fmt.Sprintf("%s%06d", samplePrefix, i)
}

// Save writes every sample of ds to a container at path.
// meta is stored verbatim in the header (source directory, crop size).
func Save(path string, ds Dataset, meta map[string]string) error {
	samples, err := ds.Slice(0, ds.Len())
	if err != nil {
		return err
	}
	tensors := make(map[string]*tensor.Tensor, len(samples))
	for i, s := range samples {
		tensors[sampleName(i)] = &tensor.Tensor{
			Shape: tensor.Shape{s.H, s.W, imaging.Channels},
			Data:  s.Pix,
		}
	}
	header := serialization.Header{Kind: serialization.KindDataset, Metadata: meta}
	if err := serialization.WriteFile(path, header, tensors); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return nil
}

// Load reads a container written by Save. Failures wrap fault.ErrDataset.
func Load(path string) (*InMemory, error) {
	r, err := serialization.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fault.Datasetf("%s does not exist", path)
		}
		return nil, fmt.Errorf("%w: %s: %w", fault.ErrDataset, path, err)
	}
	defer r.Close()

	if kind := r.Header().Kind; kind != serialization.KindDataset {
		return nil, fault.Datasetf("%s holds a %s, not a %s", path, kind, serialization.KindDataset)
	}

	names := r.TensorNames()
	sort.Slice(names, func(i, j int) bool {
		return sampleIndex(names[i]) < sampleIndex(names[j])
	})

	samples := make([]*imaging.Image, 0, len(names))
	for _, name := range names {
		if sampleIndex(name) < 0 {
			continue
		}
		t, err := r.ReadTensor(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", fault.ErrDataset, path, err)
		}
		if len(t.Shape) != 3 || t.Shape[2] != imaging.Channels {
			return nil, fault.Datasetf("%s: %s has shape %v, want [H, W, 3]", path, name, t.Shape)
		}
		im, err := imaging.FromPix(t.Shape[1], t.Shape[0], t.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", fault.ErrDataset, path, err)
		}
		samples = append(samples, im)
	}

	ds, err := NewInMemory(samples)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// sampleIndex parses "sample.000012" to 12, or -1 for other names.
func sampleIndex(name string) int {
	digits, ok := strings.CutPrefix(name, samplePrefix)
	if !ok {
		return -1
	}
	i, err := strconv.Atoi(digits)
	if err != nil || i < 0 {
		return -1
	}
	return i
}
