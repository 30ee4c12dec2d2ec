package dataset

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/superres/internal/compute"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/serialization"
)

func samples(n, size int) []*imaging.Image {
	rng := rand.New(rand.NewSource(int64(n)))
	out := make([]*imaging.Image, n)
	for i := range out {
		im := imaging.New(size, size)
		for j := range im.Pix {
			im.Pix[j] = rng.Float32()
		}
		out[i] = im
	}
	return out
}

func TestCursorOffsets(t *testing.T) {
	tests := []struct {
		length, batch int
		want          []int
	}{
		{32, 16, []int{0, 16}},
		{33, 16, []int{0, 16}},
		{47, 16, []int{0, 16}},
		{48, 16, []int{0, 16, 32}},
		{16, 16, []int{0}},
		{10, 3, []int{0, 3, 6}},
		{5, 1, []int{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		c, err := NewCursor(tt.length, tt.batch)
		require.NoError(t, err)
		got := slices.Collect(c.Offsets())
		assert.Equal(t, tt.want, got, "L=%d B=%d", tt.length, tt.batch)
		assert.Equal(t, (tt.length-tt.batch)/tt.batch+1, c.Count())
		assert.Len(t, got, c.Count())
		for i, off := range got {
			assert.Equal(t, i*tt.batch, off)
			assert.LessOrEqual(t, off, tt.length-tt.batch)
		}
	}
}

func TestCursorRejectsBadBatch(t *testing.T) {
	_, err := NewCursor(10, 0)
	assert.ErrorIs(t, err, fault.ErrConfiguration)
	_, err = NewCursor(10, -1)
	assert.ErrorIs(t, err, fault.ErrConfiguration)
	_, err = NewCursor(10, 11)
	assert.ErrorIs(t, err, fault.ErrConfiguration)
}

func TestCursorEarlyStop(t *testing.T) {
	c, err := NewCursor(100, 10)
	require.NoError(t, err)
	var seen []int
	for off := range c.Offsets() {
		seen = append(seen, off)
		if off == 20 {
			break
		}
	}
	assert.Equal(t, []int{0, 10, 20}, seen)
}

func TestInMemory(t *testing.T) {
	_, err := NewInMemory(nil)
	assert.ErrorIs(t, err, fault.ErrDataset)

	_, err = NewInMemory([]*imaging.Image{imaging.New(4, 4), imaging.New(4, 5)})
	assert.ErrorIs(t, err, fault.ErrDataset)

	ds, err := NewInMemory(samples(5, 4))
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())
	s, err := ds.Slice(1, 3)
	require.NoError(t, err)
	assert.Len(t, s, 2)
	_, err = ds.Slice(3, 6)
	assert.Error(t, err)
}

func TestOverfit(t *testing.T) {
	src := samples(4, 4)
	ds, err := NewInMemory(src)
	require.NoError(t, err)

	o, err := Overfit(ds, 16)
	require.NoError(t, err)
	assert.Equal(t, 16, o.Len())
	batch, err := o.Slice(0, 16)
	require.NoError(t, err)
	for _, im := range batch {
		assert.Same(t, src[0], im)
	}

	_, err = Overfit(ds, 0)
	assert.ErrorIs(t, err, fault.ErrConfiguration)
}

func TestContainerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train"+Extension)
	src := samples(12, 6)
	ds, err := NewInMemory(src)
	require.NoError(t, err)
	require.NoError(t, Save(path, ds, map[string]string{"crop": "6"}))

	back, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 12, back.Len())
	got, err := back.Slice(0, 12)
	require.NoError(t, err)
	for i := range src {
		assert.Equal(t, src[i].Pix, got[i].Pix, "sample %d keeps its position", i)
	}
	w, h := back.SampleSize()
	assert.Equal(t, 6, w)
	assert.Equal(t, 6, h)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.srds"))
	assert.ErrorIs(t, err, fault.ErrDataset)

	garbage := filepath.Join(dir, "garbage.srds")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a container, padded out to 64 bytes ........."), 0o600))
	_, err = Load(garbage)
	assert.ErrorIs(t, err, fault.ErrDataset)

	ckpt := filepath.Join(dir, "weights-1")
	require.NoError(t, serialization.WriteFile(ckpt, serialization.Header{Kind: serialization.KindCheckpoint}, nil))
	_, err = Load(ckpt)
	assert.ErrorIs(t, err, fault.ErrDataset)
}

func TestLoadFolder(t *testing.T) {
	dir := t.TempDir()
	for i, size := range []int{12, 10, 5, 16} {
		im := imaging.New(size, size)
		for j := range im.Pix {
			im.Pix[j] = float32(i+1) / 10
		}
		require.NoError(t, imaging.SavePNG(filepath.Join(dir, "sub", string(rune('a'+i))+".png"), im))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	ds, err := LoadFolder(context.Background(), dir, FolderOptions{CropSize: 8, Workers: 2})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len(), "the 5x5 image is skipped")

	got, err := ds.Slice(0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got[0].Pix[0], 1e-2)
	assert.InDelta(t, 0.2, got[1].Pix[0], 1e-2)
	assert.InDelta(t, 0.4, got[2].Pix[0], 1e-2)

	_, err = LoadFolder(context.Background(), dir, FolderOptions{CropSize: 64})
	assert.ErrorIs(t, err, fault.ErrDataset)

	_, err = LoadFolder(context.Background(), t.TempDir(), FolderOptions{CropSize: 8})
	assert.ErrorIs(t, err, fault.ErrDataset)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = LoadFolder(ctx, dir, FolderOptions{CropSize: 8})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLowRes(t *testing.T) {
	cc, err := compute.New("", 2, compute.WithHostProbe(func() (compute.HostInfo, error) {
		return compute.HostInfo{}, nil
	}))
	require.NoError(t, err)

	hr := []*imaging.Image{imaging.New(18, 18), imaging.New(16, 16)}
	lr, target, err := LowRes(hr, 4, cc)
	require.NoError(t, err)
	assert.Equal(t, 4, lr[0].W)
	assert.Equal(t, 16, target[0].W)
	assert.Equal(t, 4, lr[1].H)

	_, _, err = LowRes([]*imaging.Image{imaging.New(2, 2)}, 4, cc)
	assert.Error(t, err)
}
