package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func gradient(w, h int) *Image {
	im := New(w, h)
	for y := range h {
		for x := range w {
			i := im.Offset(x, y, 0)
			im.Pix[i] = float32(x) / float32(w)
			im.Pix[i+1] = float32(y) / float32(h)
			im.Pix[i+2] = 0.5
		}
	}
	return im
}

func TestFromPix(t *testing.T) {
	_, err := FromPix(2, 2, make([]float32, 11))
	assert.Error(t, err)

	im, err := FromPix(2, 1, []float32{0, 0.5, 1, 1, 0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), im.At(1, 0, 1))
}

func TestPNGRoundTrip(t *testing.T) {
	im := gradient(7, 5)
	path := filepath.Join(t.TempDir(), "out", "im.png")
	require.NoError(t, SavePNG(path, im))

	back, err := Load(path)
	require.NoError(t, err)
	require.True(t, back.SameSize(im))
	q := im.Quantize()
	for i := range q.Pix {
		assert.InDelta(t, q.Pix[i], back.Pix[i], 1e-6)
	}
}

func TestDecodeStdImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	im, err := Decode(&buf)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, im.At(1, 1, 0), 1e-6)
	assert.InDelta(t, 0.2, im.At(1, 1, 2), 1e-6)

	_, err = Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestCrops(t *testing.T) {
	im := gradient(10, 8)

	c, err := im.CenterCrop(4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.W)
	assert.Equal(t, im.At(3, 2, 0), c.At(0, 0, 0))

	_, err = im.CenterCrop(9)
	assert.Error(t, err)

	m := im.ModCrop(4)
	assert.Equal(t, 8, m.W)
	assert.Equal(t, 8, m.H)
	assert.Equal(t, im.At(7, 7, 1), m.At(7, 7, 1))
}

func TestResize(t *testing.T) {
	flat := New(8, 8)
	for i := range flat.Pix {
		flat.Pix[i] = 0.25
	}

	lr, err := Downsample(flat, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, lr.W)
	for _, v := range lr.Pix {
		assert.InDelta(t, 0.25, v, 1e-3)
	}

	up := Upsample(lr, 4)
	assert.Equal(t, 8, up.W)
	assert.Equal(t, 8, up.H)
	for _, v := range up.Pix {
		assert.InDelta(t, 0.25, v, 1e-3)
	}

	_, err = Downsample(New(3, 3), 4)
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	im, err := FromPix(1, 1, []float32{-0.5, 0.5, 1.5})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 1}, im.Clamp().Pix)
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.bmp", "e.tif", "f.TIFF"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"reference.yaml", "loss.csv", "noext"} {
		assert.False(t, IsImageFile(name), name)
	}
}

func TestDecodeBMP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, src))

	im, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, im.W)
	assert.InDelta(t, 1.0, im.At(1, 1, 0), 1e-6)
	assert.InDelta(t, 0.0, im.At(1, 1, 1), 1e-6)
}
