package quality

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/superres/internal/imaging"
)

func noisy(w, h int, seed int64) *imaging.Image {
	rng := rand.New(rand.NewSource(seed))
	im := imaging.New(w, h)
	for i := range im.Pix {
		im.Pix[i] = rng.Float32()
	}
	return im
}

func TestCanonical(t *testing.T) {
	c := Canonical(4)
	assert.Equal(t, BT601, c.Luma)
	assert.Equal(t, 255.0, c.Peak)
	assert.Equal(t, 4, c.Shave)
	assert.Contains(t, c.String(), "shave=4")
}

func TestPSNRIdenticalIsCapped(t *testing.T) {
	im := noisy(24, 24, 1)
	p, err := Canonical(4).PSNR(im, im.Clone())
	require.NoError(t, err)
	assert.Equal(t, MaxPSNR, p)
}

func TestPSNRKnownValue(t *testing.T) {
	a := imaging.New(16, 16)
	b := imaging.New(16, 16)
	// A uniform green offset of 1/128.553 shifts Y by exactly 1.
	for i := 1; i < len(b.Pix); i += 3 {
		b.Pix[i] = float32(1 / 128.553)
	}
	p, err := Canonical(2).PSNR(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Log10(255*255), p, 1e-3)
}

func TestSSIM(t *testing.T) {
	c := Canonical(4)
	im := noisy(32, 32, 2)

	s, err := c.SSIM(im, im.Clone())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-9)

	other := noisy(32, 32, 3)
	s, err = c.SSIM(im, other)
	require.NoError(t, err)
	assert.Less(t, s, 0.5)
	assert.Greater(t, s, -1.0)

	_, err = c.SSIM(imaging.New(16, 16), imaging.New(16, 16))
	assert.ErrorIs(t, err, ErrWindowTooLarge)
}

func TestMeasureErrors(t *testing.T) {
	c := Canonical(4)
	_, _, err := c.Measure(imaging.New(32, 32), imaging.New(32, 28))
	assert.ErrorContains(t, err, "size mismatch")

	_, _, err = c.Measure(imaging.New(8, 8), imaging.New(8, 8))
	assert.ErrorContains(t, err, "too small")
}

// TestConventionsDisagree shows that a wrong luma scale moves PSNR by far
// more than any reasonable tolerance.
func TestConventionsDisagree(t *testing.T) {
	hr := noisy(32, 32, 4)
	sr := hr.Clone()
	for i := range sr.Pix {
		sr.Pix[i] = float32(math.Min(1, float64(sr.Pix[i])+0.02))
	}

	good, err := Canonical(4).PSNR(sr, hr)
	require.NoError(t, err)

	unit := Convention{Luma: Luma{R: 0.299, G: 0.587, B: 0.114}, Peak: 255, Shave: 4}
	wrong, err := unit.PSNR(sr, hr)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(good-wrong), 10.0)
}
