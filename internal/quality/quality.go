// Package quality computes PSNR and SSIM between a super-resolved image and
// its high-resolution reference under an explicit colour convention.
//
// Both benchmark validation and benchmark evaluation use the same
// Convention value, so shipped reference numbers and freshly computed ones
// are always comparable.
package quality

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/superres/internal/imaging"
)

// MaxPSNR is reported for identical images.
const MaxPSNR = 100.0

// Luma maps RGB in [0, 1] to a luminance value: Y = Offset + R*r + G*g + B*b.
type Luma struct {
	Offset, R, G, B float64
}

// BT601 is ITU-R BT.601 luma on the [0, 255] scale (studio swing, 16..235).
var BT601 = Luma{Offset: 16, R: 65.481, G: 128.553, B: 24.966}

// Convention fixes how images are compared.
type Convention struct {
	Luma  Luma
	Peak  float64 // Dynamic range of Luma output
	Shave int     // Border pixels dropped on every side
}

// Canonical returns the convention used throughout: BT.601 luma on [0, 255]
// with a border equal to the upscale factor removed.
func Canonical(scale int) Convention {
	return Convention{Luma: BT601, Peak: 255, Shave: scale}
}

// String implements fmt.Stringer.
func (c Convention) String() string {
	return fmt.Sprintf("Y=%g+%g*R+%g*G+%g*B peak=%g shave=%d",
		c.Luma.Offset, c.Luma.R, c.Luma.G, c.Luma.B, c.Peak, c.Shave)
}

// plane is a single-channel float64 image.
type plane struct {
	w, h int
	v    []float64
}

func (p plane) at(x, y int) float64 {
	return p.v[y*p.w+x]
}

// luma converts im to the shaved luminance plane.
func (c Convention) luma(im *imaging.Image) (plane, error) {
	w, h := im.W-2*c.Shave, im.H-2*c.Shave
	if w <= 0 || h <= 0 {
		return plane{}, fmt.Errorf("image %dx%d is too small to shave %d pixels", im.W, im.H, c.Shave)
	}
	p := plane{w: w, h: h, v: make([]float64, w*h)}
	for y := range h {
		for x := range w {
			i := im.Offset(x+c.Shave, y+c.Shave, 0)
			p.v[y*w+x] = c.Luma.Offset +
				c.Luma.R*float64(im.Pix[i]) +
				c.Luma.G*float64(im.Pix[i+1]) +
				c.Luma.B*float64(im.Pix[i+2])
		}
	}
	return p, nil
}

func (c Convention) planes(sr, hr *imaging.Image) (plane, plane, error) {
	if !sr.SameSize(hr) {
		return plane{}, plane{}, fmt.Errorf("size mismatch: sr %dx%d, hr %dx%d", sr.W, sr.H, hr.W, hr.H)
	}
	a, err := c.luma(sr)
	if err != nil {
		return plane{}, plane{}, err
	}
	b, err := c.luma(hr)
	if err != nil {
		return plane{}, plane{}, err
	}
	return a, b, nil
}

// PSNR returns the peak signal-to-noise ratio in dB, capped at MaxPSNR.
func (c Convention) PSNR(sr, hr *imaging.Image) (float64, error) {
	a, b, err := c.planes(sr, hr)
	if err != nil {
		return 0, err
	}
	var mse float64
	for i := range a.v {
		d := a.v[i] - b.v[i]
		mse += d * d
	}
	mse /= float64(len(a.v))
	if mse == 0 {
		return MaxPSNR, nil
	}
	return math.Min(10*math.Log10(c.Peak*c.Peak/mse), MaxPSNR), nil
}

// ErrWindowTooLarge is returned when the shaved image is smaller than the SSIM window.
var ErrWindowTooLarge = errors.New("image smaller than SSIM window")

// SSIM window parameters.
const (
	ssimWindow = 11
	ssimSigma  = 1.5
	ssimK1     = 0.01
	ssimK2     = 0.03
)

var ssimKernel = gaussianKernel(ssimWindow, ssimSigma)

func gaussianKernel(size int, sigma float64) []float64 {
	k := make([]float64, size*size)
	half := float64(size-1) / 2
	var sum float64
	for y := range size {
		for x := range size {
			dx, dy := float64(x)-half, float64(y)-half
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			k[y*size+x] = v
			sum += v
		}
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// SSIM returns the mean structural similarity over every valid window
// position (Gaussian 11×11, σ=1.5, K1=0.01, K2=0.03).
func (c Convention) SSIM(sr, hr *imaging.Image) (float64, error) {
	a, b, err := c.planes(sr, hr)
	if err != nil {
		return 0, err
	}
	if a.w < ssimWindow || a.h < ssimWindow {
		return 0, fmt.Errorf("%w: %dx%d after shave", ErrWindowTooLarge, a.w, a.h)
	}

	c1 := (ssimK1 * c.Peak) * (ssimK1 * c.Peak)
	c2 := (ssimK2 * c.Peak) * (ssimK2 * c.Peak)

	outW, outH := a.w-ssimWindow+1, a.h-ssimWindow+1
	var total float64
	for y := range outH {
		for x := range outW {
			var muA, muB, aa, bb, ab float64
			for ky := range ssimWindow {
				for kx := range ssimWindow {
					wgt := ssimKernel[ky*ssimWindow+kx]
					va, vb := a.at(x+kx, y+ky), b.at(x+kx, y+ky)
					muA += wgt * va
					muB += wgt * vb
					aa += wgt * va * va
					bb += wgt * vb * vb
					ab += wgt * va * vb
				}
			}
			varA := aa - muA*muA
			varB := bb - muB*muB
			cov := ab - muA*muB
			total += ((2*muA*muB + c1) * (2*cov + c2)) /
				((muA*muA + muB*muB + c1) * (varA + varB + c2))
		}
	}
	return total / float64(outW*outH), nil
}

// Measure returns PSNR and SSIM together.
func (c Convention) Measure(sr, hr *imaging.Image) (psnr, ssim float64, err error) {
	if psnr, err = c.PSNR(sr, hr); err != nil {
		return 0, 0, err
	}
	if ssim, err = c.SSIM(sr, hr); err != nil {
		return 0, 0, err
	}
	return psnr, ssim, nil
}
