// Package imaging provides the float RGB image type shared by datasets,
// the trainable and the benchmarks, plus decoding, cropping and bicubic
// resampling.
//
// Pixels are stored row-major, interleaved RGB (HWC), in [0, 1].
package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
)

// Channels is the number of colour channels of an Image.
const Channels = 3

// Image is a float32 RGB image.
type Image struct {
	W, H int
	Pix  []float32
}

// New allocates a black image.
func New(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]float32, w*h*Channels)}
}

// FromPix wraps pix (HWC, len w*h*3) without copying.
func FromPix(w, h int, pix []float32) (*Image, error) {
	if w <= 0 || h <= 0 || len(pix) != w*h*Channels {
		return nil, fmt.Errorf("image %dx%d needs %d values, got %d", w, h, w*h*Channels, len(pix))
	}
	return &Image{W: w, H: h, Pix: pix}, nil
}

// Offset returns the index of channel c of pixel (x, y).
func (im *Image) Offset(x, y, c int) int {
	return (y*im.W+x)*Channels + c
}

// At returns channel c of pixel (x, y).
func (im *Image) At(x, y, c int) float32 {
	return im.Pix[im.Offset(x, y, c)]
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	c := New(im.W, im.H)
	copy(c.Pix, im.Pix)
	return c
}

// SameSize reports whether both images have equal dimensions.
func (im *Image) SameSize(o *Image) bool {
	return im.W == o.W && im.H == o.H
}

// Clamp returns a copy with every value limited to [0, 1].
func (im *Image) Clamp() *Image {
	c := New(im.W, im.H)
	for i, v := range im.Pix {
		c.Pix[i] = clamp01(v)
	}
	return c
}

// FromStd converts any image.Image to an Image. Alpha is ignored.
func FromStd(src image.Image) *Image {
	b := src.Bounds()
	im := New(b.Dx(), b.Dy())
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := im.Offset(x, y, 0)
			im.Pix[i] = float32(r) / 0xffff
			im.Pix[i+1] = float32(g) / 0xffff
			im.Pix[i+2] = float32(bl) / 0xffff
		}
	}
	return im
}

// ToRGBA64 converts to a 16-bit opaque image, clamping to [0, 1].
func (im *Image) ToRGBA64() *image.RGBA64 {
	dst := image.NewRGBA64(image.Rect(0, 0, im.W, im.H))
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			i := im.Offset(x, y, 0)
			dst.SetRGBA64(x, y, color.RGBA64{
				R: to16(im.Pix[i]),
				G: to16(im.Pix[i+1]),
				B: to16(im.Pix[i+2]),
				A: 0xffff,
			})
		}
	}
	return dst
}

// ToNRGBA converts to an 8-bit opaque image, clamping to [0, 1] and rounding.
func (im *Image) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, im.W, im.H))
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			i := im.Offset(x, y, 0)
			dst.SetNRGBA(x, y, color.NRGBA{
				R: to8(im.Pix[i]),
				G: to8(im.Pix[i+1]),
				B: to8(im.Pix[i+2]),
				A: 0xff,
			})
		}
	}
	return dst
}

// Quantize rounds every value to the nearest 8-bit level, as writing and
// re-reading a PNG would.
func (im *Image) Quantize() *Image {
	c := New(im.W, im.H)
	for i, v := range im.Pix {
		c.Pix[i] = float32(to8(v)) / 0xff
	}
	return c
}

// Decode reads a PNG, JPEG, BMP or TIFF image.
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromStd(src), nil
}

// Load decodes the image file at path.
func Load(path string) (*Image, error) {
	//nolint:gosec // G304: image paths come from operator-supplied directories
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	im, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return im, nil
}

// SavePNG writes im to path as an 8-bit PNG, creating parent directories.
func SavePNG(path string, im *Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	//nolint:gosec // G304: output paths are built from the run directory
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, im.ToNRGBA()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

func clamp01(v float32) float32 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func to16(v float32) uint16 {
	return uint16(clamp01(v)*0xffff + 0.5)
}

func to8(v float32) uint8 {
	return uint8(clamp01(v)*0xff + 0.5)
}
