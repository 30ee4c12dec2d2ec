// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package imaging provides the float32 RGB image type exchanged with a
// super-resolution network, with PNG/JPEG/BMP/TIFF decoding and the
// bicubic resampling used to derive low-resolution inputs.
package imaging

import "github.com/born-ml/superres/internal/imaging"

// Image is a float32 RGB image with values in [0, 1], stored HWC.
type Image = imaging.Image

// New allocates a black image.
func New(w, h int) *Image {
	return imaging.New(w, h)
}

// Load decodes the image file at path.
func Load(path string) (*Image, error) {
	return imaging.Load(path)
}

// SavePNG writes im to path as an 8-bit PNG.
func SavePNG(path string, im *Image) error {
	return imaging.SavePNG(path, im)
}

// Downsample shrinks im by factor with bicubic filtering. Both sides must
// be divisible by factor.
func Downsample(im *Image, factor int) (*Image, error) {
	return imaging.Downsample(im, factor)
}

// Upsample enlarges im by factor with bicubic filtering.
func Upsample(im *Image, factor int) *Image {
	return imaging.Upsample(im, factor)
}
