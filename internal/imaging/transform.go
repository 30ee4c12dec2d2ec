package imaging

import (
	"fmt"

	"golang.org/x/image/draw"
)

// Crop returns the w×h region with top-left corner (x, y).
func (im *Image) Crop(x, y, w, h int) (*Image, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > im.W || y+h > im.H {
		return nil, fmt.Errorf("crop %dx%d+%d+%d outside %dx%d image", w, h, x, y, im.W, im.H)
	}
	c := New(w, h)
	for row := range h {
		src := im.Offset(x, y+row, 0)
		copy(c.Pix[row*w*Channels:(row+1)*w*Channels], im.Pix[src:src+w*Channels])
	}
	return c, nil
}

// CenterCrop returns the centred size×size region.
func (im *Image) CenterCrop(size int) (*Image, error) {
	if size > im.W || size > im.H {
		return nil, fmt.Errorf("image %dx%d is smaller than crop size %d", im.W, im.H, size)
	}
	return im.Crop((im.W-size)/2, (im.H-size)/2, size, size)
}

// ModCrop trims the right and bottom edges so both sides are multiples of scale.
func (im *Image) ModCrop(scale int) *Image {
	w, h := im.W-im.W%scale, im.H-im.H%scale
	if w == im.W && h == im.H {
		return im
	}
	c, err := im.Crop(0, 0, w, h)
	if err != nil {
		// Only reachable for images smaller than scale.
		return New(max(w, 1), max(h, 1))
	}
	return c
}

// Resize resamples im to w×h with bicubic (Catmull-Rom) interpolation.
// Values are carried at 16-bit precision and clamped to [0, 1].
func Resize(im *Image, w, h int) *Image {
	if w == im.W && h == im.H {
		return im.Clone()
	}
	src := im.ToRGBA64()
	dst := New(w, h).ToRGBA64()
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FromStd(dst)
}

// Downsample mod-crops im to a multiple of factor and shrinks it by factor.
func Downsample(im *Image, factor int) (*Image, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("downsample factor must be positive, got %d", factor)
	}
	if im.W < factor || im.H < factor {
		return nil, fmt.Errorf("image %dx%d is smaller than downsample factor %d", im.W, im.H, factor)
	}
	hr := im.ModCrop(factor)
	return Resize(hr, hr.W/factor, hr.H/factor), nil
}

// Upsample enlarges im by factor.
func Upsample(im *Image, factor int) *Image {
	return Resize(im, im.W*factor, im.H*factor)
}
