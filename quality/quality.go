// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package quality scores a super-resolved image against its ground truth.
//
// PSNR and SSIM are computed on BT.601 luma with a border of scale pixels
// removed, the convention used by published super-resolution results:
//
//	psnr, ssim, err := quality.Canonical(4).Measure(sr, hr)
package quality

import "github.com/born-ml/superres/internal/quality"

// Convention fixes how images are compared.
type Convention = quality.Convention

// Luma maps RGB in [0, 1] to a luminance value.
type Luma = quality.Luma

// BT601 is ITU-R BT.601 luma on the [0, 255] scale.
var BT601 = quality.BT601

// MaxPSNR is reported for identical images.
const MaxPSNR = quality.MaxPSNR

// ErrWindowTooLarge is returned by SSIM for images smaller than the window.
var ErrWindowTooLarge = quality.ErrWindowTooLarge

// Canonical returns BT.601 luma on [0, 255] with a border of scale pixels removed.
func Canonical(scale int) Convention {
	return quality.Canonical(scale)
}
