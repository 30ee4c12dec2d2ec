// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizer used to train super-resolution
// networks.
//
// # Overview
//
// This package contains:
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	params := net.Parameters()
//	opt := optim.NewAdam(params, optim.AdamConfig{LR: 1e-4})
//
//	for step := range steps {
//	    opt.ZeroGrad()
//	    // ... accumulate gradients into each parameter's Grad() ...
//	    opt.Step()
//	}
//
// # Checkpointing
//
// StateDict returns the first and second moments ("m.<param>", "v.<param>")
// and the step counter ("step"), so a restored optimizer continues with the
// same bias correction. LoadStateDict reverses it.
package optim
