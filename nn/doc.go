// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the trainable building blocks of super-resolution
// networks.
//
// # Overview
//
// This package contains:
//   - Module interface and Parameter (a named tensor with a gradient buffer)
//   - StateDict / LoadStateDict over any Module
//   - Initialization: Xavier, Zeros
//   - Content losses: mse, L1, edge_loss_mse, edge_loss_L1
//
// # Content losses
//
// A LossKind computes the mean per-element penalty between a prediction and
// its target and accumulates dLoss/dPred into a gradient buffer. The edge
// variants add the same penalty on horizontal and vertical finite
// differences, which favours sharp reconstructions:
//
//	kind, err := nn.ParseLossKind("edge_loss_L1")
//	if err != nil {
//	    return err
//	}
//	grad := make([]float32, len(pred))
//	loss, err := kind.ContentLoss(pred, target, h, w, 3, grad, 1)
//
// # State dicts
//
//	sd := nn.StateDict("generator.", net)
//	err := nn.LoadStateDict("generator.", other, sd)
package nn
