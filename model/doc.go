// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model defines the contract between the training driver and a
// super-resolution network, and exposes the reference network srnet.
//
// # Overview
//
// A Trainable super-resolves batches of low-resolution images, scores them
// against high-resolution targets, and applies one optimizer step per loss:
//
//	net, err := model.NewSRNet(model.SRNetConfig{Scale: 4, LearningRate: 1e-4})
//	if err != nil {
//	    return err
//	}
//	sr, err := net.Forward(lr, model.ModeTrain)
//	loss, err := net.ComputeLoss(hr, sr)
//	err = net.OptimizeStep(loss)
//
// # Persistence
//
// StateDict keys carry GeneratorPrefix or OptimizerPrefix. LoadStateDict
// with ScopeGenerator restores weights only, which is how a pretrained
// generator seeds a fresh run.
package model
