// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package model

import (
	"github.com/born-ml/superres/internal/model"
	"github.com/born-ml/superres/internal/model/srnet"
)

// Trainable is a super-resolution network the driver can train and evaluate.
type Trainable = model.Trainable

// Mode selects training or inference behaviour of Forward.
type Mode = model.Mode

// Forward modes.
const (
	ModeTrain = model.ModeTrain
	ModeEval  = model.ModeEval
)

// Loss is the scalar produced by ComputeLoss.
type Loss = model.Loss

// Scope selects which part of the state a restore covers.
type Scope = model.Scope

// Restore scopes.
const (
	ScopeAll       = model.ScopeAll
	ScopeGenerator = model.ScopeGenerator
)

// State dict key prefixes.
const (
	GeneratorPrefix = model.GeneratorPrefix
	OptimizerPrefix = model.OptimizerPrefix
)

// Architecture is the static description of a network.
type Architecture = model.Architecture

// Layer describes one stage of an Architecture.
type Layer = model.Layer

// SRNet is the reference network: bicubic upsampling plus a learned 3x3
// residual convolution.
type SRNet = srnet.Net

// SRNetConfig holds the SRNet hyperparameters.
type SRNetConfig = srnet.Config

// NewSRNet builds an SRNet on a CPU compute context using every core.
func NewSRNet(cfg SRNetConfig) (*SRNet, error) {
	return srnet.New(cfg, nil)
}
