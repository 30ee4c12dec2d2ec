// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/superres/internal/nn"
	"github.com/born-ml/superres/internal/tensor"
)

// Module is implemented by every component that owns trainable parameters.
type Module = nn.Module

// Parameter is a named tensor with a gradient buffer.
type Parameter = nn.Parameter

// NewParameter creates a parameter and allocates its gradient.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return nn.NewParameter(name, t)
}

// StateDict returns copies of m's parameters keyed by prefix + name.
func StateDict(prefix string, m Module) map[string]*tensor.Tensor {
	return nn.StateDict(prefix, m)
}

// LoadStateDict copies sd into m's parameters. Every parameter must be present.
func LoadStateDict(prefix string, m Module, sd map[string]*tensor.Tensor) error {
	return nn.LoadStateDict(prefix, m, sd)
}

// Xavier returns a tensor with Xavier/Glorot uniform initialization.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	return nn.Xavier(fanIn, fanOut, shape, rng)
}

// Zeros returns a zero-initialized tensor.
func Zeros(shape tensor.Shape) *tensor.Tensor {
	return nn.Zeros(shape)
}

// LossKind selects a content loss.
type LossKind = nn.LossKind

// Content losses.
const (
	LossMSE     = nn.LossMSE
	LossL1      = nn.LossL1
	LossEdgeMSE = nn.LossEdgeMSE
	LossEdgeL1  = nn.LossEdgeL1
)

// ParseLossKind validates a loss name.
func ParseLossKind(s string) (LossKind, error) {
	return nn.ParseLossKind(s)
}
