// Package optim implements the optimizers used to train the reference network.
//
// Optimizers read the gradient buffers of nn.Parameter values, update the
// parameters in place and expose their internal state so it can be stored
// with a checkpoint:
//
//	opt := optim.NewAdam(net.Parameters(), optim.AdamConfig{LR: 1e-4})
//	for _, batch := range batches {
//	    opt.ZeroGrad()
//	    backward(net, batch) // accumulates into Parameter.Grad()
//	    opt.Step()
//	}
package optim

import (
	"github.com/born-ml/superres/internal/tensor"
)

// Optimizer is the interface implemented by every optimizer.
type Optimizer interface {
	// Step applies one update using the current parameter gradients.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR changes the learning rate.
	SetLR(lr float32)

	// StateDict returns the optimizer's internal state as named tensors.
	StateDict() map[string]*tensor.Tensor

	// LoadStateDict restores state produced by StateDict.
	LoadStateDict(sd map[string]*tensor.Tensor) error

	// Name identifies the algorithm in checkpoint metadata.
	Name() string
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float32 // Learning rate
}
