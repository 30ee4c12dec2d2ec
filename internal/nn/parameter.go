package nn

import (
	"github.com/born-ml/superres/internal/tensor"
)

// Parameter represents a trainable tensor and its gradient.
//
// The gradient buffer has the parameter's shape and is accumulated into by
// the owning module's backward pass; optimizers read it and ZeroGrad clears it.
type Parameter struct {
	name   string
	tensor *tensor.Tensor
	grad   *tensor.Tensor
}

// NewParameter creates a parameter around an initialised tensor.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: t,
		grad:   tensor.Zeros(t.Shape),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Grad returns the gradient buffer.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// ZeroGrad clears the gradient buffer.
func (p *Parameter) ZeroGrad() {
	p.grad.Fill(0)
}
