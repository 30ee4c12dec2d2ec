// Package nn implements the trainable building blocks of the reference
// super-resolution network:
//   - Module interface: anything that owns parameters
//   - Parameter: a named tensor with a gradient buffer
//   - Init: Xavier and zero initialisation
//   - Content losses: MSE, L1 and their edge-aware variants with analytic gradients
package nn

import (
	"fmt"

	"github.com/born-ml/superres/internal/tensor"
)

// Module is implemented by every component that owns trainable parameters.
type Module interface {
	// Parameters returns all trainable parameters in a stable order.
	Parameters() []*Parameter
}

// StateDict returns the module's parameters keyed by prefix + parameter name.
// The returned tensors are copies.
func StateDict(prefix string, m Module) map[string]*tensor.Tensor {
	params := m.Parameters()
	sd := make(map[string]*tensor.Tensor, len(params))
	for _, p := range params {
		sd[prefix+p.Name()] = p.Tensor().Clone()
	}
	return sd
}

// LoadStateDict copies prefix + parameter name entries of sd into the module.
// Every parameter must be present with a matching shape; extra keys are ignored.
func LoadStateDict(prefix string, m Module, sd map[string]*tensor.Tensor) error {
	for _, p := range m.Parameters() {
		key := prefix + p.Name()
		src, ok := sd[key]
		if !ok {
			return fmt.Errorf("missing parameter %q", key)
		}
		if err := p.Tensor().CopyFrom(src); err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
	}
	return nil
}
