package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/superres/internal/nn"
	"github.com/born-ml/superres/internal/tensor"
)

// State dict key layout.
const (
	adamStepKey     = "step"
	adamFirstPrefix = "m."
	adamSecPrefix   = "v."
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	params []*nn.Parameter
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int                       // Timestep for bias correction
	m      map[string]*tensor.Tensor // First moment estimates, by parameter name
	v      map[string]*tensor.Tensor // Second moment estimates, by parameter name
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer. Zero config fields take the
// defaults LR 0.001, betas (0.9, 0.999), eps 1e-8.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	a := &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[string]*tensor.Tensor, len(params)),
		v:      make(map[string]*tensor.Tensor, len(params)),
	}
	for _, p := range params {
		a.m[p.Name()] = tensor.Zeros(p.Tensor().Shape)
		a.v[p.Name()] = tensor.Zeros(p.Tensor().Shape)
	}
	return a
}

// Step performs a single optimization step over every parameter.
func (a *Adam) Step() {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, p := range a.params {
		mData := a.m[p.Name()].Data
		vData := a.v[p.Name()].Data
		gradData := p.Grad().Data
		paramData := p.Tensor().Data

		for i := range paramData {
			g := gradData[i]
			mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g
			vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

			mHat := mData[i] / biasCorrection1
			vHat := vData[i] / biasCorrection2
			paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float32) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken.
func (a *Adam) GetTimestep() int {
	return a.t
}

// Name returns "Adam".
func (a *Adam) Name() string {
	return "Adam"
}

// Config returns the hyperparameters for checkpoint metadata.
func (a *Adam) Config() map[string]any {
	return map[string]any{
		"lr":    a.lr,
		"beta1": a.beta1,
		"beta2": a.beta2,
		"eps":   a.eps,
	}
}

// StateDict returns copies of the moment estimates and the timestep.
func (a *Adam) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor, 2*len(a.params)+1)
	for _, p := range a.params {
		sd[adamFirstPrefix+p.Name()] = a.m[p.Name()].Clone()
		sd[adamSecPrefix+p.Name()] = a.v[p.Name()].Clone()
	}
	step := tensor.Zeros(tensor.Shape{1})
	step.Data[0] = float32(a.t)
	sd[adamStepKey] = step
	return sd
}

// LoadStateDict restores moment estimates and the timestep.
func (a *Adam) LoadStateDict(sd map[string]*tensor.Tensor) error {
	step, ok := sd[adamStepKey]
	if !ok || len(step.Data) != 1 {
		return fmt.Errorf("adam state: missing %q", adamStepKey)
	}
	for _, p := range a.params {
		for _, pair := range []struct {
			key string
			dst *tensor.Tensor
		}{
			{adamFirstPrefix + p.Name(), a.m[p.Name()]},
			{adamSecPrefix + p.Name(), a.v[p.Name()]},
		} {
			src, ok := sd[pair.key]
			if !ok {
				return fmt.Errorf("adam state: missing %q", pair.key)
			}
			if err := pair.dst.CopyFrom(src); err != nil {
				return fmt.Errorf("adam state %q: %w", pair.key, err)
			}
		}
	}
	a.t = int(step.Data[0])
	return nil
}

var _ Optimizer = (*Adam)(nil)
