// Package srnet is the reference super-resolution network: bicubic
// upsampling followed by a learned 3×3 residual convolution.
//
//	out = up(lr) + conv3x3(up(lr); W) + b
//
// W and b start at zero, so an untrained network reproduces bicubic
// upsampling exactly. Gradients are computed analytically and applied with
// Adam.
package srnet

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/born-ml/superres/internal/compute"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/model"
	"github.com/born-ml/superres/internal/nn"
	"github.com/born-ml/superres/internal/optim"
	"github.com/born-ml/superres/internal/tensor"
)

// Name identifies the architecture in graph.json.
const Name = "srnet"

const (
	kernel   = 3
	channels = imaging.Channels
)

// Initializations for the residual weights.
const (
	InitZero   = "zero"
	InitXavier = "xavier"
)

// Config holds the network hyperparameters.
type Config struct {
	Scale        int
	LearningRate float32
	ContentLoss  nn.LossKind
	Init         string // InitZero (default) or InitXavier
	Seed         int64  // Seed for InitXavier
	UseGAN       bool
	VGGWeights   string // Recorded in the architecture metadata only
}

// ErrNoTrainingPass is returned by OptimizeStep for a loss that was not
// computed from a ModeTrain forward pass.
var ErrNoTrainingPass = errors.New("loss was not computed from a training forward pass")

// Net is the reference trainable.
type Net struct {
	cfg    Config
	cc     *compute.Context
	weight *nn.Parameter // [out, in, ky, kx]
	bias   *nn.Parameter // [out]
	opt    *optim.Adam

	mu    sync.Mutex
	cache *forwardCache
}

// forwardCache holds the activations of the last ModeTrain forward pass.
type forwardCache struct {
	up  []*imaging.Image
	out []*imaging.Image
}

// Loss is the mean content loss over a batch together with dLoss/dOutput.
type Loss struct {
	value float64
	grads [][]float32
	cache *forwardCache
}

// Value returns the scalar loss.
func (l *Loss) Value() float64 {
	return l.value
}

// New builds the network.
func New(cfg Config, cc *compute.Context) (*Net, error) {
	if cfg.UseGAN {
		return nil, fault.Configf("use-gan: %s has no discriminator", Name)
	}
	if cfg.Scale < 1 {
		return nil, fault.Configf("scale must be >= 1, got %d", cfg.Scale)
	}
	if cfg.LearningRate <= 0 {
		return nil, fault.Configf("learning rate must be > 0, got %g", cfg.LearningRate)
	}
	if cfg.ContentLoss == "" {
		cfg.ContentLoss = nn.LossMSE
	}
	if _, err := nn.ParseLossKind(string(cfg.ContentLoss)); err != nil {
		return nil, err
	}
	if cc == nil {
		var err error
		if cc, err = compute.New("", 0); err != nil {
			return nil, err
		}
	}

	wShape := tensor.Shape{channels, channels, kernel, kernel}
	var w *tensor.Tensor
	switch cfg.Init {
	case "", InitZero:
		cfg.Init = InitZero
		w = nn.Zeros(wShape)
	case InitXavier:
		fan := channels * kernel * kernel
		//nolint:gosec // G404: weight initialisation is not security sensitive
		w = nn.Xavier(fan, fan, wShape, rand.New(rand.NewSource(cfg.Seed)))
	default:
		return nil, fault.Configf("unknown init %q", cfg.Init)
	}

	n := &Net{
		cfg:    cfg,
		cc:     cc,
		weight: nn.NewParameter("residual.weight", w),
		bias:   nn.NewParameter("residual.bias", nn.Zeros(tensor.Shape{channels})),
	}
	n.opt = optim.NewAdam(n.Parameters(), optim.AdamConfig{LR: cfg.LearningRate})
	return n, nil
}

// Parameters implements nn.Module.
func (n *Net) Parameters() []*nn.Parameter {
	return []*nn.Parameter{n.weight, n.bias}
}

// Scale returns the upscaling factor.
func (n *Net) Scale() int {
	return n.cfg.Scale
}

// Optimizer exposes the optimizer for learning-rate changes.
func (n *Net) Optimizer() optim.Optimizer {
	return n.opt
}

// Forward upsamples each image and adds the residual convolution.
func (n *Net) Forward(lr []*imaging.Image, mode model.Mode) ([]*imaging.Image, error) {
	for i, im := range lr {
		if im == nil || im.W == 0 || im.H == 0 {
			return nil, fmt.Errorf("forward: sample %d is empty", i)
		}
	}

	up := make([]*imaging.Image, len(lr))
	out := make([]*imaging.Image, len(lr))
	n.cc.For(len(lr), func(i int) {
		up[i] = imaging.Upsample(lr[i], n.cfg.Scale)
		out[i] = up[i].Clone()
	})
	// Rows are independent, so a single large image still spreads across workers.
	rows := 0
	for _, im := range up {
		rows = max(rows, im.H)
	}
	n.cc.ForBatch(len(up), rows, func(i, y int) {
		if y < up[i].H {
			n.residualRow(up[i], out[i], y)
		}
	})

	n.mu.Lock()
	if mode == model.ModeTrain {
		n.cache = &forwardCache{up: up, out: out}
	}
	n.mu.Unlock()
	return out, nil
}

// residualRow adds conv(up) + b to row y of out, with zero padding.
func (n *Net) residualRow(up, out *imaging.Image, y int) {
	w := n.weight.Tensor().Data
	b := n.bias.Tensor().Data
	for x := range up.W {
		for o := range channels {
			acc := b[o]
			base := o * channels * kernel * kernel
			for ky := range kernel {
				sy := y + ky - 1
				if sy < 0 || sy >= up.H {
					continue
				}
				for kx := range kernel {
					sx := x + kx - 1
					if sx < 0 || sx >= up.W {
						continue
					}
					src := up.Offset(sx, sy, 0)
					for c := range channels {
						acc += w[base+(c*kernel+ky)*kernel+kx] * up.Pix[src+c]
					}
				}
			}
			out.Pix[out.Offset(x, y, o)] += acc
		}
	}
}

// ComputeLoss averages the content loss over the batch.
func (n *Net) ComputeLoss(hr, sr []*imaging.Image) (model.Loss, error) {
	if len(hr) != len(sr) || len(sr) == 0 {
		return nil, fmt.Errorf("loss: %d targets for %d outputs", len(hr), len(sr))
	}
	for i := range sr {
		if !hr[i].SameSize(sr[i]) {
			return nil, fmt.Errorf("loss: sample %d: output %dx%d, target %dx%d",
				i, sr[i].W, sr[i].H, hr[i].W, hr[i].H)
		}
	}

	n.mu.Lock()
	cache := n.cache
	n.mu.Unlock()
	if cache != nil && (len(cache.out) != len(sr) || cache.out[0] != sr[0]) {
		cache = nil
	}

	loss := &Loss{cache: cache}
	values := make([]float64, len(sr))
	errs := make([]error, len(sr))
	if cache != nil {
		loss.grads = make([][]float32, len(sr))
	}
	weight := 1 / float64(len(sr))
	n.cc.For(len(sr), func(i int) {
		var grad []float32
		if cache != nil {
			grad = make([]float32, len(sr[i].Pix))
			loss.grads[i] = grad
		}
		values[i], errs[i] = n.cfg.ContentLoss.ContentLoss(
			sr[i].Pix, hr[i].Pix, sr[i].H, sr[i].W, imaging.Channels, grad, weight)
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for _, v := range values {
		loss.value += v * weight
	}
	if !nn.IsFinite(loss.value) {
		return nil, fmt.Errorf("loss is not finite: %v", loss.value)
	}
	return loss, nil
}

// OptimizeStep backpropagates loss into the residual parameters and takes
// one Adam step.
func (n *Net) OptimizeStep(l model.Loss) error {
	loss, ok := l.(*Loss)
	if !ok || loss.cache == nil {
		return ErrNoTrainingPass
	}
	n.mu.Lock()
	current := n.cache
	n.cache = nil
	n.mu.Unlock()
	if current != loss.cache {
		return ErrNoTrainingPass
	}

	n.opt.ZeroGrad()

	// Per-sample partial gradients, reduced afterwards to avoid sharing buffers.
	wGrads := make([][]float32, len(loss.grads))
	bGrads := make([][]float32, len(loss.grads))
	n.cc.For(len(loss.grads), func(i int) {
		wGrads[i], bGrads[i] = backward(loss.cache.up[i], loss.grads[i])
	})

	gw := n.weight.Grad().Data
	gb := n.bias.Grad().Data
	for i := range wGrads {
		for j, v := range wGrads[i] {
			gw[j] += v
		}
		for j, v := range bGrads[i] {
			gb[j] += v
		}
	}

	n.opt.Step()
	return nil
}

// backward returns dLoss/dW and dLoss/db for one sample.
func backward(up *imaging.Image, gOut []float32) ([]float32, []float32) {
	gw := make([]float32, channels*channels*kernel*kernel)
	gb := make([]float32, channels)
	for y := range up.H {
		for x := range up.W {
			for o := range channels {
				g := gOut[up.Offset(x, y, o)]
				if g == 0 {
					continue
				}
				gb[o] += g
				base := o * channels * kernel * kernel
				for ky := range kernel {
					sy := y + ky - 1
					if sy < 0 || sy >= up.H {
						continue
					}
					for kx := range kernel {
						sx := x + kx - 1
						if sx < 0 || sx >= up.W {
							continue
						}
						src := up.Offset(sx, sy, 0)
						for c := range channels {
							gw[base+(c*kernel+ky)*kernel+kx] += g * up.Pix[src+c]
						}
					}
				}
			}
		}
	}
	return gw, gb
}

// StateDict returns generator weights and optimizer state.
func (n *Net) StateDict() map[string]*tensor.Tensor {
	sd := nn.StateDict(model.GeneratorPrefix, n)
	for k, v := range n.opt.StateDict() {
		sd[model.OptimizerPrefix+k] = v
	}
	return sd
}

// LoadStateDict restores the selected state. Any cached training pass is dropped.
func (n *Net) LoadStateDict(sd map[string]*tensor.Tensor, scope model.Scope) error {
	if err := nn.LoadStateDict(model.GeneratorPrefix, n, sd); err != nil {
		return err
	}
	if scope == model.ScopeAll {
		opt := make(map[string]*tensor.Tensor)
		for k, v := range sd {
			if name, ok := strings.CutPrefix(k, model.OptimizerPrefix); ok {
				opt[name] = v
			}
		}
		if err := n.opt.LoadStateDict(opt); err != nil {
			return err
		}
	}
	n.mu.Lock()
	n.cache = nil
	n.mu.Unlock()
	return nil
}

// Architecture describes the network.
func (n *Net) Architecture() model.Architecture {
	return model.Architecture{
		Name:            Name,
		Scale:           n.cfg.Scale,
		ContentLoss:     string(n.cfg.ContentLoss),
		Optimizer:       n.opt.Name(),
		OptimizerConfig: n.opt.Config(),
		Layers: []model.Layer{
			{Name: "upsample", Kind: "bicubic"},
			{Name: "residual", Kind: "conv2d", Params: map[string][]int{
				"weight": {channels, channels, kernel, kernel},
				"bias":   {channels},
			}},
		},
		Metadata: map[string]any{
			"init":        n.cfg.Init,
			"vgg_weights": n.cfg.VGGWeights,
		},
	}
}

var (
	_ model.Trainable = (*Net)(nil)
	_ nn.Module       = (*Net)(nil)
)
