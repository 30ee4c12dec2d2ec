package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestIgnoresHyperparameters(t *testing.T) {
	a := Architecture{
		Name:        "srnet",
		Scale:       4,
		ContentLoss: "mse",
		Optimizer:   "Adam",
		Layers: []Layer{
			{Name: "upsample", Kind: "bicubic"},
			{Name: "residual", Kind: "conv2d", Params: map[string][]int{"weight": {3, 3, 3, 3}, "bias": {3}}},
		},
	}
	b := a
	b.ContentLoss = "L1"
	b.OptimizerConfig = map[string]any{"lr": 1e-3}
	assert.Equal(t, a.Digest(), b.Digest())

	c := a
	c.Scale = 2
	assert.NotEqual(t, a.Digest(), c.Digest())
	assert.Len(t, a.Digest(), 64)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "train", ModeTrain.String())
	assert.Equal(t, "eval", ModeEval.String())
}
