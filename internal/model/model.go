// Package model defines the contract between the training driver and a
// trainable super-resolution network.
//
// The driver never looks inside the network: it feeds low-resolution
// batches to Forward, scores the outputs with ComputeLoss and hands the loss
// back to OptimizeStep. Everything the network needs between those calls
// (cached activations, optimizer moments) is state it owns.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/tensor"
)

// Mode selects training or inference behaviour of Forward.
type Mode int

// Forward modes.
const (
	// ModeTrain keeps the activations needed by OptimizeStep.
	ModeTrain Mode = iota
	// ModeEval caches nothing and never changes parameters.
	ModeEval
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeTrain {
		return "train"
	}
	return "eval"
}

// Loss is the scalar produced by ComputeLoss. Implementations may carry
// whatever OptimizeStep needs to update parameters.
type Loss interface {
	Value() float64
}

// Scope selects which part of the state a restore covers.
type Scope int

// Restore scopes.
const (
	// ScopeAll restores generator weights and optimizer state.
	ScopeAll Scope = iota
	// ScopeGenerator restores generator weights only.
	ScopeGenerator
)

// State dict key prefixes.
const (
	GeneratorPrefix = "generator."
	OptimizerPrefix = "optimizer."
)

// Trainable is a super-resolution network the driver can train and evaluate.
type Trainable interface {
	// Forward super-resolves every image in lr.
	Forward(lr []*imaging.Image, mode Mode) ([]*imaging.Image, error)

	// ComputeLoss scores sr against the high-resolution targets hr.
	ComputeLoss(hr, sr []*imaging.Image) (Loss, error)

	// OptimizeStep applies one parameter update for loss, which must come
	// from a ModeTrain forward pass.
	OptimizeStep(loss Loss) error

	// StateDict returns every persistent tensor, keyed with GeneratorPrefix
	// or OptimizerPrefix.
	StateDict() map[string]*tensor.Tensor

	// LoadStateDict restores the tensors selected by scope.
	LoadStateDict(sd map[string]*tensor.Tensor, scope Scope) error

	// Architecture describes the network topology and hyperparameters.
	Architecture() Architecture

	// Scale is the upscaling factor.
	Scale() int
}

// Architecture is the static description of a network, persisted once per
// run as graph.json.
type Architecture struct {
	Name            string         `json:"name"`
	Scale           int            `json:"scale"`
	ContentLoss     string         `json:"content_loss"`
	Optimizer       string         `json:"optimizer"`
	OptimizerConfig map[string]any `json:"optimizer_config,omitempty"`
	Layers          []Layer        `json:"layers"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Layer describes one stage of the network.
type Layer struct {
	Name   string           `json:"name"`
	Kind   string           `json:"kind"`
	Params map[string][]int `json:"params,omitempty"`
}

// Digest returns a stable hash of the topology. Hyperparameters that do not
// change tensor shapes are excluded, so a run resumed with a new learning
// rate keeps its digest.
func (a Architecture) Digest() string {
	topo := struct {
		Name   string  `json:"name"`
		Scale  int     `json:"scale"`
		Layers []Layer `json:"layers"`
	}{a.Name, a.Scale, a.Layers}
	// Marshal of plain structs, slices and int maps cannot fail.
	b, _ := json.Marshal(topo)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
