package nn

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/superres/internal/fault"
)

// LossKind selects the content loss.
type LossKind string

// Supported content losses.
const (
	LossMSE     LossKind = "mse"
	LossL1      LossKind = "L1"
	LossEdgeMSE LossKind = "edge_loss_mse"
	LossEdgeL1  LossKind = "edge_loss_L1"
)

// LossKinds lists every accepted content loss name.
var LossKinds = []LossKind{LossMSE, LossL1, LossEdgeMSE, LossEdgeL1}

// ParseLossKind returns the loss kind named s.
func ParseLossKind(s string) (LossKind, error) {
	for _, k := range LossKinds {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, len(LossKinds))
	for i, k := range LossKinds {
		names[i] = string(k)
	}
	return "", fault.Configf("content loss %q (want one of %s)", s, strings.Join(names, ", "))
}

func (k LossKind) squared() bool {
	return k == LossMSE || k == LossEdgeMSE
}

func (k LossKind) edges() bool {
	return k == LossEdgeMSE || k == LossEdgeL1
}

// penalty returns p(d) and p'(d).
func (k LossKind) penalty(d float64) (float64, float64) {
	if k.squared() {
		return d * d, 2 * d
	}
	switch {
	case d > 0:
		return d, 1
	case d < 0:
		return -d, -1
	}
	return 0, 0
}

// ContentLoss evaluates the loss between pred and target, both HWC images of
// size h×w×c in row-major order.
//
// The content term is the mean penalty over all elements. Edge kinds add the
// mean penalty between the horizontal finite differences of pred and target
// and the same for vertical differences.
//
// When grad is non-nil, dLoss/dpred is accumulated into it (scaled by weight).
func (k LossKind) ContentLoss(pred, target []float32, h, w, c int, grad []float32, weight float64) (float64, error) {
	n := h * w * c
	if len(pred) != n || len(target) != n {
		return 0, fmt.Errorf("content loss: want %d elements, got pred=%d target=%d", n, len(pred), len(target))
	}
	if grad != nil && len(grad) != n {
		return 0, fmt.Errorf("content loss: gradient buffer has %d elements, want %d", len(grad), n)
	}

	var loss float64
	for i := range n {
		v, dv := k.penalty(float64(pred[i]) - float64(target[i]))
		loss += v
		if grad != nil {
			grad[i] += float32(weight * dv / float64(n))
		}
	}
	loss /= float64(n)

	if !k.edges() {
		return loss, nil
	}

	// Horizontal then vertical differences: e = x[next] - x[cur].
	for _, step := range [2]struct{ dy, dx int }{{0, 1}, {1, 0}} {
		rows, cols := h-step.dy, w-step.dx
		count := rows * cols * c
		if count == 0 {
			continue
		}
		var sum float64
		for y := range rows {
			for x := range cols {
				for ch := range c {
					cur := (y*w+x)*c + ch
					next := ((y+step.dy)*w+x+step.dx)*c + ch
					d := float64(pred[next]-pred[cur]) - float64(target[next]-target[cur])
					v, dv := k.penalty(d)
					sum += v
					if grad != nil {
						g := float32(weight * dv / float64(count))
						grad[next] += g
						grad[cur] -= g
					}
				}
			}
		}
		loss += sum / float64(count)
	}
	return loss, nil
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
