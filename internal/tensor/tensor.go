// Package tensor provides the dense float32 buffers exchanged between the
// trainable, its optimizer and the checkpoint format.
//
// A Tensor is deliberately plain: a row-major shape and a flat data slice.
// Numeric work happens in the packages that own the tensors.
package tensor

import (
	"fmt"
	"slices"
)

// Shape lists tensor dimensions, outermost first. An empty shape is a scalar.
type Shape []int

// NumElements is the product of the dimensions.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Validate rejects zero or negative dimensions.
func (s Shape) Validate() error {
	for axis, d := range s {
		if d < 1 {
			return fmt.Errorf("shape %v: axis %d has size %d", []int(s), axis, d)
		}
	}
	return nil
}

// Equal reports whether s and o have the same dimensions.
func (s Shape) Equal(o Shape) bool {
	return slices.Equal(s, o)
}

// Clone returns an independent copy of s.
func (s Shape) Clone() Shape {
	return append(Shape(make([]int, 0, len(s))), s...)
}

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Shape Shape
	Data  []float32
}

// Zeros allocates a zero-filled tensor.
func Zeros(shape Shape) *Tensor {
	return &Tensor{
		Shape: shape.Clone(),
		Data:  make([]float32, shape.NumElements()),
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := Zeros(shape)
	copy(t.Data, data)
	return t, nil
}

// NumElements returns the number of elements.
func (t *Tensor) NumElements() int {
	return len(t.Data)
}

// ByteSize returns the size of the data in bytes.
func (t *Tensor) ByteSize() int {
	return len(t.Data) * 4
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{Shape: t.Shape.Clone(), Data: make([]float32, len(t.Data))}
	copy(c.Data, t.Data)
	return c
}

// CopyFrom copies src into t. Shapes must match.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.Shape.Equal(src.Shape) {
		return fmt.Errorf("shape mismatch: have %v, got %v", t.Shape, src.Shape)
	}
	copy(t.Data, src.Data)
	return nil
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float32) {
	for i := range t.Data {
		t.Data[i] = v
	}
}
