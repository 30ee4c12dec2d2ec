// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float32 tensors exchanged between a
// trainable network, its optimizer and the checkpoint format.
//
// # Overview
//
// A Tensor is a row-major Shape and a flat Data slice. There is no device
// abstraction and no operator library: numeric work happens in the packages
// that own the tensors, and this type only carries state across package
// boundaries.
//
// # Basic Usage
//
//	import "github.com/born-ml/superres/tensor"
//
//	func main() {
//	    w := tensor.Zeros(tensor.Shape{3, 3, 3, 3})
//	    w.Data[0] = 0.5
//
//	    b, err := tensor.FromSlice([]float32{0, 0, 0}, tensor.Shape{3})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(w.NumElements(), b.ByteSize()) // 81 12
//	}
//
// # State dicts
//
// Networks expose their state as map[string]*Tensor. Keys are prefixed with
// "generator." for network weights and "optimizer." for optimizer moments,
// which is also how checkpoints store them.
package tensor
