// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides type-safe tensor operations for the shift toolkit.
//
// # Overview
//
// Tensors are the fundamental data structure of the toolkit. This package
// provides:
//   - Generic type-safe tensors (Tensor[T, B])
//   - NumPy-style broadcasting
//   - Copy-on-write buffers with cheap cloning
//   - Device abstraction (CPU, WebGPU)
//
// # Basic Usage
//
//	import (
//	    "github.com/shift-ml/shift/backend/cpu"
//	    "github.com/shift-ml/shift/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // Create tensors
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//
//	    // Tensor operations
//	    z := x.Add(y)
//	    logits := x.MatMul(y.T())
//	}
//
// # Supported Data Types
//
// The tensor package supports the following data types via the DType
// constraint:
//   - float32, float64 (floating-point)
//   - int32, int64 (signed integers, used for class labels)
//
// # Reproducibility
//
// Random creation functions (Randn, Rand) draw from a package-level
// source; Seed resets it so repeated runs initialize identically:
//
//	tensor.Seed(42)
//	w := tensor.Randn[float32](tensor.Shape{2048, 2}, backend)
package tensor
