// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// NamedParameter pairs a parameter with its fully qualified name, such as
// "backbone.layer1.weight". Module.NamedParameters returns these in a
// stable order so snapshots and optimizer groups are reproducible.
type NamedParameter[B tensor.Backend] = nn.NamedParameter[B]

// SetRequiresGrad toggles gradient tracking for every parameter of a module.
//
// Example:
//
//	nn.SetRequiresGrad(model.Backbone(), false) // freeze the backbone
func SetRequiresGrad[B tensor.Backend](m Module[B], requiresGrad bool) {
	nn.SetRequiresGrad(m, requiresGrad)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	backend := cpu.New()
//	probe := nn.NewLinear(2048, 2, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Identity represents a passthrough layer with no parameters.
type Identity[B tensor.Backend] = nn.Identity[B]

// NewIdentity creates a new identity layer.
//
// The feature count is recorded so the layer can stand in for a feature
// extractor whose output dimension downstream code still needs to know.
//
// Example:
//
//	extractor := nn.NewIdentity[*cpu.CPUBackend](2048)
func NewIdentity[B tensor.Backend](features int) *Identity[B] {
	return nn.NewIdentity[B](features)
}

// Sequential

// Sequential represents a sequential container of modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a new sequential model.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewSequential(
//	    nn.NewLinear(2048, 256, backend),
//	    nn.NewLinear(256, 2, backend),
//	)
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Initialization functions

// Xavier initializes a tensor using Xavier/Glorot initialization.
//
// Example:
//
//	backend := cpu.New()
//	weights := nn.Xavier(2048, 256, tensor.Shape{256, 2048}, backend)
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// Zeros initializes a tensor with zeros (for biases).
//
// Example:
//
//	backend := cpu.New()
//	bias := nn.Zeros(tensor.Shape{256}, backend)
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}

// Ones initializes a tensor with ones.
//
// Example:
//
//	backend := cpu.New()
//	weights := nn.Ones(tensor.Shape{256, 2048}, backend)
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Ones(shape, backend)
}

// Randn initializes a tensor with random values from N(0, 1).
//
// Example:
//
//	backend := cpu.New()
//	weights := nn.Randn(tensor.Shape{256, 2048}, backend)
func Randn[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Randn(shape, backend)
}
