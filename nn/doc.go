// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides model building blocks and parameter-space utilities.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Identity
//   - Utilities: Sequential, Module interface, Parameter
//   - Parameter spaces: ParamDict with elementwise arithmetic
//   - Initialization: Xavier, Zeros, Ones, Randn
//   - Serialization: Save, Load, Checkpoint
//
// # Basic Usage
//
//	import (
//	    "github.com/shift-ml/shift/nn"
//	    "github.com/shift-ml/shift/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // Build a linear probe over precomputed features
//	    model := nn.NewLinear(2048, 2, backend)
//
//	    // Forward pass
//	    output := model.Forward(features)
//	}
//
// # Layers
//
// Linear: Fully connected layer with Xavier initialization
//
//	layer := nn.NewLinear(inFeatures, outFeatures, backend)
//
// Identity: Passthrough layer used where an architecture slot must be filled
//
//	layer := nn.NewIdentity(features)
//
// # Sequential Models
//
// Build models by composing layers:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(2048, 256, backend),
//	    nn.NewLinear(256, 2, backend),
//	)
//
// # Parameter Spaces
//
// ParamDict treats a model's parameters as a single point in weight space.
// Dicts support elementwise arithmetic, which is how interpolation, weight
// averaging, and task vectors between checkpoints are expressed:
//
//	erm := nn.Snapshot(ermModel)
//	robust := nn.Snapshot(robustModel)
//
//	delta, err := robust.Sub(erm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	step, _ := erm.Add(delta.Scale(0.3))
//	err = step.LoadInto(probeModel)
//
// # Parameter Management
//
// Access model parameters for optimization:
//
//	params := model.Parameters()
//	for _, param := range params {
//	    fmt.Println(param.Name(), param.Tensor().Shape())
//	}
//
// # Checkpoints
//
// Save and restore full training state, including optimizer buffers:
//
//	err := nn.SaveCheckpoint("run/epoch_3.shift", model, optimizer, 3)
//	checkpoint, err := nn.LoadCheckpoint("run/latest.shift", backend, model, optimizer)
package nn
