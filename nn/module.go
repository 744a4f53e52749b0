// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/serialization"
	"github.com/shift-ml/shift/tensor"
)

// Module is the base interface for all neural network components.
//
// Every module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//   - NamedParameters: Return parameters with fully qualified names
//   - StateDict: Export parameters for serialization
//   - LoadStateDict: Import parameters from serialization
//
// Modules can be composed to build larger architectures:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(2048, 256, backend),
//	    nn.NewLinear(256, 2, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] = nn.Module[B]

// Save saves a module to a .shift file.
//
// This is a convenience function that exports the module's state dictionary
// and writes it to a file using the native format.
//
// Parameters:
//   - module: The module to save
//   - path: File path to write to
//   - modelType: Type name of the model (e.g. "resnet50", "Linear")
//   - metadata: Optional metadata (can be nil)
//
// Returns an error if saving fails.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(2048, 2, backend)
//	err := nn.Save(model, "probe.shift", "Linear", nil)
func Save[B tensor.Backend](module Module[B], path, modelType string, metadata map[string]string) error {
	return nn.Save(module, path, modelType, metadata)
}

// Load loads a module from a .shift file.
//
// This is a convenience function that reads a state dictionary from a file
// and loads it into the provided module. The module must already be
// constructed with matching architecture; only its parameter values change.
//
// Parameters:
//   - path: File path to read from
//   - backend: Backend to use for tensors
//   - module: The module to load into (will be modified)
//
// Returns the file header and an error if loading fails.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(2048, 2, backend)
//	header, err := nn.Load("probe.shift", backend, model)
func Load[B tensor.Backend](path string, backend B, module Module[B]) (serialization.Header, error) {
	return nn.Load(path, backend, module)
}
