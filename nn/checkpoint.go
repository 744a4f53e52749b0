// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/tensor"
)

// OptimizerState represents an optimizer that can save/load its state.
//
// Checkpoints use this interface to serialize optimizer state without
// depending on the optim package. Every optimizer in the optim package
// implements it.
type OptimizerState = nn.OptimizerState

// OptimizerDescriber reports an optimizer's algorithm name and
// hyperparameters, which checkpoints record in their header.
type OptimizerDescriber = nn.OptimizerDescriber

// Checkpoint is a complete snapshot of a training run.
//
// A checkpoint bundles:
//   - Model parameters (weights and biases)
//   - Optimizer state (momentum buffers, Adam moments)
//   - Training progress (epoch, step, loss)
//   - Custom metadata such as the dataset and method name
//
// Example:
//
//	checkpoint := &nn.Checkpoint[*cpu.CPUBackend]{
//	    Model:     model,
//	    Optimizer: optimizer,
//	    ModelType: "resnet50",
//	    Epoch:     10,
//	    Loss:      0.123,
//	}
//	err := checkpoint.Save("run/epoch_10.shift")
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// LoadCheckpoint restores a training run from a .shift checkpoint file.
//
// The model and optimizer must be pre-constructed with the same architecture
// and configuration as when the checkpoint was saved; their state is loaded
// in place. Returns serialization.ErrNotCheckpoint when the file is a plain
// state dict rather than a checkpoint.
//
// Example:
//
//	checkpoint, err := nn.LoadCheckpoint("run/latest.shift", backend, model, optimizer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	startEpoch := checkpoint.Epoch + 1
func LoadCheckpoint[B tensor.Backend](
	path string,
	backend B,
	model Module[B],
	optimizer OptimizerState,
) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, backend, model, optimizer)
}

// SaveCheckpoint saves a per-epoch checkpoint with a minimal API.
//
// Equivalent to building a Checkpoint and calling Save:
//
//	err := nn.SaveCheckpoint("run/epoch_3.shift", model, optimizer, 3)
func SaveCheckpoint[B tensor.Backend](
	path string,
	model Module[B],
	optimizer OptimizerState,
	epoch int,
) error {
	return nn.SaveCheckpoint(path, model, optimizer, epoch)
}
