// Package optim implements the optimizers and learning-rate schedules used
// by distribution-shift training runs.
//
// This package provides:
//   - Optimizer interface: shared surface for all optimizers
//   - SGD, Adam, AdamW: the three update rules the harness supports
//   - ParamGroup / WeightDecayGroups: per-group weight decay, with the
//     standard exemption for biases and other one-dimensional parameters
//   - Build / BuildForParams: construct an optimizer from a run config name
//   - Scheduler implementations and BuildScheduler
//
// Gradients are computed by a collaborator (the training loop owns the
// backward pass) and handed to Step as a RawTensor -> RawTensor map:
//
//	optimizer, err := optim.Build("SGD", groups, optim.Config{LR: 0.01}, backend)
//	for epoch := range epochs {
//	    for batch := range batches {
//	        grads := computeGrads(model, batch)
//	        optimizer.Step(grads)
//	        optimizer.ZeroGrad()
//	    }
//	    scheduler.StepMetric(valLoss)
//	}
package optim

import (
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// Optimizer is the shared interface for all optimization algorithms.
//
// Besides the update rule itself, optimizers expose their learning rate to
// schedulers (GetLR/SetLR), their buffers to checkpoints
// (StateDict/LoadStateDict), and their identity to checkpoint headers
// (Name/Config).
type Optimizer interface {
	// Step applies one gradient update to all parameters.
	//
	// Takes a parameter-tensor -> gradient map; parameters without an
	// entry are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate. Called by schedulers.
	SetLR(lr float32)

	// StateDict returns the optimizer buffers for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores optimizer buffers from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// Name returns the algorithm name recorded in checkpoint headers
	// ("SGD", "Adam", "AdamW").
	Name() string

	// Config returns the hyperparameters recorded in checkpoint headers.
	Config() map[string]any
}

// Config carries the run-level optimizer settings the factory needs.
// WeightDecay only applies on the BuildForParams path; Build takes the
// per-group decay from the groups themselves.
type Config struct {
	LR          float32 // Learning rate
	WeightDecay float32 // Uniform weight decay (BuildForParams only)
}

// getGradient retrieves the gradient for a parameter from the gradient map.
//
// Returns nil when the parameter has no gradient (it did not participate
// in the forward pass).
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
