// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/optim"
	"github.com/shift-ml/shift/internal/tensor"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Config carries the run-level optimizer settings the Build factory needs.
type Config = optim.Config

// ParamGroup is a set of parameters sharing one weight decay value.
type ParamGroup[B tensor.Backend] = optim.ParamGroup[B]

// WeightDecayGroups splits a module's parameters into a no-decay group
// (biases, one-dimensional parameters, and names listed in noDecay) and a
// decay group. Frozen parameters are excluded entirely.
//
// Example:
//
//	groups := optim.WeightDecayGroups(model, 1e-4, zoo.NoWeightDecay("resnet50"))
func WeightDecayGroups[B tensor.Backend](m nn.Module[B], weightDecay float32, noDecay []string) []ParamGroup[B] {
	return optim.WeightDecayGroups(m, weightDecay, noDecay)
}

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(2048, 2, backend)
//	optimizer := optim.NewSGD(
//	    model.Parameters(),
//	    optim.SGDConfig{
//	        LR:       0.001,
//	        Momentum: 0.9,
//	    },
//	    backend,
//	)
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// NewSGDGroups creates a new SGD optimizer over parameter groups with
// per-group weight decay.
func NewSGDGroups[B tensor.Backend](groups []ParamGroup[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGDGroups(groups, config, backend)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig contains configuration for Adam and AdamW optimizers.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(2048, 2, backend)
//	optimizer := optim.NewAdam(
//	    model.Parameters(),
//	    optim.AdamConfig{
//	        LR:    0.001,
//	        Betas: [2]float32{0.9, 0.999},
//	    },
//	    backend,
//	)
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdam(params, config, backend)
}

// NewAdamGroups creates a new Adam optimizer over parameter groups with
// per-group weight decay.
func NewAdamGroups[B tensor.Backend](groups []ParamGroup[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdamGroups(groups, config, backend)
}

// AdamW (Adam with decoupled weight decay)

// AdamW represents the AdamW optimizer. Weight decay is applied directly
// to the parameters instead of being folded into the gradient.
type AdamW[B tensor.Backend] = optim.AdamW[B]

// NewAdamW creates a new AdamW optimizer.
//
// Example:
//
//	optimizer := optim.NewAdamW(
//	    model.Parameters(),
//	    optim.AdamConfig{LR: 1e-5},
//	    backend,
//	)
func NewAdamW[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *AdamW[B] {
	return optim.NewAdamW(params, config, backend)
}

// NewAdamWGroups creates a new AdamW optimizer over parameter groups with
// per-group weight decay.
func NewAdamWGroups[B tensor.Backend](groups []ParamGroup[B], config AdamConfig, backend B) *AdamW[B] {
	return optim.NewAdamWGroups(groups, config, backend)
}

// Factories

// Build constructs an optimizer from a run-config name over parameter
// groups. Recognized names: "SGD" (momentum 0.9), "Adam", and "adamw" in
// any casing.
//
// Example:
//
//	optimizer, err := optim.Build("SGD", groups, optim.Config{LR: 0.001}, backend)
func Build[B tensor.Backend](name string, groups []ParamGroup[B], cfg Config, backend B) (Optimizer, error) {
	return optim.Build(name, groups, cfg, backend)
}

// BuildForParams constructs an optimizer over a flat parameter list with
// uniform weight decay from cfg.
func BuildForParams[B tensor.Backend](name string, params []*nn.Parameter[B], cfg Config, backend B) (Optimizer, error) {
	return optim.BuildForParams(name, params, cfg, backend)
}
