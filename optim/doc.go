// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms and learning-rate schedules.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - AdamW: Adam with decoupled weight decay
//   - Parameter groups with per-group weight decay
//   - Schedulers: step decay, cosine annealing, warmups, plateau
//   - Build / BuildScheduler factories driven by run-config names
//
// # Basic Usage
//
//	import (
//	    "github.com/shift-ml/shift/optim"
//	    "github.com/shift-ml/shift/nn"
//	    "github.com/shift-ml/shift/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model := nn.NewLinear(2048, 2, backend)
//
//	    // Create optimizer
//	    optimizer := optim.NewSGD(
//	        model.Parameters(),
//	        optim.SGDConfig{
//	            LR:       0.001,
//	            Momentum: 0.9,
//	        },
//	        backend,
//	    )
//
//	    // Training loop (gradients come from the caller's backward pass)
//	    for epoch := range 10 {
//	        grads := computeGrads(model, batch)
//	        optimizer.Step(grads)
//	        optimizer.ZeroGrad()
//	    }
//	}
//
// # Weight Decay Groups
//
// Biases, one-dimensional parameters, and backbone-specific exemptions
// (ViT position embeddings and class tokens) are excluded from decay:
//
//	groups := optim.WeightDecayGroups(model, 1e-4, zoo.NoWeightDecay("resnet50"))
//	optimizer, err := optim.Build("SGD", groups, optim.Config{LR: 0.001}, backend)
//
// # Schedulers
//
// Schedules are constructed by config name and advanced once per epoch,
// except warmups, which run per batch (PerBatch reports which):
//
//	scheduler, err := optim.BuildScheduler("CosineAnnealingLR", optimizer, nEpochs, optim.SchedulerConfig{})
//	for epoch := range nEpochs {
//	    trainOneEpoch(...)
//	    scheduler.StepMetric(valLoss)
//	}
package optim
