// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/shift-ml/shift/internal/optim"
)

// Scheduler adjusts an optimizer's learning rate over the course of a run.
//
// Epoch-driven schedules advance via Step; ReduceLROnPlateau needs a
// validation metric and advances via StepMetric. PerBatch reports whether
// the schedule expects one Step per batch rather than one per epoch.
type Scheduler = optim.Scheduler

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR = optim.StepLR

// NewStepLR creates a step decay schedule.
//
// Example:
//
//	scheduler := optim.NewStepLR(optimizer, 1, 0.96)
func NewStepLR(opt Optimizer, stepSize int, gamma float32) *StepLR {
	return optim.NewStepLR(opt, stepSize, gamma)
}

// CosineAnnealingLR anneals the learning rate along a cosine curve from
// the base rate down to etaMin over tMax steps.
type CosineAnnealingLR = optim.CosineAnnealingLR

// NewCosineAnnealingLR creates a cosine annealing schedule.
//
// Example:
//
//	scheduler := optim.NewCosineAnnealingLR(optimizer, nEpochs, 0)
func NewCosineAnnealingLR(opt Optimizer, tMax int, etaMin float32) *CosineAnnealingLR {
	return optim.NewCosineAnnealingLR(opt, tMax, etaMin)
}

// LinearWarmup ramps the learning rate linearly from zero over
// warmupSteps, then decays it linearly to zero at totalSteps. Advances
// once per batch.
type LinearWarmup = optim.LinearWarmup

// NewLinearWarmup creates a linear warmup-then-decay schedule.
func NewLinearWarmup(opt Optimizer, warmupSteps, totalSteps int) *LinearWarmup {
	return optim.NewLinearWarmup(opt, warmupSteps, totalSteps)
}

// CosineWarmup ramps the learning rate linearly from zero over
// warmupSteps, then follows a cosine decay to zero at totalSteps.
// Advances once per batch.
type CosineWarmup = optim.CosineWarmup

// NewCosineWarmup creates a cosine warmup schedule.
func NewCosineWarmup(opt Optimizer, warmupSteps, totalSteps int) *CosineWarmup {
	return optim.NewCosineWarmup(opt, warmupSteps, totalSteps)
}

// PlateauConfig configures ReduceLROnPlateau.
type PlateauConfig = optim.PlateauConfig

// ReduceLROnPlateau multiplies the learning rate by a factor when the
// tracked validation metric stops improving for a patience period.
type ReduceLROnPlateau = optim.ReduceLROnPlateau

// NewReduceLROnPlateau creates a plateau schedule.
//
// Example:
//
//	scheduler := optim.NewReduceLROnPlateau(optimizer, optim.PlateauConfig{
//	    Factor:   0.5,
//	    Patience: 5,
//	})
//	scheduler.StepMetric(valLoss)
func NewReduceLROnPlateau(opt Optimizer, cfg PlateauConfig) *ReduceLROnPlateau {
	return optim.NewReduceLROnPlateau(opt, cfg)
}

// SchedulerConfig carries the run-level scheduler settings BuildScheduler
// needs.
type SchedulerConfig = optim.SchedulerConfig

// BuildScheduler constructs a scheduler from a run-config name. tTotal is
// the schedule horizon: epochs for epoch-driven schedules, total batches
// for the warmups.
//
// Example:
//
//	scheduler, err := optim.BuildScheduler("CosineAnnealingLR", optimizer, nEpochs, optim.SchedulerConfig{})
func BuildScheduler(name string, opt Optimizer, tTotal int, cfg SchedulerConfig) (Scheduler, error) {
	return optim.BuildScheduler(name, opt, tTotal, cfg)
}
