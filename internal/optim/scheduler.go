package optim

import (
	"fmt"
	"math"
)

// Scheduler adjusts an optimizer's learning rate over the course of a run.
//
// Epoch-driven schedules advance via Step; ReduceLROnPlateau needs a
// validation metric and advances via StepMetric. PerBatch reports whether
// the schedule expects one Step per batch (the warmup schedules) rather
// than one per epoch, so the training loop knows where to call it.
type Scheduler interface {
	// Step advances the schedule by one period.
	Step()

	// StepMetric advances the schedule using a validation metric.
	// Schedules that do not use metrics ignore the value and behave
	// like Step.
	StepMetric(metric float64)

	// LR returns the learning rate currently applied to the optimizer.
	LR() float32

	// PerBatch reports whether Step should be called once per batch.
	PerBatch() bool
}

// StepLR decays the learning rate by gamma every stepSize epochs:
//
//	lr(epoch) = base_lr * gamma^floor(epoch / stepSize)
//
// The harness uses stepSize 1, a plain exponential decay per epoch.
type StepLR struct {
	opt      Optimizer
	stepSize int
	gamma    float32
	baseLR   float32
	epoch    int
}

// NewStepLR creates a StepLR schedule. stepSize defaults to 1 and gamma
// to 0.1 when zero.
func NewStepLR(opt Optimizer, stepSize int, gamma float32) *StepLR {
	if stepSize <= 0 {
		stepSize = 1
	}
	if gamma == 0 {
		gamma = 0.1
	}
	return &StepLR{opt: opt, stepSize: stepSize, gamma: gamma, baseLR: opt.GetLR()}
}

func (s *StepLR) Step() {
	s.epoch++
	decays := s.epoch / s.stepSize
	s.opt.SetLR(s.baseLR * float32(math.Pow(float64(s.gamma), float64(decays))))
}

func (s *StepLR) StepMetric(float64) { s.Step() }
func (s *StepLR) LR() float32        { return s.opt.GetLR() }
func (s *StepLR) PerBatch() bool     { return false }

// CosineAnnealingLR anneals the learning rate along a half cosine from
// the base rate down to etaMin over tMax epochs:
//
//	lr(t) = etaMin + (base_lr - etaMin) * (1 + cos(pi * t / tMax)) / 2
type CosineAnnealingLR struct {
	opt    Optimizer
	tMax   int
	etaMin float32
	baseLR float32
	t      int
}

// NewCosineAnnealingLR creates a cosine annealing schedule over tMax
// epochs with floor etaMin.
func NewCosineAnnealingLR(opt Optimizer, tMax int, etaMin float32) *CosineAnnealingLR {
	if tMax <= 0 {
		tMax = 1
	}
	return &CosineAnnealingLR{opt: opt, tMax: tMax, etaMin: etaMin, baseLR: opt.GetLR()}
}

func (c *CosineAnnealingLR) Step() {
	c.t++
	progress := float64(c.t) / float64(c.tMax)
	lr := float64(c.etaMin) + float64(c.baseLR-c.etaMin)*0.5*(1.0+math.Cos(math.Pi*progress))
	c.opt.SetLR(float32(lr))
}

func (c *CosineAnnealingLR) StepMetric(float64) { c.Step() }
func (c *CosineAnnealingLR) LR() float32        { return c.opt.GetLR() }
func (c *CosineAnnealingLR) PerBatch() bool     { return false }

// warmupBase carries the state shared by the per-batch warmup schedules.
// Constructors apply the step-0 factor immediately, so with a non-zero
// warmup the optimizer starts at learning rate 0.
type warmupBase struct {
	opt         Optimizer
	warmupSteps int
	totalSteps  int
	baseLR      float32
	step        int
}

func (w *warmupBase) apply(factor float64) { w.opt.SetLR(w.baseLR * float32(factor)) }
func (w *warmupBase) LR() float32          { return w.opt.GetLR() }
func (w *warmupBase) PerBatch() bool       { return true }

// LinearWarmup ramps the learning rate linearly from 0 to the base rate
// over warmupSteps batches, then decays it linearly to 0 at totalSteps.
type LinearWarmup struct {
	warmupBase
}

// NewLinearWarmup creates a linear warmup-then-decay schedule over
// batches.
func NewLinearWarmup(opt Optimizer, warmupSteps, totalSteps int) *LinearWarmup {
	s := &LinearWarmup{warmupBase{
		opt:         opt,
		warmupSteps: warmupSteps,
		totalSteps:  totalSteps,
		baseLR:      opt.GetLR(),
	}}
	s.apply(s.factor(0))
	return s
}

func (s *LinearWarmup) factor(step int) float64 {
	if step < s.warmupSteps {
		return float64(step) / float64(max(1, s.warmupSteps))
	}
	return math.Max(0, float64(s.totalSteps-step)/float64(max(1, s.totalSteps-s.warmupSteps)))
}

func (s *LinearWarmup) Step() {
	s.step++
	s.apply(s.factor(s.step))
}

func (s *LinearWarmup) StepMetric(float64) { s.Step() }

// CosineWarmup ramps the learning rate linearly from 0 to the base rate
// over warmupSteps batches, then decays it along a half cosine to 0 at
// totalSteps.
type CosineWarmup struct {
	warmupBase
}

// NewCosineWarmup creates a cosine warmup-then-decay schedule over
// batches.
func NewCosineWarmup(opt Optimizer, warmupSteps, totalSteps int) *CosineWarmup {
	s := &CosineWarmup{warmupBase{
		opt:         opt,
		warmupSteps: warmupSteps,
		totalSteps:  totalSteps,
		baseLR:      opt.GetLR(),
	}}
	s.apply(s.factor(0))
	return s
}

func (s *CosineWarmup) factor(step int) float64 {
	if step < s.warmupSteps {
		return float64(step) / float64(max(1, s.warmupSteps))
	}
	progress := float64(step-s.warmupSteps) / float64(max(1, s.totalSteps-s.warmupSteps))
	return math.Max(0, 0.5*(1.0+math.Cos(math.Pi*progress)))
}

func (s *CosineWarmup) Step() {
	s.step++
	s.apply(s.factor(s.step))
}

func (s *CosineWarmup) StepMetric(float64) { s.Step() }

// PlateauConfig holds configuration for ReduceLROnPlateau. Zero fields
// take the defaults noted below.
type PlateauConfig struct {
	Factor    float32 // LR multiplier on plateau (default: 0.1)
	Patience  int     // Epochs without improvement before decay (default: 5)
	Threshold float64 // Relative improvement threshold (default: 1e-4)
	MinLR     float32 // Learning rate floor (default: 0)
	Eps       float32 // Minimum LR change worth applying (default: 1e-8)
}

// ReduceLROnPlateau decays the learning rate when a validation metric
// stops improving.
//
// The metric is minimized. An epoch counts as improved when
// metric < best * (1 - Threshold); after Patience unimproved epochs the
// learning rate is multiplied by Factor (floored at MinLR, and only
// applied when the change exceeds Eps).
type ReduceLROnPlateau struct {
	opt    Optimizer
	cfg    PlateauConfig
	best   float64
	numBad int
}

// NewReduceLROnPlateau creates a plateau schedule driven by StepMetric.
func NewReduceLROnPlateau(opt Optimizer, cfg PlateauConfig) *ReduceLROnPlateau {
	if cfg.Factor == 0 {
		cfg.Factor = 0.1
	}
	if cfg.Patience == 0 {
		cfg.Patience = 5
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 1e-4
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-8
	}
	return &ReduceLROnPlateau{opt: opt, cfg: cfg, best: math.Inf(1)}
}

// StepMetric records one epoch's validation metric and decays the
// learning rate when the plateau condition is met.
func (r *ReduceLROnPlateau) StepMetric(metric float64) {
	if metric < r.best*(1.0-r.cfg.Threshold) {
		r.best = metric
		r.numBad = 0
	} else {
		r.numBad++
	}

	if r.numBad > r.cfg.Patience {
		old := r.opt.GetLR()
		reduced := max(old*r.cfg.Factor, r.cfg.MinLR)
		if old-reduced > r.cfg.Eps {
			r.opt.SetLR(reduced)
		}
		r.numBad = 0
	}
}

// Step is a no-op: plateau scheduling needs a metric. Use StepMetric.
func (r *ReduceLROnPlateau) Step()          {}
func (r *ReduceLROnPlateau) LR() float32    { return r.opt.GetLR() }
func (r *ReduceLROnPlateau) PerBatch() bool { return false }

// SchedulerConfig carries the run-level settings BuildScheduler needs.
type SchedulerConfig struct {
	WarmupSteps int     // Warmup length for the *_with_warmup schedules
	StepGamma   float32 // Decay factor for StepLR
}

// BuildScheduler constructs a schedule from a run-config name. tTotal is
// the schedule horizon: epochs for CosineAnnealingLR, total batches for
// the warmup schedules.
//
// An empty name or "none" means no schedule (nil, nil); unknown names
// are an error rather than silently running unscheduled.
func BuildScheduler(name string, opt Optimizer, tTotal int, cfg SchedulerConfig) (Scheduler, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "ReduceLROnPlateau":
		return NewReduceLROnPlateau(opt, PlateauConfig{}), nil
	case "CosineAnnealingLR":
		return NewCosineAnnealingLR(opt, tTotal, 0), nil
	case "linear_schedule_with_warmup":
		return NewLinearWarmup(opt, cfg.WarmupSteps, tTotal), nil
	case "cosine_schedule_with_warmup":
		return NewCosineWarmup(opt, cfg.WarmupSteps, tTotal), nil
	case "StepLR":
		return NewStepLR(opt, 1, cfg.StepGamma), nil
	default:
		return nil, fmt.Errorf("scheduler %q not recognized", name)
	}
}
