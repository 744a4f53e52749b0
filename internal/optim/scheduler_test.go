package optim_test

import (
	"testing"

	"github.com/shift-ml/shift/internal/backend/cpu"
	"github.com/shift-ml/shift/internal/optim"
)

// newOpt returns a parameterless SGD optimizer at the given learning
// rate, enough for driving schedules.
func newOpt(lr float32) optim.Optimizer {
	return optim.NewSGD[CPUBackend](nil, optim.SGDConfig{LR: lr}, cpu.New())
}

func TestStepLR(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewStepLR(opt, 1, 0.5)

	if sched.PerBatch() {
		t.Error("StepLR should step per epoch")
	}

	want := []float32{0.5, 0.25, 0.125}
	for i, w := range want {
		sched.Step()
		if got := sched.LR(); !floatEqual(got, w, 1e-6) {
			t.Errorf("epoch %d: lr %f, want %f", i+1, got, w)
		}
	}
}

func TestStepLR_StepSizeTwo(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewStepLR(opt, 2, 0.5)

	sched.Step()
	if got := sched.LR(); !floatEqual(got, 1.0, 1e-6) {
		t.Errorf("epoch 1: lr %f, want 1.0", got)
	}
	sched.Step()
	if got := sched.LR(); !floatEqual(got, 0.5, 1e-6) {
		t.Errorf("epoch 2: lr %f, want 0.5", got)
	}
}

func TestCosineAnnealingLR(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewCosineAnnealingLR(opt, 2, 0)

	// Half cosine over tMax=2: midpoint 0.5, endpoint 0.
	sched.Step()
	if got := sched.LR(); !floatEqual(got, 0.5, 1e-6) {
		t.Errorf("t=1: lr %f, want 0.5", got)
	}
	sched.Step()
	if got := sched.LR(); !floatEqual(got, 0.0, 1e-6) {
		t.Errorf("t=2: lr %f, want 0.0", got)
	}
}

func TestCosineAnnealingLR_EtaMin(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewCosineAnnealingLR(opt, 2, 0.1)

	sched.Step()
	sched.Step()
	if got := sched.LR(); !floatEqual(got, 0.1, 1e-6) {
		t.Errorf("annealed floor: lr %f, want 0.1", got)
	}
}

func TestLinearWarmup(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewLinearWarmup(opt, 2, 4)

	if !sched.PerBatch() {
		t.Error("warmup schedules step per batch")
	}

	// Construction applies the step-0 factor: warmup starts from 0.
	if got := sched.LR(); !floatEqual(got, 0.0, 1e-6) {
		t.Errorf("step 0: lr %f, want 0.0", got)
	}

	want := []float32{0.5, 1.0, 0.5, 0.0}
	for i, w := range want {
		sched.Step()
		if got := sched.LR(); !floatEqual(got, w, 1e-6) {
			t.Errorf("step %d: lr %f, want %f", i+1, got, w)
		}
	}
}

func TestCosineWarmup(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewCosineWarmup(opt, 2, 6)

	if got := sched.LR(); !floatEqual(got, 0.0, 1e-6) {
		t.Errorf("step 0: lr %f, want 0.0", got)
	}

	// Linear ramp to the base rate, then the half cosine down.
	steps := []struct {
		n    int
		want float32
	}{
		{1, 0.5}, // warmup midpoint
		{2, 1.0}, // warmup done, cosine progress 0
		{4, 0.5}, // cosine midpoint
		{6, 0.0}, // cosine end
	}
	n := 0
	for _, s := range steps {
		for n < s.n {
			sched.Step()
			n++
		}
		if got := sched.LR(); !floatEqual(got, s.want, 1e-6) {
			t.Errorf("step %d: lr %f, want %f", s.n, got, s.want)
		}
	}
}

func TestReduceLROnPlateau(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewReduceLROnPlateau(opt, optim.PlateauConfig{
		Factor:   0.5,
		Patience: 2,
	})

	// First metric always improves on +Inf.
	sched.StepMetric(1.0)
	if got := sched.LR(); !floatEqual(got, 1.0, 1e-6) {
		t.Fatalf("after first metric: lr %f, want 1.0", got)
	}

	// Three stagnant epochs: bad count reaches 3 > patience 2, decay.
	sched.StepMetric(1.0)
	sched.StepMetric(1.0)
	if got := sched.LR(); !floatEqual(got, 1.0, 1e-6) {
		t.Fatalf("within patience: lr %f, want 1.0", got)
	}
	sched.StepMetric(1.0)
	if got := sched.LR(); !floatEqual(got, 0.5, 1e-6) {
		t.Errorf("after plateau: lr %f, want 0.5", got)
	}
}

func TestReduceLROnPlateau_ImprovementResets(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewReduceLROnPlateau(opt, optim.PlateauConfig{
		Factor:   0.5,
		Patience: 1,
	})

	sched.StepMetric(1.0)
	sched.StepMetric(1.0) // bad 1
	sched.StepMetric(0.5) // improvement resets the counter
	sched.StepMetric(0.5) // bad 1
	if got := sched.LR(); !floatEqual(got, 1.0, 1e-6) {
		t.Errorf("counter should have reset: lr %f, want 1.0", got)
	}
	sched.StepMetric(0.5) // bad 2 > patience
	if got := sched.LR(); !floatEqual(got, 0.5, 1e-6) {
		t.Errorf("after plateau: lr %f, want 0.5", got)
	}
}

func TestReduceLROnPlateau_MinLRFloor(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewReduceLROnPlateau(opt, optim.PlateauConfig{
		Factor:   0.5,
		Patience: 1,
		MinLR:    0.6,
	})

	plateau := func() {
		sched.StepMetric(1.0)
		sched.StepMetric(1.0)
	}

	sched.StepMetric(1.0)
	plateau()
	if got := sched.LR(); !floatEqual(got, 0.6, 1e-6) {
		t.Fatalf("floored decay: lr %f, want 0.6", got)
	}

	// Further plateaus cannot reduce below the floor; the sub-eps change
	// is not applied.
	plateau()
	if got := sched.LR(); !floatEqual(got, 0.6, 1e-6) {
		t.Errorf("below floor: lr %f, want 0.6", got)
	}
}

func TestReduceLROnPlateau_StepIsNoOp(t *testing.T) {
	opt := newOpt(1.0)
	sched := optim.NewReduceLROnPlateau(opt, optim.PlateauConfig{Patience: 1})

	for i := 0; i < 10; i++ {
		sched.Step()
	}
	if got := sched.LR(); !floatEqual(got, 1.0, 1e-6) {
		t.Errorf("Step without a metric changed lr to %f", got)
	}
}

func TestBuildScheduler(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantNil  bool
		wantErr  bool
		check    func(t *testing.T, s optim.Scheduler)
	}{
		{name: "empty means none", schedule: "", wantNil: true},
		{name: "explicit none", schedule: "none", wantNil: true},
		{
			name: "plateau", schedule: "ReduceLROnPlateau",
			check: func(t *testing.T, s optim.Scheduler) {
				if _, ok := s.(*optim.ReduceLROnPlateau); !ok {
					t.Errorf("got %T", s)
				}
			},
		},
		{
			name: "cosine annealing", schedule: "CosineAnnealingLR",
			check: func(t *testing.T, s optim.Scheduler) {
				if _, ok := s.(*optim.CosineAnnealingLR); !ok {
					t.Errorf("got %T", s)
				}
			},
		},
		{
			name: "linear warmup", schedule: "linear_schedule_with_warmup",
			check: func(t *testing.T, s optim.Scheduler) {
				if !s.PerBatch() {
					t.Error("warmup schedule should be per batch")
				}
			},
		},
		{
			name: "cosine warmup", schedule: "cosine_schedule_with_warmup",
			check: func(t *testing.T, s optim.Scheduler) {
				if _, ok := s.(*optim.CosineWarmup); !ok {
					t.Errorf("got %T", s)
				}
			},
		},
		{
			name: "step", schedule: "StepLR",
			check: func(t *testing.T, s optim.Scheduler) {
				// Factory StepLR decays every epoch with the config gamma.
				s.Step()
				if got := s.LR(); !floatEqual(got, 0.2, 1e-6) {
					t.Errorf("factory StepLR first epoch: lr %f, want 0.2", got)
				}
			},
		},
		{name: "unknown", schedule: "WarmRestarts", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := newOpt(1.0)
			sched, err := optim.BuildScheduler(tt.schedule, opt, 10, optim.SchedulerConfig{
				WarmupSteps: 2,
				StepGamma:   0.2,
			})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BuildScheduler(%q) expected error", tt.schedule)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildScheduler(%q): %v", tt.schedule, err)
			}
			if tt.wantNil {
				if sched != nil {
					t.Fatalf("expected nil scheduler, got %T", sched)
				}
				return
			}
			if sched == nil {
				t.Fatal("expected a scheduler, got nil")
			}
			if tt.check != nil {
				tt.check(t, sched)
			}
		})
	}
}
