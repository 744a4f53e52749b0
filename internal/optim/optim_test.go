package optim_test

import (
	"math"
	"testing"

	"github.com/shift-ml/shift/internal/backend/cpu"
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/optim"
	"github.com/shift-ml/shift/internal/tensor"
)

type CPUBackend = *cpu.CPUBackend

// floatEqual checks float equality with tolerance.
func floatEqual(a, b, eps float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}

// newParam creates a single named parameter holding the given values.
func newParam(t *testing.T, backend CPUBackend, name string, values ...float32) *nn.Parameter[CPUBackend] {
	t.Helper()
	x, err := tensor.FromSlice(values, tensor.Shape{len(values)}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return nn.NewParameter(name, x)
}

// gradFor builds a gradient map assigning the given values to one parameter.
func gradFor(t *testing.T, backend CPUBackend, param *nn.Parameter[CPUBackend], values ...float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	grad, err := tensor.NewRaw(tensor.Shape{len(values)}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(grad.AsFloat32(), values)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Tensor().Raw(): grad}
}

func TestSGD_SimpleUpdate(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 2.0)

	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param},
		optim.SGDConfig{LR: 0.1}, backend)

	optimizer.Step(gradFor(t, backend, param, 1.0))

	// x_new = 2.0 - 0.1 * 1.0 = 1.9
	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 1.9, 1e-6) {
		t.Errorf("SGD update: got %f, want 1.9", got)
	}
}

func TestSGD_Momentum(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param},
		optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)

	// Step 1: v = 0.9*0 + 1.0 = 1.0, x = 1.0 - 0.1*1.0 = 0.9
	optimizer.Step(gradFor(t, backend, param, 1.0))
	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 0.9, 1e-6) {
		t.Errorf("momentum step 1: got %f, want 0.9", got)
	}

	// Step 2: v = 0.9*1.0 + 1.0 = 1.9, x = 0.9 - 0.1*1.9 = 0.71
	optimizer.Step(gradFor(t, backend, param, 1.0))
	got = param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 0.71, 1e-5) {
		t.Errorf("momentum step 2: got %f, want 0.71", got)
	}
}

func TestSGD_WeightDecay(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 2.0)

	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param},
		optim.SGDConfig{LR: 0.1, WeightDecay: 0.5}, backend)

	// Zero gradient still shrinks the parameter through coupled decay:
	// g = 0 + 0.5*2.0 = 1.0, x = 2.0 - 0.1*1.0 = 1.9
	optimizer.Step(gradFor(t, backend, param, 0.0))

	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 1.9, 1e-6) {
		t.Errorf("coupled decay: got %f, want 1.9", got)
	}
}

func TestSGD_DoesNotMutateGradient(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 2.0)

	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param},
		optim.SGDConfig{LR: 0.1, Momentum: 0.9, WeightDecay: 0.5}, backend)

	grads := gradFor(t, backend, param, 3.0)
	optimizer.Step(grads)

	// Weight decay folds into a local copy; the caller's buffer survives.
	for _, grad := range grads {
		if got := grad.AsFloat32()[0]; got != 3.0 {
			t.Errorf("gradient buffer mutated: got %f, want 3.0", got)
		}
	}
}

func TestSGD_ZeroGrad(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	gradTensor, _ := tensor.FromSlice([]float32{5.0}, tensor.Shape{1}, backend)
	param.SetGrad(gradTensor)
	if param.Grad() == nil {
		t.Fatal("Grad should not be nil after SetGrad")
	}

	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param},
		optim.SGDConfig{LR: 0.1}, backend)
	optimizer.ZeroGrad()

	if param.Grad() != nil {
		t.Error("Grad should be nil after ZeroGrad")
	}
}

func TestSGD_GetSetLR(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param},
		optim.SGDConfig{LR: 0.01}, backend)

	if optimizer.GetLR() != 0.01 {
		t.Errorf("GetLR: got %f, want 0.01", optimizer.GetLR())
	}

	optimizer.SetLR(0.001)
	if optimizer.GetLR() != 0.001 {
		t.Errorf("GetLR after SetLR: got %f, want 0.001", optimizer.GetLR())
	}
}

func TestSGD_StateDictRoundTrip(t *testing.T) {
	backend := cpu.New()

	// Drive one optimizer two steps, and a second optimizer one step plus
	// a restored velocity. Their parameters must agree afterwards.
	paramA := newParam(t, backend, "x", 1.0)
	optA := optim.NewSGD([]*nn.Parameter[CPUBackend]{paramA},
		optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	optA.Step(gradFor(t, backend, paramA, 1.0))

	state := optA.StateDict()
	if _, ok := state["velocity.0"]; !ok {
		t.Fatalf("StateDict missing velocity.0, got keys %v", stateKeys(state))
	}

	paramB := newParam(t, backend, "x", paramA.Tensor().Raw().AsFloat32()[0])
	optB := optim.NewSGD([]*nn.Parameter[CPUBackend]{paramB},
		optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	if err := optB.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	optA.Step(gradFor(t, backend, paramA, 1.0))
	optB.Step(gradFor(t, backend, paramB, 1.0))

	gotA := paramA.Tensor().Raw().AsFloat32()[0]
	gotB := paramB.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(gotA, gotB, 1e-6) {
		t.Errorf("restored optimizer diverged: %f vs %f", gotB, gotA)
	}
}

func TestSGD_LoadStateDictShapeMismatch(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0, 2.0)
	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param},
		optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)

	wrong, _ := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, backend.Device())
	err := optimizer.LoadStateDict(map[string]*tensor.RawTensor{"velocity.0": wrong})
	if err == nil {
		t.Error("expected shape mismatch error, got nil")
	}
}

func TestAdam_FirstStep(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	optimizer := optim.NewAdam([]*nn.Parameter[CPUBackend]{param},
		optim.AdamConfig{LR: 0.001}, backend)

	optimizer.Step(gradFor(t, backend, param, 1.0))

	// With bias correction the first step moves by ~lr:
	// m_hat = v_hat = 1.0, x = 1.0 - 0.001 * 1/(1 + eps) ~= 0.999
	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 0.999, 1e-5) {
		t.Errorf("Adam first step: got %f, want 0.999", got)
	}
}

func TestAdam_Timestep(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	optimizer := optim.NewAdam([]*nn.Parameter[CPUBackend]{param},
		optim.AdamConfig{LR: 0.01}, backend)

	if optimizer.GetTimestep() != 0 {
		t.Errorf("initial timestep: got %d, want 0", optimizer.GetTimestep())
	}

	for i := 1; i <= 3; i++ {
		optimizer.Step(gradFor(t, backend, param, 1.0))
		if optimizer.GetTimestep() != i {
			t.Errorf("after step %d: timestep %d", i, optimizer.GetTimestep())
		}
	}

	if final := param.Tensor().Raw().AsFloat32()[0]; final >= 1.0 {
		t.Errorf("positive gradient should decrease the parameter, got %f", final)
	}
}

func TestAdam_CoupledWeightDecay(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	optimizer := optim.NewAdam([]*nn.Parameter[CPUBackend]{param},
		optim.AdamConfig{LR: 0.001, WeightDecay: 0.1}, backend)

	// Zero gradient, but decay contributes g = 0.1. The bias-corrected
	// first step then moves by ~lr regardless of |g|.
	optimizer.Step(gradFor(t, backend, param, 0.0))

	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 0.999, 1e-5) {
		t.Errorf("Adam coupled decay: got %f, want 0.999", got)
	}
}

func TestAdamW_DecoupledWeightDecay(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	optimizer := optim.NewAdamW([]*nn.Parameter[CPUBackend]{param},
		optim.AdamConfig{LR: 0.1, WeightDecay: 0.1}, backend)

	// Zero gradient: moments stay zero, so the only movement is the
	// decoupled shrink x *= (1 - lr*wd) = 0.99. Coupled Adam would have
	// taken a full ~lr step here.
	optimizer.Step(gradFor(t, backend, param, 0.0))

	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 0.99, 1e-6) {
		t.Errorf("AdamW decoupled decay: got %f, want 0.99", got)
	}
}

func TestAdam_StateDictRoundTrip(t *testing.T) {
	backend := cpu.New()

	paramA := newParam(t, backend, "x", 1.0)
	optA := optim.NewAdam([]*nn.Parameter[CPUBackend]{paramA},
		optim.AdamConfig{LR: 0.01}, backend)
	optA.Step(gradFor(t, backend, paramA, 1.0))
	optA.Step(gradFor(t, backend, paramA, 0.5))

	state := optA.StateDict()
	for _, key := range []string{"m.0", "v.0", "t"} {
		if _, ok := state[key]; !ok {
			t.Fatalf("StateDict missing %s, got keys %v", key, stateKeys(state))
		}
	}

	paramB := newParam(t, backend, "x", paramA.Tensor().Raw().AsFloat32()[0])
	optB := optim.NewAdam([]*nn.Parameter[CPUBackend]{paramB},
		optim.AdamConfig{LR: 0.01}, backend)
	if err := optB.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}
	if optB.GetTimestep() != 2 {
		t.Errorf("restored timestep: got %d, want 2", optB.GetTimestep())
	}

	// A third identical step must agree, which exercises both the moment
	// buffers and the bias-correction timestep.
	optA.Step(gradFor(t, backend, paramA, 1.0))
	optB.Step(gradFor(t, backend, paramB, 1.0))

	gotA := paramA.Tensor().Raw().AsFloat32()[0]
	gotB := paramB.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(gotA, gotB, 1e-6) {
		t.Errorf("restored optimizer diverged: %f vs %f", gotB, gotA)
	}
}

func TestWeightDecayGroups(t *testing.T) {
	backend := cpu.New()
	model := nn.NewLinear[CPUBackend](4, 2, backend)

	groups := optim.WeightDecayGroups[CPUBackend](model, 0.05, nil)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	noDecay, decay := groups[0], groups[1]
	if noDecay.WeightDecay != 0 {
		t.Errorf("no-decay group has weight decay %f", noDecay.WeightDecay)
	}
	if decay.WeightDecay != 0.05 {
		t.Errorf("decay group: got %f, want 0.05", decay.WeightDecay)
	}

	// The 1-D bias lands in the no-decay group, the 2-D weight decays.
	if len(noDecay.Params) != 1 || len(noDecay.Params[0].Tensor().Shape()) != 1 {
		t.Errorf("no-decay group should hold exactly the bias, got %d params", len(noDecay.Params))
	}
	if len(decay.Params) != 1 || len(decay.Params[0].Tensor().Shape()) != 2 {
		t.Errorf("decay group should hold exactly the weight, got %d params", len(decay.Params))
	}
}

func TestWeightDecayGroups_NoDecayList(t *testing.T) {
	backend := cpu.New()
	model := nn.NewLinear[CPUBackend](4, 2, backend)

	// Exempting the weight by name empties the decay group.
	groups := optim.WeightDecayGroups[CPUBackend](model, 0.05, []string{"weight"})
	if len(groups[1].Params) != 0 {
		t.Errorf("decay group should be empty, got %d params", len(groups[1].Params))
	}
	if len(groups[0].Params) != 2 {
		t.Errorf("no-decay group should hold both params, got %d", len(groups[0].Params))
	}
}

func TestWeightDecayGroups_SkipsFrozen(t *testing.T) {
	backend := cpu.New()
	model := nn.NewLinear[CPUBackend](4, 2, backend)
	nn.SetRequiresGrad[CPUBackend](model, false)

	groups := optim.WeightDecayGroups[CPUBackend](model, 0.05, nil)
	if n := len(groups[0].Params) + len(groups[1].Params); n != 0 {
		t.Errorf("frozen parameters should be excluded, got %d", n)
	}
}

func TestBuild(t *testing.T) {
	backend := cpu.New()

	makeGroups := func() []optim.ParamGroup[*cpu.CPUBackend] {
		model := nn.NewLinear[CPUBackend](4, 2, backend)
		return optim.WeightDecayGroups[CPUBackend](model, 0.01, nil)
	}

	tests := []struct {
		name     string
		optName  string
		wantName string
		wantErr  bool
	}{
		{"sgd exact", "SGD", "SGD", false},
		{"adam exact", "Adam", "Adam", false},
		{"adamw lower", "adamw", "AdamW", false},
		{"adamw mixed case", "AdamW", "AdamW", false},
		{"adamw upper", "ADAMW", "AdamW", false},
		{"sgd lowercase rejected", "sgd", "", true},
		{"adam uppercase rejected", "ADAM", "", true},
		{"unknown", "RMSprop", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := optim.Build(tt.optName, makeGroups(), optim.Config{LR: 0.01}, backend)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Build(%q) expected error", tt.optName)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build(%q): %v", tt.optName, err)
			}
			if opt.Name() != tt.wantName {
				t.Errorf("Name: got %q, want %q", opt.Name(), tt.wantName)
			}
		})
	}
}

func TestBuild_SGDUsesMomentum(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 1.0)

	opt, err := optim.Build("SGD",
		[]optim.ParamGroup[*cpu.CPUBackend]{{Params: []*nn.Parameter[CPUBackend]{param}}},
		optim.Config{LR: 0.1}, backend)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cfg := opt.Config()
	momentum, ok := cfg["momentum"].(float32)
	if !ok || momentum != 0.9 {
		t.Errorf("factory SGD momentum: got %v, want 0.9", cfg["momentum"])
	}
}

func TestBuildForParams_UniformDecay(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, "x", 2.0)

	opt, err := optim.BuildForParams("SGD", []*nn.Parameter[CPUBackend]{param},
		optim.Config{LR: 0.1, WeightDecay: 0.5}, backend)
	if err != nil {
		t.Fatalf("BuildForParams: %v", err)
	}

	// Zero gradient; only decay moves the parameter:
	// g = 0.5*2.0 = 1.0, x = 2.0 - 0.1*1.0 = 1.9
	opt.Step(gradFor(t, backend, param, 0.0))
	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 1.9, 1e-6) {
		t.Errorf("uniform decay: got %f, want 1.9", got)
	}
}

func TestGroupDecayIsolation(t *testing.T) {
	backend := cpu.New()
	model := nn.NewLinear[CPUBackend](1, 1, backend)

	// Pin both params to 1.0 so the decay effect is visible.
	model.Weight().Tensor().Raw().AsFloat32()[0] = 1.0
	model.Bias().Tensor().Raw().AsFloat32()[0] = 1.0

	groups := optim.WeightDecayGroups[CPUBackend](model, 1.0, nil)
	optimizer := optim.NewSGDGroups(groups, optim.SGDConfig{LR: 0.1}, backend)

	zeroW, _ := tensor.NewRaw(tensor.Shape{1, 1}, tensor.Float32, backend.Device())
	zeroB, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, backend.Device())
	optimizer.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		model.Weight().Tensor().Raw(): zeroW,
		model.Bias().Tensor().Raw():   zeroB,
	})

	// Weight decays (g = 1.0, x = 1 - 0.1 = 0.9); bias is exempt.
	if got := model.Weight().Tensor().Raw().AsFloat32()[0]; !floatEqual(got, 0.9, 1e-6) {
		t.Errorf("weight should decay: got %f, want 0.9", got)
	}
	if got := model.Bias().Tensor().Raw().AsFloat32()[0]; !floatEqual(got, 1.0, 1e-6) {
		t.Errorf("bias should be exempt from decay: got %f, want 1.0", got)
	}
}

// TestConvergence_Quadratic verifies all three optimizers minimize f(x) = x².
func TestConvergence_Quadratic(t *testing.T) {
	backend := cpu.New()

	run := func(t *testing.T, build func(param *nn.Parameter[CPUBackend]) optim.Optimizer) float32 {
		t.Helper()
		param := newParam(t, backend, "x", 3.0)
		optimizer := build(param)

		for i := 0; i < 100; i++ {
			// df/dx = 2x
			current := param.Tensor().Raw().AsFloat32()[0]
			optimizer.Step(gradFor(t, backend, param, 2.0*current))
		}
		return param.Tensor().Raw().AsFloat32()[0]
	}

	t.Run("SGD", func(t *testing.T) {
		final := run(t, func(p *nn.Parameter[CPUBackend]) optim.Optimizer {
			return optim.NewSGD([]*nn.Parameter[CPUBackend]{p},
				optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
		})
		if math.Abs(float64(final)) > 0.1 {
			t.Errorf("SGD did not converge: x = %f", final)
		}
	})

	t.Run("Adam", func(t *testing.T) {
		final := run(t, func(p *nn.Parameter[CPUBackend]) optim.Optimizer {
			return optim.NewAdam([]*nn.Parameter[CPUBackend]{p},
				optim.AdamConfig{LR: 0.1}, backend)
		})
		if math.Abs(float64(final)) > 0.1 {
			t.Errorf("Adam did not converge: x = %f", final)
		}
	})

	t.Run("AdamW", func(t *testing.T) {
		final := run(t, func(p *nn.Parameter[CPUBackend]) optim.Optimizer {
			return optim.NewAdamW([]*nn.Parameter[CPUBackend]{p},
				optim.AdamConfig{LR: 0.1, WeightDecay: 0.01}, backend)
		})
		if math.Abs(float64(final)) > 0.1 {
			t.Errorf("AdamW did not converge: x = %f", final)
		}
	})
}

func TestMultipleParameters(t *testing.T) {
	backend := cpu.New()

	param1 := newParam(t, backend, "x1", 1.0, 2.0)
	param2 := newParam(t, backend, "x2", 3.0)

	optimizer := optim.NewSGD([]*nn.Parameter[CPUBackend]{param1, param2},
		optim.SGDConfig{LR: 0.1}, backend)

	grad1, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, backend.Device())
	copy(grad1.AsFloat32(), []float32{1.0, 2.0})
	grad2, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, backend.Device())
	grad2.AsFloat32()[0] = 0.5

	optimizer.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		param1.Tensor().Raw(): grad1,
		param2.Tensor().Raw(): grad2,
	})

	p1 := param1.Tensor().Raw().AsFloat32()
	if !floatEqual(p1[0], 0.9, 1e-6) || !floatEqual(p1[1], 1.8, 1e-6) {
		t.Errorf("param1: got [%f, %f], want [0.9, 1.8]", p1[0], p1[1])
	}
	p2 := param2.Tensor().Raw().AsFloat32()
	if !floatEqual(p2[0], 2.95, 1e-6) {
		t.Errorf("param2: got %f, want 2.95", p2[0])
	}
}

func stateKeys(state map[string]*tensor.RawTensor) []string {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	return keys
}
