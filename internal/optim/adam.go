package optim

import (
	"fmt"
	"math"

	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014) with coupled L2
// weight decay.
//
// Update rule per parameter:
//
//	g = grad + weight_decay * param
//	m_t = beta1 * m_{t-1} + (1-beta1) * g          // first moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²         // second moment
//	m_hat = m_t / (1 - beta1^t)                    // bias correction
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Folding weight decay into the gradient is the classic L2 formulation;
// AdamW applies the decoupled variant instead.
type Adam[B tensor.Backend] struct {
	groups  []ParamGroup[B]
	lr      float32
	beta1   float32
	beta2   float32
	eps     float32
	t       int // timestep for bias correction
	m       map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	v       map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	backend B
}

// AdamConfig holds configuration for the Adam and AdamW optimizers.
type AdamConfig struct {
	LR          float32    // Learning rate (default: 0.001)
	Betas       [2]float32 // Moment decay coefficients (default: [0.9, 0.999])
	Eps         float32    // Numerical stability term (default: 1e-8)
	WeightDecay float32    // Weight decay (single-group constructors only)
}

// withDefaults fills zero fields with the standard Adam hyperparameters.
func (c AdamConfig) withDefaults() AdamConfig {
	if c.LR == 0 {
		c.LR = 0.001
	}
	if c.Betas[0] == 0 {
		c.Betas[0] = 0.9
	}
	if c.Betas[1] == 0 {
		c.Betas[1] = 0.999
	}
	if c.Eps == 0 {
		c.Eps = 1e-8
	}
	return c
}

// NewAdam creates an Adam optimizer over a flat parameter list.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return NewAdamGroups(singleGroup(params, config.WeightDecay), config, backend)
}

// NewAdamGroups creates an Adam optimizer over parameter groups, each with
// its own weight decay.
func NewAdamGroups[B tensor.Backend](groups []ParamGroup[B], config AdamConfig, backend B) *Adam[B] {
	config = config.withDefaults()

	return &Adam[B]{
		groups:  groups,
		lr:      config.LR,
		beta1:   config.Betas[0],
		beta2:   config.Betas[1],
		eps:     config.Eps,
		m:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		v:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		backend: backend,
	}
}

// Step applies one Adam update to every parameter with a gradient.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, group := range a.groups {
		for _, param := range group.Params {
			grad := getGradient(param, grads)
			if grad == nil {
				continue
			}

			m, v := a.moments(param)
			a.updateParameter(param, grad, m, v, group.WeightDecay, biasCorrection1, biasCorrection2)
		}
	}
}

// moments returns the (possibly freshly zeroed) moment buffers for a parameter.
func (a *Adam[B]) moments(param *nn.Parameter[B]) (m, v *tensor.Tensor[float32, B]) {
	m, ok := a.m[param]
	if !ok {
		m = tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
		a.m[param] = m
	}
	v, ok = a.v[param]
	if !ok {
		v = tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
		a.v[param] = v
	}
	return m, v
}

func (a *Adam[B]) updateParameter(
	param *nn.Parameter[B],
	grad *tensor.RawTensor,
	m, v *tensor.Tensor[float32, B],
	weightDecay, biasCorrection1, biasCorrection2 float32,
) {
	gradData := grad.AsFloat32()
	mData := m.Raw().AsFloat32()
	vData := v.Raw().AsFloat32()
	paramData := param.Tensor().Raw().AsFloat32()

	for i := range paramData {
		g := gradData[i] + weightDecay*paramData[i]

		mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g
		vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

		mHat := mData[i] / biasCorrection1
		vHat := vData[i] / biasCorrection2

		paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam[B]) ZeroGrad() {
	for _, group := range a.groups {
		for _, param := range group.Params {
			param.ZeroGrad()
		}
	}
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken, which drives bias
// correction.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}

// Name returns "Adam".
func (a *Adam[B]) Name() string {
	return "Adam"
}

// Config returns the hyperparameters for checkpoint headers.
func (a *Adam[B]) Config() map[string]any {
	decays := make([]float32, len(a.groups))
	for i, group := range a.groups {
		decays[i] = group.WeightDecay
	}
	return map[string]any{
		"lr":           a.lr,
		"betas":        [2]float32{a.beta1, a.beta2},
		"eps":          a.eps,
		"weight_decay": decays,
	}
}

// StateDict exports moment buffers keyed "m.{index}" / "v.{index}" plus
// the timestep under "t". The index enumerates parameters across groups
// in order.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)

	idx := 0
	for _, group := range a.groups {
		for _, param := range group.Params {
			if m, ok := a.m[param]; ok {
				stateDict[fmt.Sprintf("m.%d", idx)] = m.Raw()
			}
			if v, ok := a.v[param]; ok {
				stateDict[fmt.Sprintf("v.%d", idx)] = v.Raw()
			}
			idx++
		}
	}

	if a.t > 0 {
		step := tensor.Zeros[int64](tensor.Shape{1}, a.backend)
		step.Raw().AsInt64()[0] = int64(a.t)
		stateDict["t"] = step.Raw()
	}

	return stateDict
}

// LoadStateDict restores moment buffers and the timestep. Parameters
// without saved moments start from zero on the next step.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	a.m = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])
	a.v = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])
	a.t = 0

	if step, ok := stateDict["t"]; ok {
		if step.DType() != tensor.Int64 || step.NumElements() != 1 {
			return fmt.Errorf("timestep tensor must be a single int64, got %s %v", step.DType(), step.Shape())
		}
		a.t = int(step.AsInt64()[0])
	}

	idx := 0
	for _, group := range a.groups {
		for _, param := range group.Params {
			if err := a.loadMoment(stateDict, fmt.Sprintf("m.%d", idx), param, a.m); err != nil {
				return err
			}
			if err := a.loadMoment(stateDict, fmt.Sprintf("v.%d", idx), param, a.v); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

func (a *Adam[B]) loadMoment(
	stateDict map[string]*tensor.RawTensor,
	key string,
	param *nn.Parameter[B],
	dst map[*nn.Parameter[B]]*tensor.Tensor[float32, B],
) error {
	raw, ok := stateDict[key]
	if !ok {
		return nil
	}
	if !raw.Shape().Equal(param.Tensor().Shape()) {
		return fmt.Errorf("moment %q shape mismatch: expected %v, got %v",
			key, param.Tensor().Shape(), raw.Shape())
	}
	dst[param] = tensor.New[float32, B](raw, a.backend)
	return nil
}
