package optim

import (
	"fmt"

	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum and
// coupled (L2) weight decay.
//
// Update rule per parameter:
//
//	g = grad + weight_decay * param
//	velocity = momentum * velocity + g     (when momentum > 0)
//	param = param - lr * velocity
//
// Weight decay is read from the parameter's group, so bias and
// normalization parameters can be exempted via WeightDecayGroups.
type SGD[B tensor.Backend] struct {
	groups     []ParamGroup[B]
	lr         float32
	momentum   float32
	velocities map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	backend    B
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR          float32 // Learning rate (default: 0.01)
	Momentum    float32 // Momentum factor (default: 0, range [0, 1))
	WeightDecay float32 // Coupled L2 weight decay (single-group constructors only)
}

// NewSGD creates an SGD optimizer over a flat parameter list.
//
// All parameters share config.WeightDecay. Use NewSGDGroups for per-group
// decay.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return NewSGDGroups(singleGroup(params, config.WeightDecay), config, backend)
}

// NewSGDGroups creates an SGD optimizer over parameter groups, each with
// its own weight decay.
func NewSGDGroups[B tensor.Backend](groups []ParamGroup[B], config SGDConfig, backend B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[B]{
		groups:     groups,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		backend:    backend,
	}
}

// Step applies one SGD update to every parameter with a gradient.
//
// The gradient map is not modified; weight decay is folded into a local
// copy of each gradient element.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, group := range s.groups {
		for _, param := range group.Params {
			grad := getGradient(param, grads)
			if grad == nil {
				continue
			}
			s.updateParameter(param, grad, group.WeightDecay)
		}
	}
}

func (s *SGD[B]) updateParameter(param *nn.Parameter[B], grad *tensor.RawTensor, weightDecay float32) {
	gradData := grad.AsFloat32()
	paramData := param.Tensor().Raw().AsFloat32()

	if s.momentum == 0 {
		for i := range paramData {
			g := gradData[i] + weightDecay*paramData[i]
			paramData[i] -= s.lr * g
		}
		return
	}

	velocity, ok := s.velocities[param]
	if !ok {
		velocity = tensor.Zeros[float32](param.Tensor().Shape(), s.backend)
		s.velocities[param] = velocity
	}
	velocityData := velocity.Raw().AsFloat32()

	for i := range paramData {
		g := gradData[i] + weightDecay*paramData[i]
		velocityData[i] = s.momentum*velocityData[i] + g
		paramData[i] -= s.lr * velocityData[i]
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, group := range s.groups {
		for _, param := range group.Params {
			param.ZeroGrad()
		}
	}
}

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float32 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) {
	s.lr = lr
}

// Name returns "SGD".
func (s *SGD[B]) Name() string {
	return "SGD"
}

// Config returns the hyperparameters for checkpoint headers. Weight decay
// is reported per group.
func (s *SGD[B]) Config() map[string]any {
	decays := make([]float32, len(s.groups))
	for i, group := range s.groups {
		decays[i] = group.WeightDecay
	}
	return map[string]any{
		"lr":           s.lr,
		"momentum":     s.momentum,
		"weight_decay": decays,
	}
}

// StateDict exports momentum buffers keyed "velocity.{index}", where the
// index enumerates parameters across groups in order. Without momentum
// there is nothing to export.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	if s.momentum == 0 {
		return stateDict
	}

	idx := 0
	for _, group := range s.groups {
		for _, param := range group.Params {
			if velocity, ok := s.velocities[param]; ok {
				stateDict[fmt.Sprintf("velocity.%d", idx)] = velocity.Raw()
			}
			idx++
		}
	}
	return stateDict
}

// LoadStateDict restores momentum buffers. Parameters without a saved
// velocity start from zero on the next step. Returns an error when a
// saved velocity's shape does not match its parameter.
func (s *SGD[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if s.momentum == 0 {
		return nil
	}

	s.velocities = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])

	idx := 0
	for _, group := range s.groups {
		for _, param := range group.Params {
			key := fmt.Sprintf("velocity.%d", idx)
			idx++

			raw, ok := stateDict[key]
			if !ok {
				continue
			}
			if !raw.Shape().Equal(param.Tensor().Shape()) {
				return fmt.Errorf("velocity shape mismatch for parameter %d: expected %v, got %v",
					idx-1, param.Tensor().Shape(), raw.Shape())
			}
			s.velocities[param] = tensor.New[float32, B](raw, s.backend)
		}
	}
	return nil
}
