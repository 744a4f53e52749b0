package optim

import (
	"math"

	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// AdamW implements Adam with decoupled weight decay
// (Loshchilov & Hutter, 2019).
//
// Where Adam folds weight decay into the gradient, AdamW shrinks the
// parameter directly and runs the moment update on the raw gradient:
//
//	param = param * (1 - lr * weight_decay)
//	...standard Adam update with g = grad...
//
// Decoupling keeps the effective regularization independent of the
// adaptive per-parameter step size, which is why AdamW is the default
// for fine-tuning ViT backbones.
type AdamW[B tensor.Backend] struct {
	*Adam[B]
}

// NewAdamW creates an AdamW optimizer over a flat parameter list.
func NewAdamW[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *AdamW[B] {
	return NewAdamWGroups(singleGroup(params, config.WeightDecay), config, backend)
}

// NewAdamWGroups creates an AdamW optimizer over parameter groups, each
// with its own weight decay.
func NewAdamWGroups[B tensor.Backend](groups []ParamGroup[B], config AdamConfig, backend B) *AdamW[B] {
	return &AdamW[B]{Adam: NewAdamGroups(groups, config, backend)}
}

// Step applies one AdamW update to every parameter with a gradient.
//
// The parameter shrink happens before the moment update, and the moment
// update sees the raw gradient (weight decay 0).
func (w *AdamW[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	w.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(w.beta1), float64(w.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(w.beta2), float64(w.t)))

	for _, group := range w.groups {
		for _, param := range group.Params {
			grad := getGradient(param, grads)
			if grad == nil {
				continue
			}

			if group.WeightDecay != 0 {
				shrink := 1.0 - w.lr*group.WeightDecay
				paramData := param.Tensor().Raw().AsFloat32()
				for i := range paramData {
					paramData[i] *= shrink
				}
			}

			m, v := w.moments(param)
			w.updateParameter(param, grad, m, v, 0, biasCorrection1, biasCorrection2)
		}
	}
}

// Name returns "AdamW".
func (w *AdamW[B]) Name() string {
	return "AdamW"
}
