package optim

import (
	"strings"

	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// ParamGroup is a set of parameters sharing one weight decay value.
//
// Optimizers apply their learning rate uniformly but read weight decay per
// group, which is how bias and normalization parameters are exempted from
// regularization.
type ParamGroup[B tensor.Backend] struct {
	Params      []*nn.Parameter[B]
	WeightDecay float32
}

// singleGroup wraps a flat parameter list into one group.
func singleGroup[B tensor.Backend](params []*nn.Parameter[B], weightDecay float32) []ParamGroup[B] {
	return []ParamGroup[B]{{Params: params, WeightDecay: weightDecay}}
}

// WeightDecayGroups splits a module's parameters into a no-decay group and
// a decay group.
//
// A parameter lands in the no-decay group when any of these hold:
//   - it has at most one dimension (biases, norm scales)
//   - its name ends in ".bias"
//   - its name appears in noDecay (ViT backbones list pos_embed,
//     cls_token and reg_token here)
//
// Frozen parameters are excluded entirely. The no-decay group comes first.
func WeightDecayGroups[B tensor.Backend](m nn.Module[B], weightDecay float32, noDecay []string) []ParamGroup[B] {
	exempt := make(map[string]struct{}, len(noDecay))
	for _, name := range noDecay {
		exempt[name] = struct{}{}
	}

	var decay, skip []*nn.Parameter[B]
	for _, np := range m.NamedParameters() {
		if !np.Param.Tensor().RequiresGrad() {
			continue
		}

		_, exempted := exempt[np.Name]
		if len(np.Param.Tensor().Shape()) <= 1 || strings.HasSuffix(np.Name, ".bias") || exempted {
			skip = append(skip, np.Param)
		} else {
			decay = append(decay, np.Param)
		}
	}

	return []ParamGroup[B]{
		{Params: skip, WeightDecay: 0},
		{Params: decay, WeightDecay: weightDecay},
	}
}
