package optim

import (
	"fmt"
	"strings"

	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// Build constructs an optimizer from a run-config name over parameter
// groups. Weight decay comes from the groups; cfg.WeightDecay is ignored
// on this path.
//
// Recognized names: "SGD" (momentum 0.9), "Adam", and "adamw" in any
// casing. Anything else is an error. SGD and Adam are matched exactly
// because run configs have always spelled them that way; AdamW arrived
// later and tolerates casing.
func Build[B tensor.Backend](name string, groups []ParamGroup[B], cfg Config, backend B) (Optimizer, error) {
	switch {
	case name == "SGD":
		return NewSGDGroups(groups, SGDConfig{LR: cfg.LR, Momentum: 0.9}, backend), nil
	case name == "Adam":
		return NewAdamGroups(groups, AdamConfig{LR: cfg.LR}, backend), nil
	case strings.ToLower(name) == "adamw":
		return NewAdamWGroups(groups, AdamConfig{LR: cfg.LR}, backend), nil
	default:
		return nil, fmt.Errorf("optimizer %q not recognized", name)
	}
}

// BuildForParams constructs an optimizer over a flat parameter list with
// uniform weight decay from cfg. This covers callers that optimize a raw
// weight list rather than a module, such as interpolation fine-tuning on
// a ParamDict snapshot.
func BuildForParams[B tensor.Backend](name string, params []*nn.Parameter[B], cfg Config, backend B) (Optimizer, error) {
	return Build(name, singleGroup(params, cfg.WeightDecay), cfg, backend)
}
