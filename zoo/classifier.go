package zoo

import (
	"fmt"
	"strings"

	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// Classifier pairs a feature backbone with a linear classification head.
// Its state dictionary uses the toolkit's canonical "backbone." and
// "head." prefixes, which is also what the weight mappers in the loader
// translate external exports to.
type Classifier[B tensor.Backend] struct {
	backbone nn.Module[B]
	head     *nn.Linear[B]
}

// NewClassifier wraps a feature backbone with a classifier head.
func NewClassifier[B tensor.Backend](backbone nn.Module[B], head *nn.Linear[B]) *Classifier[B] {
	return &Classifier[B]{
		backbone: backbone,
		head:     head,
	}
}

// Backbone returns the feature extractor.
func (c *Classifier[B]) Backbone() nn.Module[B] {
	return c.backbone
}

// Head returns the classifier head.
func (c *Classifier[B]) Head() *nn.Linear[B] {
	return c.head
}

// Forward extracts features and classifies them.
//
// Input shape: whatever the backbone consumes.
// Output shape: [batch_size, n_classes].
func (c *Classifier[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return c.head.Forward(c.backbone.Forward(input))
}

// Parameters returns backbone parameters followed by head parameters.
func (c *Classifier[B]) Parameters() []*nn.Parameter[B] {
	params := c.backbone.Parameters()
	return append(params, c.head.Parameters()...)
}

// NamedParameters returns all parameters under their canonical
// "backbone." and "head." names.
func (c *Classifier[B]) NamedParameters() []nn.NamedParameter[B] {
	var named []nn.NamedParameter[B]
	for _, np := range c.backbone.NamedParameters() {
		named = append(named, nn.NamedParameter[B]{
			Name:  "backbone." + np.Name,
			Param: np.Param,
		})
	}
	for _, np := range c.head.NamedParameters() {
		named = append(named, nn.NamedParameter[B]{
			Name:  "head." + np.Name,
			Param: np.Param,
		})
	}
	return named
}

// StateDict returns all parameters keyed by their canonical names.
func (c *Classifier[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range c.backbone.StateDict() {
		stateDict["backbone."+name] = raw
	}
	for name, raw := range c.head.StateDict() {
		stateDict["head."+name] = raw
	}
	return stateDict
}

// LoadStateDict loads parameters from a canonically named state
// dictionary. A part with no matching keys keeps its current weights, so
// a backbone-only export loads without touching the fresh head. Keys
// under neither prefix are ignored.
func (c *Classifier[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	backboneDict := make(map[string]*tensor.RawTensor)
	headDict := make(map[string]*tensor.RawTensor)
	for key, raw := range stateDict {
		switch {
		case strings.HasPrefix(key, "backbone."):
			backboneDict[strings.TrimPrefix(key, "backbone.")] = raw
		case strings.HasPrefix(key, "head."):
			headDict[strings.TrimPrefix(key, "head.")] = raw
		}
	}

	if len(backboneDict) > 0 {
		if err := c.backbone.LoadStateDict(backboneDict); err != nil {
			return fmt.Errorf("failed to load backbone: %w", err)
		}
	}
	if len(headDict) > 0 {
		if err := c.head.LoadStateDict(headDict); err != nil {
			return fmt.Errorf("failed to load head: %w", err)
		}
	}
	return nil
}
