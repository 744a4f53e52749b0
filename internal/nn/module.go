// Package nn implements the model-side building blocks of the Shift toolkit.
//
// This package provides:
//   - Module interface: Base interface for all model components
//   - Parameter: Named trainable tensors
//   - ParamDict: Ordered name -> tensor mapping with elementwise arithmetic,
//     used for parameter interpolation (Fish/Reptile-style inner loops)
//   - Linear: Fully connected layer (classifier heads, linear probes)
//   - Identity: Pass-through layer used when a backbone's head is removed
//   - Sequential: Container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/shift-ml/shift/internal/tensor"
)

// Module is the base interface for all model components.
//
// Modules can be composed to build classifiers:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewLinear(featureDim, 256, backend),
//	    nn.NewLinear(256, nClasses, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// The input tensor should have the appropriate shape for this module.
	// For example, Linear expects [batch_size, in_features].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	//
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter[B]

	// NamedParameters returns all parameters with their qualified names, in a
	// deterministic order. Containers prefix nested names ("0.weight").
	NamedParameters() []NamedParameter[B]

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads parameters from a state dictionary.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// NamedParameter pairs a parameter with its qualified name.
type NamedParameter[B tensor.Backend] struct {
	Name  string
	Param *Parameter[B]
}

// SetRequiresGrad marks every parameter of the module as trainable or frozen.
//
// Freezing a backbone while training a probe head:
//
//	nn.SetRequiresGrad(backbone, false)
//	nn.SetRequiresGrad(head, true)
func SetRequiresGrad[B tensor.Backend](m Module[B], requiresGrad bool) {
	for _, p := range m.Parameters() {
		p.Tensor().SetRequiresGrad(requiresGrad)
	}
}
