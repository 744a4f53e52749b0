package nn

import (
	"github.com/shift-ml/shift/internal/tensor"
)

// Parameter represents a trainable parameter of a model.
//
// Parameters are tensors that optimizers update during training. They
// typically represent weights and biases of layers.
//
// Example:
//
//	// Create a weight parameter
//	weight := nn.NewParameter("weight", weightTensor)
//
//	// Access the tensor
//	w := weight.Tensor()
//
//	// Get gradient once one has been assigned
//	grad := weight.Grad()
type Parameter[B tensor.Backend] struct {
	name   string                     // Parameter name (e.g., "weight", "bias")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
}

// NewParameter creates a new trainable parameter.
//
// The parameter tensor should be initialized before creating the Parameter.
// The tensor is marked as requiring gradients; use SetRequiresGrad or
// Tensor().SetRequiresGrad to freeze it.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	t.SetRequiresGrad(true)
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been assigned yet.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.tensor.Grad()
}

// SetGrad assigns the gradient tensor.
//
// This is typically called by the training loop before an optimizer step.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	p.tensor.SetGrad(grad)
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter[B]) ZeroGrad() {
	p.tensor.SetGrad(nil)
}
