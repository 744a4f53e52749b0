package nn

import (
	"github.com/shift-ml/shift/internal/tensor"
)

// Identity passes its input through unchanged.
//
// It stands in for a backbone's classification head after the head has been
// removed, so the backbone exposes raw features. The feature count is
// recorded so head construction can query it later:
//
//	backbone.ReplaceHead(nn.NewIdentity[Backend](2048))
//	head := nn.NewLinear(2048, nClasses, backend)
type Identity[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
}

// NewIdentity creates an Identity layer reporting the given feature count on
// both sides.
func NewIdentity[B tensor.Backend](features int) *Identity[B] {
	return &Identity[B]{
		inFeatures:  features,
		outFeatures: features,
	}
}

// Forward returns the input unchanged.
func (id *Identity[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input
}

// Parameters returns an empty slice; Identity has nothing to train.
func (id *Identity[B]) Parameters() []*Parameter[B] {
	return nil
}

// NamedParameters returns an empty slice.
func (id *Identity[B]) NamedParameters() []NamedParameter[B] {
	return nil
}

// InFeatures returns the recorded feature count.
func (id *Identity[B]) InFeatures() int {
	return id.inFeatures
}

// OutFeatures returns the recorded feature count.
func (id *Identity[B]) OutFeatures() int {
	return id.outFeatures
}

// StateDict returns an empty map.
func (id *Identity[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for Identity.
func (id *Identity[B]) LoadStateDict(_ map[string]*tensor.RawTensor) error {
	return nil
}
