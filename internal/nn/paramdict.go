package nn

import (
	"errors"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/shift-ml/shift/internal/tensor"
)

// Sentinel errors returned by ParamDict arithmetic. Callers match them with
// errors.Is; the wrapped message carries the operation and offending key or type.
var (
	// ErrUnsupportedOperand reports an operand of a kind the operation
	// cannot handle (anything other than a numeric scalar, a *ParamDict,
	// or a plain name -> tensor map).
	ErrUnsupportedOperand = errors.New("unsupported operand")

	// ErrKeyMismatch reports two parameter collections whose key sets differ.
	ErrKeyMismatch = errors.New("parameter key mismatch")
)

// ParamDict is an ordered mapping from parameter name to tensor with
// elementwise arithmetic, used to interpolate between model states in
// Fish/Reptile-style inner loops:
//
//	delta, _ := inner.Sub(anchor)        // inner - anchor, per parameter
//	step, _ := anchor.Add(delta.Scale(eps))
//	step.LoadInto(model)
//
// Iteration follows insertion order, so two dicts snapshotted from the same
// module align key-for-key.
//
// Arithmetic contract: every operation returns a new ParamDict and never
// mutates its operands. Result tensors are always detached, host-resident
// copies, regardless of which device the operands live on. Binary operations
// over two dicts require identical key sets and fail fast with ErrKeyMismatch
// on the first missing key.
type ParamDict[B tensor.Backend] struct {
	entries *orderedmap.OrderedMap[string, *tensor.Tensor[float32, B]]
}

// NewParamDict creates an empty ParamDict.
func NewParamDict[B tensor.Backend]() *ParamDict[B] {
	return &ParamDict[B]{
		entries: orderedmap.New[string, *tensor.Tensor[float32, B]](),
	}
}

// ParamDictFromMap creates a ParamDict from a plain map. Go maps have no
// iteration order, so keys are inserted in sorted order to keep the result
// deterministic.
func ParamDictFromMap[B tensor.Backend](m map[string]*tensor.Tensor[float32, B]) *ParamDict[B] {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pd := NewParamDict[B]()
	for _, k := range keys {
		pd.Set(k, m[k])
	}
	return pd
}

// Snapshot captures a module's current parameters as a ParamDict.
//
// Values are detached host-resident copies, so later optimizer steps on the
// module do not change the snapshot. Entry order follows the module's
// NamedParameters order.
func Snapshot[B tensor.Backend](m Module[B]) *ParamDict[B] {
	pd := NewParamDict[B]()
	for _, np := range m.NamedParameters() {
		pd.Set(np.Name, np.Param.Tensor().ToHost())
	}
	return pd
}

// Set inserts or replaces the value for name. Inserting a new name appends it
// to the iteration order; replacing keeps the original position.
func (pd *ParamDict[B]) Set(name string, t *tensor.Tensor[float32, B]) {
	pd.entries.Set(name, t)
}

// Get returns the value for name.
func (pd *ParamDict[B]) Get(name string) (*tensor.Tensor[float32, B], bool) {
	return pd.entries.Get(name)
}

// Len returns the number of entries.
func (pd *ParamDict[B]) Len() int {
	return pd.entries.Len()
}

// Keys returns the parameter names in iteration order.
func (pd *ParamDict[B]) Keys() []string {
	keys := make([]string, 0, pd.Len())
	for p := pd.entries.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Range calls f for each entry in iteration order until f returns false.
func (pd *ParamDict[B]) Range(f func(name string, t *tensor.Tensor[float32, B]) bool) {
	for p := pd.entries.Oldest(); p != nil; p = p.Next() {
		if !f(p.Key, p.Value) {
			return
		}
	}
}

// Add returns pd + other.
//
// A numeric scalar operand (any Go integer or float type) is added to every
// value. A *ParamDict or map[string]*Tensor operand is added elementwise and
// must carry exactly the same keys. Any other operand kind returns
// ErrUnsupportedOperand.
func (pd *ParamDict[B]) Add(other any) (*ParamDict[B], error) {
	if s, ok := tensor.AsScalar(other); ok {
		return pd.mapValues(func(v *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
			return v.AddScalar(s).ToHost()
		}), nil
	}
	if o, ok := pd.asOperand(other); ok {
		return pd.zipWith(o, "add", func(a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
			return a.Add(b).ToHost()
		})
	}
	return nil, fmt.Errorf("paramdict add: %w: %T", ErrUnsupportedOperand, other)
}

// Scale returns pd with every value multiplied by s.
func (pd *ParamDict[B]) Scale(s float64) *ParamDict[B] {
	return pd.mapValues(func(v *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		return v.MulScalar(s).ToHost()
	})
}

// Mul returns pd * other, elementwise for dict operands. A scalar operand is
// equivalent to Scale. Elementwise products are what Fisher-weighted averaging
// of two snapshots needs.
func (pd *ParamDict[B]) Mul(other any) (*ParamDict[B], error) {
	if s, ok := tensor.AsScalar(other); ok {
		return pd.Scale(s), nil
	}
	if o, ok := pd.asOperand(other); ok {
		return pd.zipWith(o, "mul", func(a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
			return a.Mul(b).ToHost()
		})
	}
	return nil, fmt.Errorf("paramdict mul: %w: %T", ErrUnsupportedOperand, other)
}

// Neg returns pd with every value negated. Like all ParamDict arithmetic the
// results are detached host-resident copies.
func (pd *ParamDict[B]) Neg() *ParamDict[B] {
	return pd.mapValues(func(v *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		return v.Neg().ToHost()
	})
}

// Sub returns pd - other, defined as pd.Add(other.Neg()) for dict operands and
// pd.Add(-s) for scalars. Keeping subtraction as negate-then-add guarantees it
// agrees with Add and Neg exactly, bit for bit.
func (pd *ParamDict[B]) Sub(other any) (*ParamDict[B], error) {
	if s, ok := tensor.AsScalar(other); ok {
		return pd.Add(-s)
	}
	if o, ok := pd.asOperand(other); ok {
		return pd.Add(o.Neg())
	}
	return nil, fmt.Errorf("paramdict sub: %w: %T", ErrUnsupportedOperand, other)
}

// Div returns pd / other. Dict operands divide elementwise under the same
// key-set rule as Add; scalar operands divide every value, mirroring Add's
// scalar branch so the operand kinds accepted are uniform across operations.
// Division by zero follows IEEE 754 (Inf/NaN), as elementwise tensor division
// does.
func (pd *ParamDict[B]) Div(other any) (*ParamDict[B], error) {
	if s, ok := tensor.AsScalar(other); ok {
		return pd.mapValues(func(v *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
			return v.DivScalar(s).ToHost()
		}), nil
	}
	if o, ok := pd.asOperand(other); ok {
		return pd.zipWith(o, "div", func(a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
			return a.Div(b).ToHost()
		})
	}
	return nil, fmt.Errorf("paramdict div: %w: %T", ErrUnsupportedOperand, other)
}

// LoadInto writes the dict's values back into a module's named parameters.
//
// The key set must match the module's parameter names exactly; tensor shapes
// must agree. Values are copied into the existing parameter storage, so tensors
// already handed to an optimizer keep their identity.
func (pd *ParamDict[B]) LoadInto(m Module[B]) error {
	named := m.NamedParameters()
	if len(named) != pd.Len() {
		return fmt.Errorf("paramdict load: %w: dict has %d entries, module has %d parameters",
			ErrKeyMismatch, pd.Len(), len(named))
	}
	for _, np := range named {
		v, ok := pd.Get(np.Name)
		if !ok {
			return fmt.Errorf("paramdict load: %w: no value for parameter %q", ErrKeyMismatch, np.Name)
		}
		dst := np.Param.Tensor()
		if !dst.Shape().Equal(v.Shape()) {
			return fmt.Errorf("paramdict load: shape mismatch for %q: %v vs %v",
				np.Name, v.Shape(), dst.Shape())
		}
		copy(dst.Raw().Data(), v.Raw().Data())
	}
	return nil
}

// asOperand normalizes a dict-like operand. Plain maps are wrapped with
// sorted keys; zipWith looks values up by name, so their order is irrelevant.
func (pd *ParamDict[B]) asOperand(other any) (*ParamDict[B], bool) {
	switch o := other.(type) {
	case *ParamDict[B]:
		return o, true
	case map[string]*tensor.Tensor[float32, B]:
		return ParamDictFromMap(o), true
	default:
		return nil, false
	}
}

// mapValues applies f to every value, building a new dict in the same order.
func (pd *ParamDict[B]) mapValues(f func(*tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]) *ParamDict[B] {
	out := NewParamDict[B]()
	for p := pd.entries.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, f(p.Value))
	}
	return out
}

// zipWith applies f pairwise over two dicts with identical key sets,
// iterating in pd's order.
func (pd *ParamDict[B]) zipWith(other *ParamDict[B], op string, f func(a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]) (*ParamDict[B], error) {
	if other.Len() != pd.Len() {
		return nil, fmt.Errorf("paramdict %s: %w: %d keys vs %d keys", op, ErrKeyMismatch, pd.Len(), other.Len())
	}
	out := NewParamDict[B]()
	for p := pd.entries.Oldest(); p != nil; p = p.Next() {
		bv, ok := other.Get(p.Key)
		if !ok {
			return nil, fmt.Errorf("paramdict %s: %w: missing key %q", op, ErrKeyMismatch, p.Key)
		}
		out.Set(p.Key, f(p.Value, bv))
	}
	return out, nil
}
