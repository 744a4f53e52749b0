// Copyright 2025 Shift ML Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/tensor"
)

// Sentinel errors returned by ParamDict arithmetic. Callers match them with
// errors.Is.
var (
	// ErrUnsupportedOperand reports an operand of a kind the operation
	// cannot handle (anything other than a numeric scalar, a *ParamDict,
	// or a plain name -> tensor map).
	ErrUnsupportedOperand = nn.ErrUnsupportedOperand

	// ErrKeyMismatch reports two parameter collections whose key sets differ.
	ErrKeyMismatch = nn.ErrKeyMismatch
)

// ParamDict is an ordered mapping from parameter name to tensor with
// elementwise arithmetic. It treats a model's parameters as a single point in
// weight space, which is how interpolation, weight averaging, and task
// vectors between checkpoints are expressed.
//
// Example:
//
//	inner := nn.Snapshot(innerModel)
//	anchor := nn.Snapshot(anchorModel)
//
//	delta, err := inner.Sub(anchor)      // inner - anchor, per parameter
//	if err != nil {
//	    log.Fatal(err)
//	}
//	step, _ := anchor.Add(delta.Scale(eps))
//	err = step.LoadInto(model)
//
// Iteration follows insertion order, so two dicts snapshotted from the same
// module align key-for-key.
//
// Arithmetic contract: every operation returns a new ParamDict and never
// mutates its operands. Result tensors are always detached, host-resident
// copies, regardless of which device the operands live on. Binary operations
// over two dicts require identical key sets and fail with ErrKeyMismatch.
//
// Methods:
//
//	Set(name string, t *tensor.Tensor[float32, B])
//	    Inserts or replaces an entry. New names append to the order.
//
//	Get(name string) (*tensor.Tensor[float32, B], bool)
//	    Returns the value for name.
//
//	Len() int
//	    Returns the number of entries.
//
//	Keys() []string
//	    Returns the parameter names in iteration order.
//
//	Range(f func(name string, t *tensor.Tensor[float32, B]) bool)
//	    Calls f per entry in order until f returns false.
//
//	Add(other any) (*ParamDict[B], error)
//	Sub(other any) (*ParamDict[B], error)
//	Mul(other any) (*ParamDict[B], error)
//	Div(other any) (*ParamDict[B], error)
//	    Elementwise arithmetic. Operands may be numeric scalars, another
//	    *ParamDict, or a plain name -> tensor map.
//
//	Scale(s float64) *ParamDict[B]
//	Neg() *ParamDict[B]
//	    Unary scaling and negation.
//
//	LoadInto(m Module[B]) error
//	    Writes values back into a module's parameters in place.
type ParamDict[B tensor.Backend] = nn.ParamDict[B]

// NewParamDict creates an empty ParamDict.
func NewParamDict[B tensor.Backend]() *ParamDict[B] {
	return nn.NewParamDict[B]()
}

// ParamDictFromMap creates a ParamDict from a plain map. Go maps have no
// iteration order, so keys are inserted in sorted order to keep the result
// deterministic.
func ParamDictFromMap[B tensor.Backend](m map[string]*tensor.Tensor[float32, B]) *ParamDict[B] {
	return nn.ParamDictFromMap(m)
}

// Snapshot captures a module's current parameters as a ParamDict.
//
// Values are detached host-resident copies, so later optimizer steps on the
// module do not change the snapshot.
//
// Example:
//
//	anchor := nn.Snapshot(model)
//	// ... several optimizer steps later ...
//	delta, _ := nn.Snapshot(model).Sub(anchor)
func Snapshot[B tensor.Backend](m Module[B]) *ParamDict[B] {
	return nn.Snapshot(m)
}
