package nn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-ml/shift/internal/tensor"
)

// dictOf builds a ParamDict with single-element values, in argument order.
func dictOf(t *testing.T, backend *tensor.MockBackend, pairs ...any) *ParamDict[*tensor.MockBackend] {
	t.Helper()

	pd := NewParamDict[*tensor.MockBackend]()
	for i := 0; i < len(pairs); i += 2 {
		name := pairs[i].(string)
		value := pairs[i+1].(float32)

		tt, err := tensor.FromSlice([]float32{value}, tensor.Shape{1}, backend)
		require.NoError(t, err)
		pd.Set(name, tt)
	}
	return pd
}

// values flattens single-element entries into name -> scalar for assertions.
func values(pd *ParamDict[*tensor.MockBackend]) map[string]float32 {
	out := make(map[string]float32)
	pd.Range(func(name string, t *tensor.Tensor[float32, *tensor.MockBackend]) bool {
		out[name] = t.Data()[0]
		return true
	})
	return out
}

func TestParamDictPreservesInsertionOrder(t *testing.T) {
	backend := tensor.NewMockBackend()
	pd := dictOf(t, backend, "fc.weight", float32(1), "fc.bias", float32(2), "head.weight", float32(3))

	assert.Equal(t, []string{"fc.weight", "fc.bias", "head.weight"}, pd.Keys())

	// Replacing a value keeps its position.
	tt, err := tensor.FromSlice([]float32{9}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	pd.Set("fc.bias", tt)
	assert.Equal(t, []string{"fc.weight", "fc.bias", "head.weight"}, pd.Keys())
}

func TestParamDictFromMapIsDeterministic(t *testing.T) {
	backend := tensor.NewMockBackend()
	w1, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	w2, err := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	pd := ParamDictFromMap(map[string]*tensor.Tensor[float32, *tensor.MockBackend]{
		"zebra": w2,
		"alpha": w1,
	})
	assert.Equal(t, []string{"alpha", "zebra"}, pd.Keys())
}

func TestParamDictScalarAddRoundTrip(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(2), "w2", float32(-3.5))

	up, err := a.Add(0.25)
	require.NoError(t, err)
	down, err := up.Add(-0.25)
	require.NoError(t, err)

	for name, v := range values(down) {
		assert.InDelta(t, values(a)[name], v, 1e-6, "round trip mismatch for %s", name)
	}
}

func TestParamDictAddSubInverse(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(2), "w2", float32(5))
	b := dictOf(t, backend, "w1", float32(1), "w2", float32(-4))

	sum, err := a.Add(b)
	require.NoError(t, err)
	back, err := sum.Sub(b)
	require.NoError(t, err)

	for name, v := range values(back) {
		assert.InDelta(t, values(a)[name], v, 1e-6, "inverse mismatch for %s", name)
	}
}

func TestParamDictDoubleNegation(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(2), "w2", float32(-7))

	twice := a.Neg().Neg()

	assert.Equal(t, values(a), values(twice))
	assert.Equal(t, a.Keys(), twice.Keys())
}

func TestParamDictScaleIdentity(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(2), "w2", float32(-7))

	one := a.Scale(1)

	assert.Equal(t, values(a), values(one))
}

func TestParamDictSubtract(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(3), "w2", float32(5))
	b := dictOf(t, backend, "w1", float32(2), "w2", float32(2))

	diff, err := a.Sub(b)
	require.NoError(t, err)

	assert.Equal(t, map[string]float32{"w1": 1, "w2": 3}, values(diff))
}

func TestParamDictScale(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(2))

	assert.Equal(t, map[string]float32{"w1": 6}, values(a.Scale(3)))
}

func TestParamDictIntegerScalar(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(0.5))

	// Integer scalars of any width are accepted, not just floats.
	sum, err := a.Add(42)
	require.NoError(t, err)
	assert.InDelta(t, 42.5, values(sum)["w1"], 1e-6)

	sum64, err := a.Add(int64(2))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, values(sum64)["w1"], 1e-6)
}

func TestParamDictMapOperand(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(3))

	other, err := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	sum, err := a.Add(map[string]*tensor.Tensor[float32, *tensor.MockBackend]{"w1": other})
	require.NoError(t, err)
	assert.Equal(t, map[string]float32{"w1": 5}, values(sum))
}

func TestParamDictDiv(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(8), "w2", float32(3))

	t.Run("elementwise", func(t *testing.T) {
		b := dictOf(t, backend, "w1", float32(2), "w2", float32(-3))
		q, err := a.Div(b)
		require.NoError(t, err)
		assert.Equal(t, map[string]float32{"w1": 4, "w2": -1}, values(q))
	})

	t.Run("scalar", func(t *testing.T) {
		q, err := a.Div(2)
		require.NoError(t, err)
		assert.Equal(t, map[string]float32{"w1": 4, "w2": 1.5}, values(q))
	})
}

func TestParamDictMul(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(3), "w2", float32(-2))
	b := dictOf(t, backend, "w1", float32(2), "w2", float32(4))

	prod, err := a.Mul(b)
	require.NoError(t, err)
	assert.Equal(t, map[string]float32{"w1": 6, "w2": -8}, values(prod))

	scaled, err := a.Mul(0.5)
	require.NoError(t, err)
	assert.Equal(t, map[string]float32{"w1": 1.5, "w2": -1}, values(scaled))
}

func TestParamDictKeyMismatch(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(1), "w2", float32(2))

	t.Run("missing key", func(t *testing.T) {
		b := dictOf(t, backend, "w1", float32(1), "w3", float32(2))
		_, err := a.Add(b)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeyMismatch)
		assert.Contains(t, err.Error(), "w2")
	})

	t.Run("extra key", func(t *testing.T) {
		b := dictOf(t, backend, "w1", float32(1), "w2", float32(2), "w3", float32(3))
		_, err := a.Add(b)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeyMismatch)
	})

	t.Run("subtract propagates", func(t *testing.T) {
		b := dictOf(t, backend, "w1", float32(1))
		_, err := a.Sub(b)
		assert.ErrorIs(t, err, ErrKeyMismatch)
	})
}

func TestParamDictUnsupportedOperand(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(1))

	for _, op := range []func(any) (*ParamDict[*tensor.MockBackend], error){a.Add, a.Sub, a.Div, a.Mul} {
		_, err := op("not a number")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedOperand)
		assert.False(t, errors.Is(err, ErrKeyMismatch))
	}
}

func TestParamDictOperandsNotMutated(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(2))
	b := dictOf(t, backend, "w1", float32(3))

	_, err := a.Add(b)
	require.NoError(t, err)
	_, err = a.Div(b)
	require.NoError(t, err)
	a.Neg()
	a.Scale(10)

	assert.Equal(t, map[string]float32{"w1": 2}, values(a))
	assert.Equal(t, map[string]float32{"w1": 3}, values(b))
}

func TestParamDictResultsAreHostResident(t *testing.T) {
	backend := tensor.NewMockDeviceBackend(tensor.CUDA)
	a := dictOf(t, backend, "w1", float32(2))
	b := dictOf(t, backend, "w1", float32(3))

	av, _ := a.Get("w1")
	require.Equal(t, tensor.CUDA, av.Device(), "operand should start on the accelerator")

	check := func(t *testing.T, pd *ParamDict[*tensor.MockBackend]) {
		t.Helper()
		v, ok := pd.Get("w1")
		require.True(t, ok)
		assert.Equal(t, tensor.CPU, v.Device())
		assert.False(t, v.RequiresGrad())
	}

	sum, err := a.Add(b)
	require.NoError(t, err)
	check(t, sum)

	sum, err = a.Add(1.5)
	require.NoError(t, err)
	check(t, sum)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	check(t, diff)

	quot, err := a.Div(2)
	require.NoError(t, err)
	check(t, quot)

	check(t, a.Neg())
	check(t, a.Scale(2))

	// Operands keep their device.
	assert.Equal(t, tensor.CUDA, av.Device())
}

func TestParamDictResultOwnsItsBuffer(t *testing.T) {
	backend := tensor.NewMockBackend()
	a := dictOf(t, backend, "w1", float32(2))

	sum, err := a.Add(1.0)
	require.NoError(t, err)

	// Writing through the result must not reach the source.
	v, _ := sum.Get("w1")
	v.Data()[0] = 99
	assert.Equal(t, float32(2), values(a)["w1"])
}

func TestSnapshotAndLoadInto(t *testing.T) {
	backend := tensor.NewMockBackend()
	model := NewLinear(4, 2, backend)

	snap := Snapshot[*tensor.MockBackend](model)
	require.Equal(t, []string{"weight", "bias"}, snap.Keys())

	// The snapshot is independent of the live parameters.
	model.Weight().Tensor().Data()[0] += 100
	w, _ := snap.Get("weight")
	assert.NotEqual(t, model.Weight().Tensor().Data()[0], w.Data()[0])

	// Loading restores the captured weights in place.
	require.NoError(t, snap.LoadInto(model))
	assert.InDelta(t, float64(w.Data()[0]), float64(model.Weight().Tensor().Data()[0]), 1e-6)
}

func TestLoadIntoKeyMismatch(t *testing.T) {
	backend := tensor.NewMockBackend()
	model := NewLinear(4, 2, backend)

	pd := dictOf(t, backend, "weight", float32(1))
	err := pd.LoadInto(model)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestLoadIntoShapeMismatch(t *testing.T) {
	backend := tensor.NewMockBackend()
	model := NewLinear(4, 2, backend)

	wrongW, err := tensor.FromSlice(make([]float32, 6), tensor.Shape{3, 2}, backend)
	require.NoError(t, err)
	wrongB, err := tensor.FromSlice(make([]float32, 2), tensor.Shape{2}, backend)
	require.NoError(t, err)

	pd := NewParamDict[*tensor.MockBackend]()
	pd.Set("weight", wrongW)
	pd.Set("bias", wrongB)

	err = pd.LoadInto(model)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestParamDictInterpolation(t *testing.T) {
	// One Reptile-style outer step: anchor + eps * (inner - anchor).
	backend := tensor.NewMockBackend()
	anchor := dictOf(t, backend, "w", float32(1), "b", float32(0))
	inner := dictOf(t, backend, "w", float32(3), "b", float32(2))

	delta, err := inner.Sub(anchor)
	require.NoError(t, err)
	step, err := anchor.Add(delta.Scale(0.5))
	require.NoError(t, err)

	assert.Equal(t, map[string]float32{"w": 2, "b": 1}, values(step))
	assert.Equal(t, []string{"w", "b"}, step.Keys())
}
