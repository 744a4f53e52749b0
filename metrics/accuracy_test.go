package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-ml/shift/internal/backend/cpu"
	"github.com/shift-ml/shift/internal/tensor"
)

func logitsTensor(t *testing.T, backend *cpu.CPUBackend, data []float32, batch, classes int) *tensor.RawTensor {
	t.Helper()
	tt, err := tensor.FromSlice(data, tensor.Shape{batch, classes}, backend)
	require.NoError(t, err)
	return tt.Raw()
}

func labelTensor(t *testing.T, backend *cpu.CPUBackend, labels []int64) *tensor.RawTensor {
	t.Helper()
	tt, err := tensor.FromSlice(labels, tensor.Shape{len(labels)}, backend)
	require.NoError(t, err)
	return tt.Raw()
}

func TestAccuracyTop1(t *testing.T) {
	backend := cpu.New()
	output := logitsTensor(t, backend, []float32{
		0.1, 0.9,
		0.8, 0.2,
		0.3, 0.7,
	}, 3, 2)
	target := labelTensor(t, backend, []int64{1, 0, 0})

	res, err := Accuracy(output, target)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 100.0*2/3, res[0], 1e-6)
}

func TestAccuracyTopK(t *testing.T) {
	backend := cpu.New()
	output := logitsTensor(t, backend, []float32{
		0.5, 0.3, 0.2,
		0.1, 0.2, 0.7,
		0.3, 0.4, 0.3,
		0.25, 0.25, 0.5,
	}, 4, 3)
	target := labelTensor(t, backend, []int64{0, 1, 1, 0})

	res, err := Accuracy(output, target, 1, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.InDelta(t, 50.0, res[0], 1e-6)
	assert.InDelta(t, 100.0, res[1], 1e-6)
}

func TestAccuracyTiesResolveToLowerIndex(t *testing.T) {
	backend := cpu.New()
	output := logitsTensor(t, backend, []float32{0.5, 0.5}, 1, 2)

	res, err := Accuracy(output, labelTensor(t, backend, []int64{0}))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res[0], 1e-6)

	res, err = Accuracy(output, labelTensor(t, backend, []int64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res[0], 1e-6)
}

func TestAccuracyInt32Targets(t *testing.T) {
	backend := cpu.New()
	output := logitsTensor(t, backend, []float32{
		0.9, 0.1,
		0.2, 0.8,
	}, 2, 2)

	tt, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	res, err := Accuracy(output, tt.Raw())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res[0], 1e-6)
}

func TestAccuracyLargeBatch(t *testing.T) {
	// Exercises the parallel path: every even sample is classified
	// correctly, every odd one is not.
	backend := cpu.New()
	batch := 512
	data := make([]float32, batch*2)
	labels := make([]int64, batch)
	for i := 0; i < batch; i++ {
		if i%2 == 0 {
			data[i*2] = 1
			labels[i] = 0
		} else {
			data[i*2] = 1
			labels[i] = 1
		}
	}

	res, err := Accuracy(logitsTensor(t, backend, data, batch, 2), labelTensor(t, backend, labels))
	require.NoError(t, err)
	assert.InDelta(t, 50.0, res[0], 1e-6)
}

func TestAccuracyErrors(t *testing.T) {
	backend := cpu.New()
	output := logitsTensor(t, backend, []float32{0.1, 0.9}, 1, 2)
	target := labelTensor(t, backend, []int64{1})

	tests := []struct {
		name string
		run  func() error
	}{
		{"1D logits", func() error {
			bad, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
			require.NoError(t, err)
			_, aerr := Accuracy(bad.Raw(), target)
			return aerr
		}},
		{"k exceeds classes", func() error {
			_, err := Accuracy(output, target, 3)
			return err
		}},
		{"k not positive", func() error {
			_, err := Accuracy(output, target, 0)
			return err
		}},
		{"target batch mismatch", func() error {
			_, err := Accuracy(output, labelTensor(t, backend, []int64{0, 1}))
			return err
		}},
		{"float targets", func() error {
			bad, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
			require.NoError(t, err)
			_, aerr := Accuracy(output, bad.Raw())
			return aerr
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.run())
		})
	}
}
