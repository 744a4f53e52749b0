package loader

import (
	"testing"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/shift-ml/shift/internal/backend/cpu"
	"github.com/shift-ml/shift/internal/tensor"
)

func floatTensor(data []float32, size, stride []int) *pytorch.Tensor {
	return &pytorch.Tensor{
		Source:        &pytorch.FloatStorage{Data: data, Size: len(data)},
		StorageOffset: 0,
		Size:          size,
		Stride:        stride,
	}
}

func TestConvertTorchTensor(t *testing.T) {
	backend := cpu.New()

	src := floatTensor([]float32{1, 2, 3, 4, 5, 6}, []int{2, 3}, []int{3, 1})
	raw, err := convertTorchTensor(src, backend)
	if err != nil {
		t.Fatalf("convertTorchTensor failed: %v", err)
	}

	shape := raw.Shape()
	if len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Errorf("Expected shape [2, 3], got %v", shape)
	}
	if raw.DType() != tensor.Float32 {
		t.Errorf("Expected dtype Float32, got %v", raw.DType())
	}

	data := raw.AsFloat32()
	for i, v := range []float32{1, 2, 3, 4, 5, 6} {
		if data[i] != v {
			t.Errorf("Expected data[%d]=%f, got %f", i, v, data[i])
		}
	}
}

func TestConvertTorchTensor_StorageOffset(t *testing.T) {
	backend := cpu.New()

	// Two tensors sharing one storage, the second at offset 4
	storage := &pytorch.FloatStorage{Data: []float32{1, 2, 3, 4, 10, 20, 30}, Size: 7}
	src := &pytorch.Tensor{
		Source:        storage,
		StorageOffset: 4,
		Size:          []int{3},
		Stride:        []int{1},
	}

	raw, err := convertTorchTensor(src, backend)
	if err != nil {
		t.Fatalf("convertTorchTensor failed: %v", err)
	}

	data := raw.AsFloat32()
	for i, v := range []float32{10, 20, 30} {
		if data[i] != v {
			t.Errorf("Expected data[%d]=%f, got %f", i, v, data[i])
		}
	}
}

func TestConvertTorchTensor_Dtypes(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name    string
		src     *pytorch.Tensor
		dtype   tensor.DataType
		wantErr bool
	}{
		{
			name: "double",
			src: &pytorch.Tensor{
				Source: &pytorch.DoubleStorage{Data: []float64{1.5, 2.5}, Size: 2},
				Size:   []int{2},
				Stride: []int{1},
			},
			dtype: tensor.Float64,
		},
		{
			name: "long",
			src: &pytorch.Tensor{
				Source: &pytorch.LongStorage{Data: []int64{7, 8, 9}, Size: 3},
				Size:   []int{3},
				Stride: []int{1},
			},
			dtype: tensor.Int64,
		},
		{
			name: "int",
			src: &pytorch.Tensor{
				Source: &pytorch.IntStorage{Data: []int32{4, 5}, Size: 2},
				Size:   []int{2},
				Stride: []int{1},
			},
			dtype: tensor.Int32,
		},
		{
			name: "half widens to float32",
			src: &pytorch.Tensor{
				Source: &pytorch.HalfStorage{Data: []float32{0.5, 1.5}, Size: 2},
				Size:   []int{2},
				Stride: []int{1},
			},
			dtype: tensor.Float32,
		},
		{
			name: "bool unsupported",
			src: &pytorch.Tensor{
				Source: &pytorch.BoolStorage{Data: []bool{true}, Size: 1},
				Size:   []int{1},
				Stride: []int{1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := convertTorchTensor(tt.src, backend)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("convertTorchTensor failed: %v", err)
			}
			if raw.DType() != tt.dtype {
				t.Errorf("Expected dtype %v, got %v", tt.dtype, raw.DType())
			}
		})
	}
}

func TestConvertTorchTensor_NonContiguous(t *testing.T) {
	backend := cpu.New()

	// Transposed view: size [3, 2] with stride [1, 3]
	src := floatTensor([]float32{1, 2, 3, 4, 5, 6}, []int{3, 2}, []int{1, 3})
	if _, err := convertTorchTensor(src, backend); err == nil {
		t.Fatal("Expected error for non-contiguous tensor")
	}
}

func TestTorchContiguous(t *testing.T) {
	tests := []struct {
		name   string
		size   []int
		stride []int
		want   bool
	}{
		{"matrix", []int{2, 3}, []int{3, 1}, true},
		{"vector", []int{5}, []int{1}, true},
		{"scalar", nil, nil, true},
		{"transposed", []int{3, 2}, []int{1, 3}, false},
		{"singleton dims ignore stride", []int{1, 3}, []int{99, 1}, true},
		{"conv weight", []int{64, 3, 7, 7}, []int{147, 49, 7, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := torchContiguous(&pytorch.Tensor{Size: tt.size, Stride: tt.stride})
			if got != tt.want {
				t.Errorf("torchContiguous() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindTorchStateDict_Flat(t *testing.T) {
	od := types.NewOrderedDict()
	od.Set("fc.weight", floatTensor([]float32{1, 2}, []int{2}, []int{1}))
	od.Set("fc.bias", floatTensor([]float32{3}, []int{1}, []int{1}))

	tensors, err := findTorchStateDict(od)
	if err != nil {
		t.Fatalf("findTorchStateDict failed: %v", err)
	}
	if len(tensors) != 2 {
		t.Fatalf("Expected 2 tensors, got %d", len(tensors))
	}
	if _, ok := tensors["fc.weight"]; !ok {
		t.Error("fc.weight not found")
	}
}

func TestFindTorchStateDict_Wrapped(t *testing.T) {
	inner := types.NewOrderedDict()
	inner.Set("fc.weight", floatTensor([]float32{1, 2}, []int{2}, []int{1}))

	outer := types.NewOrderedDict()
	outer.Set("epoch", 10)
	outer.Set("state_dict", inner)

	tensors, err := findTorchStateDict(outer)
	if err != nil {
		t.Fatalf("findTorchStateDict failed: %v", err)
	}
	if len(tensors) != 1 {
		t.Fatalf("Expected 1 tensor, got %d", len(tensors))
	}
	if _, ok := tensors["fc.weight"]; !ok {
		t.Error("fc.weight not found in wrapped dict")
	}
}

func TestFindTorchStateDict_PlainDict(t *testing.T) {
	d := types.NewDict()
	d.Set("head.weight", floatTensor([]float32{1}, []int{1}, []int{1}))

	tensors, err := findTorchStateDict(d)
	if err != nil {
		t.Fatalf("findTorchStateDict failed: %v", err)
	}
	if len(tensors) != 1 {
		t.Fatalf("Expected 1 tensor, got %d", len(tensors))
	}
}

func TestFindTorchStateDict_NoTensors(t *testing.T) {
	od := types.NewOrderedDict()
	od.Set("epoch", 10)
	od.Set("loss", 0.5)

	if _, err := findTorchStateDict(od); err == nil {
		t.Fatal("Expected error for dict without tensors")
	}

	if _, err := findTorchStateDict("not a dict"); err == nil {
		t.Fatal("Expected error for non-dict input")
	}
}
