package tensor

import (
	"testing"
)

// RawTensor Tests

func TestNewRaw(t *testing.T) {
	shape := Shape{3, 4}
	raw, err := NewRaw(shape, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if !raw.Shape().Equal(shape) {
		t.Errorf("Shape = %v, want %v", raw.Shape(), shape)
	}

	if raw.DType() != Float32 {
		t.Errorf("DType = %v, want Float32", raw.DType())
	}

	if raw.Device() != CPU {
		t.Errorf("Device = %v, want CPU", raw.Device())
	}

	if raw.NumElements() != 12 {
		t.Errorf("NumElements = %d, want 12", raw.NumElements())
	}

	if raw.ByteSize() != 48 { // 12 * 4 bytes
		t.Errorf("ByteSize = %d, want 48", raw.ByteSize())
	}
}

func TestNewRawAllTypes(t *testing.T) {
	types := []struct {
		dtype       DataType
		elementSize int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Int64, 8},
	}

	shape := Shape{2, 3}
	for _, tt := range types {
		raw, err := NewRaw(shape, tt.dtype, CPU)
		if err != nil {
			t.Fatalf("NewRaw(%v, %v) failed: %v", shape, tt.dtype, err)
		}

		if raw.DType() != tt.dtype {
			t.Errorf("DType = %v, want %v", raw.DType(), tt.dtype)
		}

		expectedByteSize := 6 * tt.elementSize // 2*3 elements
		if raw.ByteSize() != expectedByteSize {
			t.Errorf("ByteSize = %d, want %d for type %v", raw.ByteSize(), expectedByteSize, tt.dtype)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	invalidShapes := []Shape{
		{0},
		{-1},
		{2, 0},
		{2, -3},
	}

	for _, shape := range invalidShapes {
		_, err := NewRaw(shape, Float32, CPU)
		if err == nil {
			t.Errorf("NewRaw(%v) should fail but didn't", shape)
		}
	}
}

func TestRawTensorAsFloat32(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 4}, Float32, CPU)
	data := raw.AsFloat32()

	if len(data) != 12 {
		t.Errorf("AsFloat32 length = %d, want 12", len(data))
	}

	// Modify and verify zero-copy
	data[0] = 3.14
	if raw.AsFloat32()[0] != 3.14 {
		t.Error("AsFloat32 should return zero-copy slice")
	}
}

func TestRawTensorAsInt64(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Int64, CPU)
	data := raw.AsInt64()

	if len(data) != 6 {
		t.Errorf("AsInt64 length = %d, want 6", len(data))
	}

	// Modify and verify zero-copy
	data[0] = 42
	if raw.AsInt64()[0] != 42 {
		t.Error("AsInt64 should return zero-copy slice")
	}
}

func TestRawTensorAsWrongTypePanics(t *testing.T) {
	// Float32 tensor
	raw32, _ := NewRaw(Shape{2}, Float32, CPU)

	// AsFloat32 should work
	_ = raw32.AsFloat32()

	// AsFloat64 should panic
	defer func() {
		if r := recover(); r == nil {
			t.Error("AsFloat64 on Float32 tensor should panic")
		}
	}()
	_ = raw32.AsFloat64()
}

func TestRawTensorAsInt32WrongTypePanics(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float32, CPU)

	defer func() {
		if r := recover(); r == nil {
			t.Error("AsInt32 on Float32 tensor should panic")
		}
	}()
	_ = raw.AsInt32()
}

func TestRawTensorAsInt64WrongTypePanics(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float32, CPU)

	defer func() {
		if r := recover(); r == nil {
			t.Error("AsInt64 on Float32 tensor should panic")
		}
	}()
	_ = raw.AsInt64()
}

// RawTensor Copy-on-Write Tests

func TestRawTensorCloneIsShared(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Float32, CPU)
	data := raw.AsFloat32()
	data[0] = 1.0

	clone := raw.Clone()

	// Both should share the buffer
	if clone.AsFloat32()[0] != 1.0 {
		t.Error("Clone should share data initially")
	}

	// Neither should be unique (refCount > 1)
	if raw.IsUnique() || clone.IsUnique() {
		t.Error("After Clone(), neither tensor should be unique")
	}
}

func TestRawTensorDeepClone(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Float32, CPU)
	raw.AsFloat32()[0] = 1.0

	clone := raw.DeepClone()

	if clone.AsFloat32()[0] != 1.0 {
		t.Error("DeepClone should copy data")
	}

	// Independent buffers
	clone.AsFloat32()[0] = 999.0
	if raw.AsFloat32()[0] != 1.0 {
		t.Error("DeepClone must not share the buffer")
	}

	// Both stay unique
	if !raw.IsUnique() || !clone.IsUnique() {
		t.Error("After DeepClone(), both tensors should be unique")
	}
}

func TestRawTensorRelease(_ *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Float32, CPU)

	// Should not panic
	raw.Release()

	// Multiple releases should be safe (reference counting)
	raw.Release()
}

func TestRawTensorReferenceCounting(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Float32, CPU)

	// Initially unique
	if !raw.IsUnique() {
		t.Error("New tensor should be unique")
	}

	// Clone increases refCount
	clone1 := raw.Clone()
	if raw.IsUnique() || clone1.IsUnique() {
		t.Error("After Clone(), neither tensor should be unique")
	}

	// Another clone
	clone2 := raw.Clone()
	if raw.IsUnique() || clone1.IsUnique() || clone2.IsUnique() {
		t.Error("With 3 references, none should be unique")
	}

	// Release clones
	clone1.Release()
	clone2.Release()

	// After releasing both clones the original is the only reference again
	if !raw.IsUnique() {
		t.Error("After releasing clones, original should be unique")
	}
}

// Test empty tensor (scalar)

func TestRawTensorScalar(t *testing.T) {
	raw, _ := NewRaw(Shape{}, Float32, CPU)

	if raw.NumElements() != 1 {
		t.Errorf("Scalar tensor NumElements = %d, want 1", raw.NumElements())
	}

	if raw.ByteSize() != 4 {
		t.Errorf("Scalar tensor ByteSize = %d, want 4", raw.ByteSize())
	}

	data := raw.AsFloat32()
	if len(data) != 1 {
		t.Errorf("Scalar tensor data length = %d, want 1", len(data))
	}
}
