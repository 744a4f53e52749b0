package tensor

import "testing"

func TestAsScalarNumericTypes(t *testing.T) {
	tests := []struct {
		value    any
		expected float64
	}{
		{float64(1.5), 1.5},
		{float32(2.5), 2.5},
		{int(42), 42},
		{int8(-3), -3},
		{int16(300), 300},
		{int32(-7), -7},
		{int64(1 << 40), float64(int64(1) << 40)},
		{uint(9), 9},
		{uint8(255), 255},
		{uint16(65535), 65535},
		{uint32(12), 12},
		{uint64(34), 34},
	}

	for _, tt := range tests {
		got, ok := AsScalar(tt.value)
		if !ok {
			t.Errorf("AsScalar(%T) not recognized as scalar", tt.value)
			continue
		}
		if got != tt.expected {
			t.Errorf("AsScalar(%v) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestAsScalarRejectsNonNumeric(t *testing.T) {
	nonScalars := []any{
		"3.14",
		[]float32{1},
		map[string]float64{"w": 1},
		nil,
		true,
	}

	for _, v := range nonScalars {
		if _, ok := AsScalar(v); ok {
			t.Errorf("AsScalar(%T) should not be recognized as scalar", v)
		}
	}
}

func TestScalarToFloat64Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("ScalarToFloat64 on a string should panic")
		}
	}()
	_ = ScalarToFloat64("not a number")
}
