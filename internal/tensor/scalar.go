package tensor

import "fmt"

// AsScalar reports whether v is a built-in numeric value and returns it as
// float64. All integer and float widths are accepted, so callers can pass
// plain untyped constants like 42 without converting first.
func AsScalar(v any) (float64, bool) {
	switch s := v.(type) {
	case float64:
		return s, true
	case float32:
		return float64(s), true
	case int:
		return float64(s), true
	case int8:
		return float64(s), true
	case int16:
		return float64(s), true
	case int32:
		return float64(s), true
	case int64:
		return float64(s), true
	case uint:
		return float64(s), true
	case uint8:
		return float64(s), true
	case uint16:
		return float64(s), true
	case uint32:
		return float64(s), true
	case uint64:
		return float64(s), true
	default:
		return 0, false
	}
}

// ScalarToFloat64 converts any built-in numeric value to float64.
// Panics for non-numeric values; backends use it after the caller has
// already committed to the scalar path.
func ScalarToFloat64(v any) float64 {
	s, ok := AsScalar(v)
	if !ok {
		panic(fmt.Sprintf("not a numeric scalar: %T", v))
	}
	return s
}
