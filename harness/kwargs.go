package harness

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kwargs holds free-form key=value hyperparameters passed on the command
// line, for method settings that have no dedicated flag. Values coerce
// in order: int, float, bool, then string.
//
// Kwargs implements flag.Value, so repeated --kwargs flags accumulate:
//
//	var kw harness.Kwargs
//	flags.Var(&kw, "kwargs", "extra key=value hyperparameters")
type Kwargs map[string]any

// ParseKwargs parses a list of key=value pairs.
func ParseKwargs(pairs []string) (Kwargs, error) {
	kw := make(Kwargs, len(pairs))
	for _, pair := range pairs {
		if err := kw.Set(pair); err != nil {
			return nil, err
		}
	}
	return kw, nil
}

// Set parses one key=value pair, coercing the value.
func (k *Kwargs) Set(pair string) error {
	key, value, found := strings.Cut(pair, "=")
	if !found || key == "" {
		return fmt.Errorf("kwargs entry %q is not key=value", pair)
	}
	if *k == nil {
		*k = make(Kwargs)
	}
	(*k)[key] = coerceValue(value)
	return nil
}

// String renders the pairs as "k=v" joined by spaces, keys sorted.
func (k Kwargs) String() string {
	if len(k) == 0 {
		return ""
	}
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s=%v", key, k[key])
	}
	return strings.Join(parts, " ")
}

// Int returns the named value when it holds an integer. Whole numbers
// decoded from a JSON config arrive as float64 and are narrowed here.
func (k Kwargs) Int(key string) (int, bool) {
	switch v := k[key].(type) {
	case int:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// Float returns the named value as a float64, widening ints.
func (k Kwargs) Float(key string) (float64, bool) {
	switch v := k[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Bool returns the named value when it coerced to a bool.
func (k Kwargs) Bool(key string) (bool, bool) {
	v, ok := k[key].(bool)
	return v, ok
}

func coerceValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "True", "true":
		return true
	case "False", "false":
		return false
	}
	return s
}
