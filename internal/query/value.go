package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/tempo/internal/model"
)

// Value is a sealed interface representing script runtime values.
// Only Number, String, Bool, List, Dict, None and Callable implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Number is the only numeric type; integers are whole floats.
type Number float64

// String is a script string.
type String string

// Bool is true or false.
type Bool bool

// List is an ordered sequence of values.
type List []Value

// Dict maps string keys to values.
// Use model.SortedKeys for deterministic iteration.
type Dict map[string]Value

// None is the absence of a value.
type None struct{}

// Callable wraps a built-in function so it can live in the same name
// table as ordinary variables.
type Callable struct {
	Name string
	Fn   Builtin
}

func (Number) value()   {}
func (String) value()   {}
func (Bool) value()     {}
func (List) value()     {}
func (Dict) value()     {}
func (None) value()     {}
func (Callable) value() {}

// TypeName returns the script-level type name of v.
func TypeName(v Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Dict:
		return "dict"
	case None:
		return "none"
	case Callable:
		return "function"
	}
	return fmt.Sprintf("%T", v)
}

// Native converts v to plain Go values suitable for encoding/json:
// float64, string, bool, []any, map[string]any and nil. A Callable
// becomes the string "<function name>".
func Native(v Value) any {
	switch val := v.(type) {
	case Number:
		return float64(val)
	case String:
		return string(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	case Dict:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Native(elem)
		}
		return out
	case Callable:
		return "<function " + val.Name + ">"
	}
	return nil
}

// FromNative converts decoded JSON data to a Value.
func FromNative(x any) (Value, error) {
	switch val := x.(type) {
	case nil:
		return None{}, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			v, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		out := make(Dict, len(val))
		for k, elem := range val {
			v, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", x)
}

// MarshalJSON encodes values in their native JSON form.
func MarshalJSON(v Value) ([]byte, error) {
	return json.Marshal(Native(v))
}

// Format renders v the way print shows it: strings unquoted at the top
// level, containers as canonical JSON.
func Format(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return formatNumber(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	case None:
		return "none"
	case Callable:
		return "<function " + val.Name + ">"
	}
	b, err := model.MarshalCanonical(Native(v))
	if err != nil {
		return fmt.Sprintf("<%s: %v>", TypeName(v), err)
	}
	return string(b)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
