package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Type names reported by TypeOf and used in error messages.
const (
	TypeNull    = "null"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeArray   = "array"
	TypeObject  = "object"
)

// TypeOf returns the JSON type name of a document value.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return TypeNumber
	case string:
		return TypeString
	case []any:
		return TypeArray
	case map[string]any, *OrderedObject:
		return TypeObject
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsTruthy applies the query language truthiness rules: null, false, the
// empty string, the empty array and the empty object are false. Everything
// else, including 0, is true.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case *OrderedObject:
		return t.Len() > 0
	default:
		return true
	}
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Compare orders two values of the same scalar type: numbers numerically,
// strings lexicographically, booleans false before true. Nulls compare equal
// to each other and before every other value. Any other combination cannot
// be ordered and returns an error naming both types.
func Compare(a, b any) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1, nil
			case av > bv:
				return 1, nil
			}
			return 0, nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !av:
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, Errorf(ErrCodeEvaluation, "cannot compare %s with %s", TypeOf(a), TypeOf(b)).
		WithTypes(TypeOf(a), TypeOf(b))
}

// KeyString renders a value as an object key: strings verbatim, numbers in
// their shortest form, null as "null", composites as compact JSON.
func KeyString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// IdentityKey is KeyString tagged with the value type, so that the string
// "1" and the number 1 do not collide.
func IdentityKey(v any) string {
	return TypeOf(v) + ":" + KeyString(v)
}

// IsObject reports whether v is a map or an *OrderedObject.
func IsObject(v any) bool {
	switch v.(type) {
	case map[string]any, *OrderedObject:
		return true
	default:
		return false
	}
}

// ObjectEntries returns the keys and values of an object. Plain maps are
// returned with sorted keys so that iteration is deterministic.
func ObjectEntries(v any) ([]string, map[string]any, error) {
	switch o := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, o, nil
	case *OrderedObject:
		return o.Keys, o.Values, nil
	default:
		return nil, nil, Errorf(ErrCodeTypeMismatch, "expected object, got %s", TypeOf(v)).
			WithTypes(TypeObject, TypeOf(v))
	}
}

// Field returns the value stored under key when v is an object.
func Field(v any, key string) (any, bool) {
	switch o := v.(type) {
	case map[string]any:
		val, ok := o[key]
		return val, ok
	case *OrderedObject:
		return o.Get(key)
	default:
		return nil, false
	}
}

// Normalize converts a decoded value into the document value set: numbers
// become float64, maps keyed by any become map[string]any, and nested
// values are converted recursively.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[KeyString(k)] = Normalize(e)
		}
		return out
	case *OrderedObject:
		out := NewOrderedObject()
		for _, k := range t.Keys {
			out.Set(k, Normalize(t.Values[k]))
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	}
	if f, ok := ToFloat(v); ok {
		return f
	}
	return v
}
