// Package exttypes provides type predicates and conversions.
package exttypes

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// All returns all type function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		TypeOf(),
		IsString(),
		IsNumber(),
		IsBoolean(),
		IsArray(),
		IsObject(),
		IsNull(),
		IsEmpty(),
		IsBlank(),
		ToString(),
		ToNumber(),
		ToBoolean(),
		Identity(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryType,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func is(name, typ string) functions.Descriptor {
	return leaf(name, "<x:b>", "Whether the value is of type "+typ, name+"(v) -> true",
		func(args ...any) (any, error) {
			return types.TypeOf(args[0]) == typ, nil
		})
}

// TypeOf returns the descriptor for type_of(v).
func TypeOf() functions.Descriptor {
	return leaf("type_of", "<x:s>", "JSON type name of the value", `type_of([1]) -> "array"`,
		func(args ...any) (any, error) {
			return types.TypeOf(args[0]), nil
		})
}

// IsString returns the descriptor for is_string(v).
func IsString() functions.Descriptor { return is("is_string", types.TypeString) }

// IsNumber returns the descriptor for is_number(v).
func IsNumber() functions.Descriptor { return is("is_number", types.TypeNumber) }

// IsBoolean returns the descriptor for is_boolean(v).
func IsBoolean() functions.Descriptor { return is("is_boolean", types.TypeBoolean) }

// IsArray returns the descriptor for is_array(v).
func IsArray() functions.Descriptor { return is("is_array", types.TypeArray) }

// IsObject returns the descriptor for is_object(v).
func IsObject() functions.Descriptor { return is("is_object", types.TypeObject) }

// IsNull returns the descriptor for is_null(v).
func IsNull() functions.Descriptor { return is("is_null", types.TypeNull) }

// IsEmpty returns the descriptor for is_empty(v).
// True for null, "", [] and {}.
func IsEmpty() functions.Descriptor {
	return leaf("is_empty", "<x:b>", "Whether the value is null, \"\", [] or {}", "is_empty([]) -> true",
		func(args ...any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return true, nil
			case string:
				return v == "", nil
			case []any:
				return len(v) == 0, nil
			case map[string]any:
				return len(v) == 0, nil
			case *types.OrderedObject:
				return v.Len() == 0, nil
			}
			return false, nil
		})
}

// IsBlank returns the descriptor for is_blank(v).
func IsBlank() functions.Descriptor {
	return leaf("is_blank", "<x:b>", "Whether the value is null or a whitespace-only string", `is_blank("  ") -> true`,
		func(args ...any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return true, nil
			case string:
				return strings.TrimSpace(v) == "", nil
			}
			return false, nil
		})
}

// ToString returns the descriptor for to_string(v).
// Arrays and objects are rendered as compact JSON; null stays null.
func ToString() functions.Descriptor {
	return leaf("to_string", "<x:s>", "String form of the value; arrays and objects become JSON",
		`to_string(2.5) -> "2.5"`,
		func(args ...any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case []any, map[string]any, *types.OrderedObject:
				b, err := json.Marshal(v)
				if err != nil {
					return nil, err
				}
				return string(b), nil
			default:
				return cast.ToStringE(v)
			}
		})
}

// ToNumber returns the descriptor for to_number(v).
func ToNumber() functions.Descriptor {
	return leaf("to_number", "<x:n>", "Numeric form of a number, numeric string or boolean",
		`to_number("42") -> 42`,
		func(args ...any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				f, err := cast.ToFloat64E(strings.TrimSpace(v))
				if err != nil {
					return nil, types.Errorf(types.ErrCodeTypeMismatch, "cannot convert %q to a number", v).
						WithTypes(types.TypeNumber, types.TypeString)
				}
				return f, nil
			case bool, float64:
				return cast.ToFloat64(v), nil
			default:
				return nil, types.Errorf(types.ErrCodeTypeMismatch, "cannot convert %s to a number", types.TypeOf(v)).
					WithTypes(types.TypeNumber, types.TypeOf(v))
			}
		})
}

// ToBoolean returns the descriptor for to_boolean(v).
// Strings accepted by strconv.ParseBool convert; everything else follows truthiness.
func ToBoolean() functions.Descriptor {
	return leaf("to_boolean", "<x:b>", "Boolean form of the value", `to_boolean("false") -> false`,
		func(args ...any) (any, error) {
			if s, ok := args[0].(string); ok {
				if b, err := cast.ToBoolE(s); err == nil {
					return b, nil
				}
			}
			return types.IsTruthy(args[0]), nil
		})
}

// Identity returns the descriptor for identity(v).
func Identity() functions.Descriptor {
	return leaf("identity", "<x:x>", "Returns its argument unchanged", "identity(1) -> 1",
		func(args ...any) (any, error) {
			return args[0], nil
		})
}
