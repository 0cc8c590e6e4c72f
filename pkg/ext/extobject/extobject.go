// Package extobject provides object functions: key and value listing,
// projection, merging and dotted-path access.
package extobject

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// All returns all object function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Keys(),
		Values(),
		Items(),
		FromItems(),
		Pick(),
		Omit(),
		DeepMerge(),
		Defaults(),
		Invert(),
		RenameKeys(),
		Get(),
		HasPath(),
		SetPath(),
		FlattenKeys(),
		UnflattenKeys(),
		DeepEquals(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryObject,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

// entries wraps types.ObjectEntries for arguments already checked as objects.
func entries(v any) ([]string, map[string]any) {
	keys, vals, _ := types.ObjectEntries(v)
	return keys, vals
}

// Keys returns the descriptor for keys(object).
func Keys() functions.Descriptor {
	return leaf("keys", "<o:a<s>>", "Keys of the object", `keys({"a": 1, "b": 2}) -> ["a", "b"]`,
		func(args ...any) (any, error) {
			keys, _ := entries(args[0])
			out := make([]any, len(keys))
			for i, k := range keys {
				out[i] = k
			}
			return out, nil
		})
}

// Values returns the descriptor for values(object).
func Values() functions.Descriptor {
	return leaf("values", "<o:a>", "Values of the object in key order", `values({"a": 1, "b": 2}) -> [1, 2]`,
		func(args ...any) (any, error) {
			keys, vals := entries(args[0])
			out := make([]any, len(keys))
			for i, k := range keys {
				out[i] = vals[k]
			}
			return out, nil
		})
}

// Items returns the descriptor for items(object).
// Returns [[key, value], ...] for each key in the object.
func Items() functions.Descriptor {
	return leaf("items", "<o:a>", "[key, value] pairs of the object", `items({"a": 1}) -> [["a", 1]]`,
		func(args ...any) (any, error) {
			keys, vals := entries(args[0])
			out := make([]any, len(keys))
			for i, k := range keys {
				out[i] = []any{k, vals[k]}
			}
			return out, nil
		})
}

// FromItems returns the descriptor for from_items(array).
// Converts [[key, value], ...] into an object; later keys win.
func FromItems() functions.Descriptor {
	return leaf("from_items", "<a<a>:o>", "Build an object from [key, value] pairs", `from_items([["a", 1]]) -> {"a": 1}`,
		func(args ...any) (any, error) {
			out := types.NewOrderedObject()
			for i, item := range args[0].([]any) {
				pair := item.([]any)
				if len(pair) < 2 {
					return nil, fmt.Errorf("element %d must be a [key, value] pair", i+1)
				}
				key, ok := pair[0].(string)
				if !ok {
					return nil, types.Errorf(types.ErrCodeTypeMismatch, "key of element %d must be a string", i+1).
						WithTypes(types.TypeString, types.TypeOf(pair[0]))
				}
				out.Set(key, pair[1])
			}
			return out, nil
		})
}

// Pick returns the descriptor for pick(object, keys).
func Pick() functions.Descriptor {
	return leaf("pick", "<o-a<s>:o>", "Object with only the listed keys", `pick({"a": 1, "b": 2}, ["a"]) -> {"a": 1}`,
		func(args ...any) (any, error) {
			_, vals := entries(args[0])
			out := types.NewOrderedObject()
			for _, k := range args[1].([]any) {
				if v, ok := vals[k.(string)]; ok {
					out.Set(k.(string), v)
				}
			}
			return out, nil
		})
}

// Omit returns the descriptor for omit(object, keys).
func Omit() functions.Descriptor {
	return leaf("omit", "<o-a<s>:o>", "Object without the listed keys", `omit({"a": 1, "b": 2}, ["a"]) -> {"b": 2}`,
		func(args ...any) (any, error) {
			keys, vals := entries(args[0])
			skip := make(map[string]bool)
			for _, k := range args[1].([]any) {
				skip[k.(string)] = true
			}
			out := types.NewOrderedObject()
			for _, k := range keys {
				if !skip[k] {
					out.Set(k, vals[k])
				}
			}
			return out, nil
		})
}

// DeepMerge returns the descriptor for deep_merge(object...).
// Recursively merges objects; later objects override earlier ones.
func DeepMerge() functions.Descriptor {
	return leaf("deep_merge", "<o+:o>", "Recursively merge objects, later values win",
		`deep_merge({"a": {"x": 1}}, {"a": {"y": 2}}) -> {"a": {"x": 1, "y": 2}}`,
		func(args ...any) (any, error) {
			out := types.NewOrderedObject()
			for _, item := range args {
				mergeInto(out, item, true)
			}
			return out, nil
		})
}

// Defaults returns the descriptor for defaults(object, defaults).
func Defaults() functions.Descriptor {
	return leaf("defaults", "<o-o:o>", "Fill keys missing from the object with values from defaults",
		`defaults({"a": 1}, {"a": 0, "b": 2}) -> {"a": 1, "b": 2}`,
		func(args ...any) (any, error) {
			out := types.NewOrderedObject()
			mergeInto(out, args[0], false)
			mergeInto(out, args[1], false)
			return out, nil
		})
}

// mergeInto copies src into dst. Nested objects are merged recursively when
// deep is set; otherwise only missing keys are filled.
func mergeInto(dst *types.OrderedObject, src any, deep bool) {
	keys, vals := entries(src)
	for _, k := range keys {
		v := vals[k]
		existing, exists := dst.Get(k)
		switch {
		case !exists:
			if deep && types.IsObject(v) {
				child := types.NewOrderedObject()
				mergeInto(child, v, true)
				v = child
			}
			dst.Set(k, v)
		case deep && types.IsObject(v) && types.IsObject(existing):
			child := types.NewOrderedObject()
			mergeInto(child, existing, true)
			mergeInto(child, v, true)
			dst.Set(k, child)
		case deep:
			dst.Set(k, v)
		}
	}
}

// Invert returns the descriptor for invert(object).
// Swaps keys and values; values are stringified.
func Invert() functions.Descriptor {
	return leaf("invert", "<o:o>", "Swap keys and stringified values", `invert({"a": "x"}) -> {"x": "a"}`,
		func(args ...any) (any, error) {
			keys, vals := entries(args[0])
			out := types.NewOrderedObject()
			for _, k := range keys {
				out.Set(types.KeyString(vals[k]), k)
			}
			return out, nil
		})
}

// RenameKeys returns the descriptor for rename_keys(object, mapping).
func RenameKeys() functions.Descriptor {
	return leaf("rename_keys", "<o-o:o>", "Rename keys using an old -> new mapping",
		`rename_keys({"a": 1}, {"a": "b"}) -> {"b": 1}`,
		func(args ...any) (any, error) {
			keys, vals := entries(args[0])
			out := types.NewOrderedObject()
			for _, k := range keys {
				name := k
				if to, ok := types.Field(args[1], k); ok {
					s, ok := to.(string)
					if !ok {
						return nil, types.Errorf(types.ErrCodeTypeMismatch, "new name for %q must be a string", k).
							WithTypes(types.TypeString, types.TypeOf(to))
					}
					name = s
				}
				out.Set(name, vals[k])
			}
			return out, nil
		})
}

// splitPath splits a dotted path; numeric segments index arrays.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func lookup(v any, path []string) (any, bool) {
	cur := v
	for _, seg := range path {
		switch node := cur.(type) {
		case []any:
			var i int
			if _, err := fmt.Sscanf(seg, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			next, ok := types.Field(node, seg)
			if !ok {
				return nil, false
			}
			cur = next
		}
	}
	return cur, true
}

// Get returns the descriptor for get(value, path [, default]).
func Get() functions.Descriptor {
	return leaf("get", "<x-s-x?:x>", "Value at a dotted path such as \"a.b.0\", or the default",
		`get({"a": {"b": [5]}}, "a.b.0") -> 5`,
		func(args ...any) (any, error) {
			if v, ok := lookup(args[0], splitPath(args[1].(string))); ok {
				return v, nil
			}
			if len(args) > 2 {
				return args[2], nil
			}
			return nil, nil
		})
}

// HasPath returns the descriptor for has_path(value, path).
func HasPath() functions.Descriptor {
	return leaf("has_path", "<x-s:b>", "Whether a dotted path exists", `has_path({"a": {"b": 1}}, "a.b") -> true`,
		func(args ...any) (any, error) {
			_, ok := lookup(args[0], splitPath(args[1].(string)))
			return ok, nil
		})
}

// SetPath returns the descriptor for set_path(object, path, value).
// Intermediate objects are created as needed; the input is not modified.
func SetPath() functions.Descriptor {
	return leaf("set_path", "<o-s-x:o>", "Copy of the object with the value stored at a dotted path",
		`set_path({}, "a.b", 1) -> {"a": {"b": 1}}`,
		func(args ...any) (any, error) {
			path := splitPath(args[1].(string))
			if len(path) == 0 {
				return nil, fmt.Errorf("path must not be empty")
			}
			return setPath(args[0], path, args[2]), nil
		})
}

func setPath(node any, path []string, value any) *types.OrderedObject {
	out := types.NewOrderedObject()
	if types.IsObject(node) {
		keys, vals := entries(node)
		for _, k := range keys {
			out.Set(k, vals[k])
		}
	}
	if len(path) == 1 {
		out.Set(path[0], value)
		return out
	}
	child, _ := out.Get(path[0])
	out.Set(path[0], setPath(child, path[1:], value))
	return out
}

// FlattenKeys returns the descriptor for flatten_keys(object [, separator]).
func FlattenKeys() functions.Descriptor {
	return leaf("flatten_keys", "<o-s?:o>", "Flatten nested objects into separator-joined keys (default \".\")",
		`flatten_keys({"a": {"b": 1}}) -> {"a.b": 1}`,
		func(args ...any) (any, error) {
			sep := "."
			if len(args) > 1 && args[1] != nil {
				sep = args[1].(string)
			}
			out := types.NewOrderedObject()
			flatten(out, "", sep, args[0])
			return out, nil
		})
}

func flatten(out *types.OrderedObject, prefix, sep string, v any) {
	if !types.IsObject(v) {
		out.Set(prefix, v)
		return
	}
	keys, vals := entries(v)
	if len(keys) == 0 && prefix != "" {
		out.Set(prefix, v)
		return
	}
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		flatten(out, key, sep, vals[k])
	}
}

// UnflattenKeys returns the descriptor for unflatten_keys(object [, separator]).
func UnflattenKeys() functions.Descriptor {
	return leaf("unflatten_keys", "<o-s?:o>", "Inverse of flatten_keys",
		`unflatten_keys({"a.b": 1}) -> {"a": {"b": 1}}`,
		func(args ...any) (any, error) {
			sep := "."
			if len(args) > 1 && args[1] != nil {
				sep = args[1].(string)
			}
			var out any = types.NewOrderedObject()
			keys, vals := entries(args[0])
			for _, k := range keys {
				out = setPath(out, strings.Split(k, sep), vals[k])
			}
			return out, nil
		})
}

// DeepEquals returns the descriptor for deep_equals(a, b).
func DeepEquals() functions.Descriptor {
	return leaf("deep_equals", "<x-x:b>", "Structural equality, ignoring object key order",
		`deep_equals({"a": [1]}, {"a": [1]}) -> true`,
		func(args ...any) (any, error) {
			return cmp.Equal(plain(args[0]), plain(args[1])), nil
		})
}

// plain converts ordered objects to maps recursively.
func plain(v any) any {
	switch t := v.(type) {
	case *types.OrderedObject:
		return plain(t.Map())
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	default:
		return v
	}
}
