// Package extutility provides general helpers: defaults, JSON encoding and
// JSON Pointer lookup, and environment access.
package extutility

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonpointer"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// FeatureEnv marks functions that read the process environment.
const FeatureEnv = "env"

// All returns all utility function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Default(),
		Coalesce(),
		JSONEncode(),
		JSONDecode(),
		JSONPointer(),
		Pretty(),
		GetEnv(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryUtility,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

// Default returns the descriptor for default(value, fallback).
// The fallback replaces null only.
func Default() functions.Descriptor {
	return leaf("default", "<x-x:x>", "The value, or the fallback when it is null", `default(null, 0) -> 0`,
		func(args ...any) (any, error) {
			if args[0] == nil {
				return args[1], nil
			}
			return args[0], nil
		})
}

// Coalesce returns the descriptor for coalesce(value...).
func Coalesce() functions.Descriptor {
	return leaf("coalesce", "<x+:x>", "First non-null argument, or null", `coalesce(null, "", "x") -> ""`,
		func(args ...any) (any, error) {
			for _, a := range args {
				if a != nil {
					return a, nil
				}
			}
			return nil, nil
		})
}

// JSONEncode returns the descriptor for json_encode(value).
func JSONEncode() functions.Descriptor {
	return leaf("json_encode", "<x:s>", "Compact JSON text of the value", `json_encode({"a": [1]}) -> "{\"a\":[1]}"`,
		func(args ...any) (any, error) {
			b, err := json.Marshal(args[0])
			if err != nil {
				return nil, err
			}
			return string(b), nil
		})
}

// JSONDecode returns the descriptor for json_decode(text).
// Invalid JSON yields null.
func JSONDecode() functions.Descriptor {
	return leaf("json_decode", "<s:x>", "Parse JSON text, null when invalid", `json_decode("[1, 2]") -> [1, 2]`,
		func(args ...any) (any, error) {
			var out any
			if err := json.Unmarshal([]byte(args[0].(string)), &out); err != nil {
				return nil, nil
			}
			return types.Normalize(out), nil
		})
}

// plainJSON converts ordered objects to the map form gojsonpointer walks.
func plainJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONPointer returns the descriptor for json_pointer(document, pointer).
// A pointer that does not resolve yields null.
func JSONPointer() functions.Descriptor {
	return leaf("json_pointer", "<x-s:x>", "Value at an RFC 6901 JSON Pointer, null when absent",
		`json_pointer({"a": [10, 20]}, "/a/1") -> 20`,
		func(args ...any) (any, error) {
			ptr, err := gojsonpointer.NewJsonPointer(args[1].(string))
			if err != nil {
				return nil, fmt.Errorf("invalid json pointer %q: %w", args[1], err)
			}
			doc, err := plainJSON(args[0])
			if err != nil {
				return nil, err
			}
			v, _, err := ptr.Get(doc)
			if err != nil {
				return nil, nil
			}
			return types.Normalize(v), nil
		})
}

// Pretty returns the descriptor for pretty(value [, indent]).
func Pretty() functions.Descriptor {
	return leaf("pretty", "<x-n?:s>", "Indented JSON text, two spaces by default", `pretty({"a": 1}) -> "{\n  \"a\": 1\n}"`,
		func(args ...any) (any, error) {
			indent := 2
			if len(args) > 1 && args[1] != nil {
				indent = int(args[1].(float64))
			}
			if indent < 0 || indent > 16 {
				return nil, fmt.Errorf("indent must be between 0 and 16, got %d", indent)
			}
			b, err := json.MarshalIndent(args[0], "", strings.Repeat(" ", indent))
			if err != nil {
				return nil, err
			}
			return string(b), nil
		})
}

// GetEnv returns the descriptor for get_env(name [, fallback]).
// Tagged FeatureEnv, so sandboxes can find and disable it with
// Registry.FunctionsWithFeature.
func GetEnv() functions.Descriptor {
	d := leaf("get_env", "<s-x?:x>", "Environment variable, or the fallback (null) when unset",
		`get_env("HOME") -> "/root"`,
		func(args ...any) (any, error) {
			if v, ok := os.LookupEnv(args[0].(string)); ok {
				return v, nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return nil, nil
		})
	d.Features = []string{FeatureEnv}
	return d
}
