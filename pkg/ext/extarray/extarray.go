// Package extarray provides array functions: slicing, flattening, chunking,
// set operations and simple statistics over elements.
package extarray

import (
	"fmt"
	"math"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// maxRangeItems bounds the output of range.
const maxRangeItems = 100000

// All returns all array function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		First(),
		Last(),
		Take(),
		Drop(),
		Slice(),
		Initial(),
		Tail(),
		Nth(),
		Flatten(),
		Chunk(),
		Compact(),
		Unique(),
		Includes(),
		Union(),
		Intersection(),
		Difference(),
		SymmetricDifference(),
		Range(),
		Zip(),
		ZipLongest(),
		Window(),
		Rotate(),
		Transpose(),
		Frequencies(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryArray,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

// First returns the descriptor for first(array).
func First() functions.Descriptor {
	return leaf("first", "<a:x>", "First element, or null for an empty array", "first([1, 2, 3]) -> 1",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return nil, nil
			}
			return arr[0], nil
		})
}

// Last returns the descriptor for last(array).
func Last() functions.Descriptor {
	return leaf("last", "<a:x>", "Last element, or null for an empty array", "last([1, 2, 3]) -> 3",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return nil, nil
			}
			return arr[len(arr)-1], nil
		})
}

// Take returns the descriptor for take(array, n).
func Take() functions.Descriptor {
	return leaf("take", "<a-n:a>", "First n elements", "take([1, 2, 3], 2) -> [1, 2]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			n := clampIndex(int(args[1].(float64)), len(arr))
			return copyOf(arr[:n]), nil
		})
}

// Drop returns the descriptor for drop(array, n).
func Drop() functions.Descriptor {
	return leaf("drop", "<a-n:a>", "All but the first n elements", "drop([1, 2, 3], 2) -> [3]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			n := clampIndex(int(args[1].(float64)), len(arr))
			return copyOf(arr[n:]), nil
		})
}

// Slice returns the descriptor for slice(array, start [, end]).
// start/end are 0-based; negative values count from the end.
func Slice() functions.Descriptor {
	return leaf("slice", "<a-n-n?:a>", "Elements from start up to (not including) end; negatives count from the end",
		"slice([1, 2, 3, 4], 1, -1) -> [2, 3]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			n := len(arr)
			start := normaliseIndex(int(args[1].(float64)), n)
			end := n
			if len(args) > 2 && args[2] != nil {
				end = normaliseIndex(int(args[2].(float64)), n)
			}
			if start >= end {
				return []any{}, nil
			}
			return copyOf(arr[start:end]), nil
		})
}

// Initial returns the descriptor for initial(array).
func Initial() functions.Descriptor {
	return leaf("initial", "<a:a>", "All but the last element", "initial([1, 2, 3]) -> [1, 2]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return []any{}, nil
			}
			return copyOf(arr[:len(arr)-1]), nil
		})
}

// Tail returns the descriptor for tail(array).
func Tail() functions.Descriptor {
	return leaf("tail", "<a:a>", "All but the first element", "tail([1, 2, 3]) -> [2, 3]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return []any{}, nil
			}
			return copyOf(arr[1:]), nil
		})
}

// Nth returns the descriptor for nth(array, i). Negative i counts from the end.
func Nth() functions.Descriptor {
	return leaf("nth", "<a-n:x>", "Element at index, negative counts from the end; null when out of range",
		"nth([1, 2, 3], -1) -> 3",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			i := int(args[1].(float64))
			if i < 0 {
				i += len(arr)
			}
			if i < 0 || i >= len(arr) {
				return nil, nil
			}
			return arr[i], nil
		})
}

// Flatten returns the descriptor for flatten(array [, depth]).
// Without depth (or depth=-1), flattens completely.
func Flatten() functions.Descriptor {
	return leaf("flatten", "<a-n?:a>", "Flatten nested arrays, completely unless a depth is given",
		"flatten([1, [2, [3]]], 1) -> [1, 2, [3]]",
		func(args ...any) (any, error) {
			depth := -1
			if len(args) > 1 && args[1] != nil {
				depth = int(args[1].(float64))
			}
			return flattenArray(args[0].([]any), depth), nil
		})
}

func flattenArray(arr []any, depth int) []any {
	result := make([]any, 0, len(arr))
	for _, item := range arr {
		if inner, ok := item.([]any); ok && depth != 0 {
			next := depth - 1
			if depth < 0 {
				next = depth
			}
			result = append(result, flattenArray(inner, next)...)
		} else {
			result = append(result, item)
		}
	}
	return result
}

// Chunk returns the descriptor for chunk(array, size).
func Chunk() functions.Descriptor {
	return leaf("chunk", "<a-n:a>", "Split into chunks of the given size", "chunk([1, 2, 3], 2) -> [[1, 2], [3]]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			size := int(args[1].(float64))
			if size <= 0 {
				return nil, fmt.Errorf("size must be a positive integer")
			}
			chunks := make([]any, 0, (len(arr)+size-1)/size)
			for i := 0; i < len(arr); i += size {
				chunks = append(chunks, copyOf(arr[i:min(i+size, len(arr))]))
			}
			return chunks, nil
		})
}

// Compact returns the descriptor for compact(array).
func Compact() functions.Descriptor {
	return leaf("compact", "<a:a>", "Remove null and false elements", "compact([0, null, false, 'a']) -> [0, \"a\"]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			out := make([]any, 0, len(arr))
			for _, v := range arr {
				if v == nil || v == false {
					continue
				}
				out = append(out, v)
			}
			return out, nil
		})
}

// Unique returns the descriptor for unique(array).
func Unique() functions.Descriptor {
	return leaf("unique", "<a:a>", "Remove duplicates, keeping first occurrences", "unique([1, 2, 1]) -> [1, 2]",
		func(args ...any) (any, error) {
			return dedupe(args[0].([]any), nil, true), nil
		})
}

// Includes returns the descriptor for includes(array, value).
func Includes() functions.Descriptor {
	return leaf("includes", "<a-x:b>", "Whether the array contains the value", "includes([1, 2], 2) -> true",
		func(args ...any) (any, error) {
			want := types.IdentityKey(args[1])
			for _, v := range args[0].([]any) {
				if types.IdentityKey(v) == want {
					return true, nil
				}
			}
			return false, nil
		})
}

// Union returns the descriptor for union(arr1, arr2).
func Union() functions.Descriptor {
	return leaf("union", "<a-a:a>", "Distinct elements of both arrays", "union([1, 2], [2, 3]) -> [1, 2, 3]",
		func(args ...any) (any, error) {
			a1, a2 := args[0].([]any), args[1].([]any)
			return dedupe(append(copyOf(a1), a2...), nil, true), nil
		})
}

// Intersection returns the descriptor for intersection(arr1, arr2).
func Intersection() functions.Descriptor {
	return leaf("intersection", "<a-a:a>", "Distinct elements present in both arrays", "intersection([1, 2], [2, 3]) -> [2]",
		func(args ...any) (any, error) {
			return dedupe(args[0].([]any), keySet(args[1].([]any)), true), nil
		})
}

// Difference returns the descriptor for difference(arr1, arr2).
// Elements in arr1 but not in arr2.
func Difference() functions.Descriptor {
	return leaf("difference", "<a-a:a>", "Distinct elements of the first array missing from the second",
		"difference([1, 2, 3], [2]) -> [1, 3]",
		func(args ...any) (any, error) {
			return dedupe(args[0].([]any), keySet(args[1].([]any)), false), nil
		})
}

// SymmetricDifference returns the descriptor for symmetric_difference(arr1, arr2).
// Elements in either arr1 or arr2 but not both.
func SymmetricDifference() functions.Descriptor {
	return leaf("symmetric_difference", "<a-a:a>", "Distinct elements present in exactly one of the arrays",
		"symmetric_difference([1, 2], [2, 3]) -> [1, 3]",
		func(args ...any) (any, error) {
			a1, a2 := args[0].([]any), args[1].([]any)
			left := dedupe(a1, keySet(a2), false)
			right := dedupe(a2, keySet(a1), false)
			return append(left, right...), nil
		})
}

// dedupe keeps first occurrences. With a filter set, an element is kept
// only when its membership in filter equals keepMembers.
func dedupe(arr []any, filter map[string]bool, keepMembers bool) []any {
	seen := make(map[string]bool, len(arr))
	out := make([]any, 0, len(arr))
	for _, item := range arr {
		key := types.IdentityKey(item)
		if seen[key] {
			continue
		}
		if filter != nil && filter[key] != keepMembers {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func keySet(arr []any) map[string]bool {
	set := make(map[string]bool, len(arr))
	for _, item := range arr {
		set[types.IdentityKey(item)] = true
	}
	return set
}

// Range returns the descriptor for range(start, end [, step]).
// Supports float steps. end is exclusive.
func Range() functions.Descriptor {
	return leaf("range", "<n-n-n?:a<n>>", "Numbers from start up to (not including) end", "range(0, 10, 3) -> [0, 3, 6, 9]",
		func(args ...any) (any, error) {
			start, end := args[0].(float64), args[1].(float64)
			step := 1.0
			if len(args) > 2 && args[2] != nil {
				step = args[2].(float64)
				if step == 0 {
					return nil, fmt.Errorf("step must not be zero")
				}
			}
			result := []any{}
			for i := 0; ; i++ {
				v := start + float64(i)*step
				if (step > 0 && v >= end) || (step < 0 && v <= end) {
					break
				}
				if i >= maxRangeItems {
					return nil, fmt.Errorf("would produce more than %d items", maxRangeItems)
				}
				// round away accumulated floating-point error
				result = append(result, math.Round(v*1e10)/1e10)
			}
			return result, nil
		})
}

// Zip returns the descriptor for zip(arr1, arr2).
func Zip() functions.Descriptor {
	return leaf("zip", "<a-a:a>", "Pair elements up to the shorter length", "zip([1, 2], ['a', 'b', 'c']) -> [[1, \"a\"], [2, \"b\"]]",
		func(args ...any) (any, error) {
			a1, a2 := args[0].([]any), args[1].([]any)
			n := min(len(a1), len(a2))
			out := make([]any, n)
			for i := 0; i < n; i++ {
				out[i] = []any{a1[i], a2[i]}
			}
			return out, nil
		})
}

// ZipLongest returns the descriptor for zip_longest(arr1, arr2 [, fill]).
// The shorter array is padded with fill (default null).
func ZipLongest() functions.Descriptor {
	return leaf("zip_longest", "<a-a-x?:a>", "Pair elements up to the longer length, padding with fill",
		"zip_longest([1], ['a', 'b'], 0) -> [[1, \"a\"], [0, \"b\"]]",
		func(args ...any) (any, error) {
			a1, a2 := args[0].([]any), args[1].([]any)
			var fill any
			if len(args) > 2 {
				fill = args[2]
			}
			n := max(len(a1), len(a2))
			out := make([]any, n)
			for i := 0; i < n; i++ {
				v1, v2 := fill, fill
				if i < len(a1) {
					v1 = a1[i]
				}
				if i < len(a2) {
					v2 = a2[i]
				}
				out[i] = []any{v1, v2}
			}
			return out, nil
		})
}

// Window returns the descriptor for window(array, size [, step]).
func Window() functions.Descriptor {
	return leaf("window", "<a-n-n?:a>", "Sliding windows of the given size, advancing by step (default 1)",
		"window([1, 2, 3, 4], 2) -> [[1, 2], [2, 3], [3, 4]]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			size, step := int(args[1].(float64)), 1
			if len(args) > 2 && args[2] != nil {
				step = int(args[2].(float64))
			}
			if size <= 0 || step <= 0 {
				return nil, fmt.Errorf("size and step must be positive")
			}
			out := []any{}
			for i := 0; i+size <= len(arr); i += step {
				out = append(out, copyOf(arr[i:i+size]))
			}
			return out, nil
		})
}

// Rotate returns the descriptor for rotate(array, n). Positive n rotates left.
func Rotate() functions.Descriptor {
	return leaf("rotate", "<a-n:a>", "Rotate left by n positions (right when negative)", "rotate([1, 2, 3], 1) -> [2, 3, 1]",
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return []any{}, nil
			}
			k := int(args[1].(float64)) % len(arr)
			if k < 0 {
				k += len(arr)
			}
			return append(copyOf(arr[k:]), arr[:k]...), nil
		})
}

// Transpose returns the descriptor for transpose(matrix).
func Transpose() functions.Descriptor {
	return leaf("transpose", "<a<a>:a>", "Swap rows and columns, truncated to the shortest row",
		"transpose([[1, 2], [3, 4]]) -> [[1, 3], [2, 4]]",
		func(args ...any) (any, error) {
			rows := args[0].([]any)
			if len(rows) == 0 {
				return []any{}, nil
			}
			width := math.MaxInt
			for _, r := range rows {
				width = min(width, len(r.([]any)))
			}
			out := make([]any, width)
			for c := 0; c < width; c++ {
				col := make([]any, len(rows))
				for r, row := range rows {
					col[r] = row.([]any)[c]
				}
				out[c] = col
			}
			return out, nil
		})
}

// Frequencies returns the descriptor for frequencies(array).
func Frequencies() functions.Descriptor {
	return leaf("frequencies", "<a:o>", "Count occurrences of each stringified element, first-seen order",
		`frequencies(['a', 'b', 'a']) -> {"a": 2, "b": 1}`,
		func(args ...any) (any, error) {
			out := types.NewOrderedObject()
			for _, v := range args[0].([]any) {
				key := types.KeyString(v)
				n, _ := out.Get(key)
				f, _ := n.(float64)
				out.Set(key, f+1)
			}
			return out, nil
		})
}

// ── helpers ────────────────────────────────────────────────────────────────

func copyOf(arr []any) []any {
	return append(make([]any, 0, len(arr)), arr...)
}

func clampIndex(n, length int) int {
	return max(0, min(n, length))
}

// normaliseIndex resolves a possibly negative index against length n.
func normaliseIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return clampIndex(i, n)
}
