package exprfn

import (
	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// MapExpr returns the descriptor for map_expr(expr, array).
func MapExpr() functions.Descriptor {
	return functions.Descriptor{
		Name:        "map_expr",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a:a>",
		Description: "Apply the expression to every element",
		Example:     `map_expr('name', [{"name": "Alice"}, {"name": "Bob"}]) -> ["Alice", "Bob"]`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			return keys(ev, expr, args[0].([]any))
		},
	}
}

// FlatMapExpr returns the descriptor for flat_map_expr(expr, array).
func FlatMapExpr() functions.Descriptor {
	return functions.Descriptor{
		Name:        "flat_map_expr",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a:a>",
		Description: "Apply the expression to every element and flatten the results one level, skipping nulls",
		Example:     `flat_map_expr('tags', [{"tags": ["a", "b"]}, {"tags": ["c"]}]) -> ["a", "b", "c"]`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			out := make([]any, 0, len(arr))
			for _, v := range arr {
				r, err := evalElem(ev, expr, v)
				if err != nil {
					return nil, err
				}
				switch r := r.(type) {
				case nil:
					// dropped
				case []any:
					out = append(out, r...)
				default:
					out = append(out, r)
				}
			}
			return out, nil
		},
	}
}

// MapKeys returns the descriptor for map_keys(expr, object).
func MapKeys() functions.Descriptor {
	return functions.Descriptor{
		Name:        "map_keys",
		Category:    functions.CategoryExpression,
		Signature:   "<e-o:o>",
		Description: "Rewrite every key with the expression; non-string, non-number results keep the key",
		Example:     `map_keys('upper(this)', {"a": 1}) -> {"A": 1}`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			ks, values, err := types.ObjectEntries(args[0])
			if err != nil {
				return nil, err
			}
			out := types.NewOrderedObject()
			for _, k := range ks {
				r, err := evalElem(ev, expr, k)
				if err != nil {
					return nil, err
				}
				key := k
				switch nk := r.(type) {
				case string:
					key = nk
				case float64:
					key = types.KeyString(nk)
				}
				out.Set(key, values[k])
			}
			return out, nil
		},
	}
}

// MapValues returns the descriptor for map_values(expr, object).
func MapValues() functions.Descriptor {
	return functions.Descriptor{
		Name:        "map_values",
		Category:    functions.CategoryExpression,
		Signature:   "<e-o:o>",
		Description: "Rewrite every value with the expression",
		Example:     `map_values('this * 2.0', {"a": 1, "b": 2}) -> {"a": 2, "b": 4}`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			ks, values, err := types.ObjectEntries(args[0])
			if err != nil {
				return nil, err
			}
			out := types.NewOrderedObject()
			for _, k := range ks {
				r, err := evalElem(ev, expr, values[k])
				if err != nil {
					return nil, err
				}
				out.Set(k, r)
			}
			return out, nil
		},
	}
}

// ZipWith returns the descriptor for zip_with(expr, a, b).
func ZipWith() functions.Descriptor {
	return functions.Descriptor{
		Name:        "zip_with",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a-a:a>",
		Description: "Combine two arrays pairwise; the expression sees [x, y] and the result has the shorter length",
		Example:     `zip_with('this[0] + this[1]', [1, 2], [10, 20, 30]) -> [11, 22]`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			a, b := args[0].([]any), args[1].([]any)
			n := min(len(a), len(b))
			out := make([]any, n)
			for i := 0; i < n; i++ {
				r, err := evalElem(ev, expr, []any{a[i], b[i]})
				if err != nil {
					return nil, err
				}
				out[i] = r
			}
			return out, nil
		},
	}
}

// Walk returns the descriptor for walk(expr, value).
func Walk() functions.Descriptor {
	return functions.Descriptor{
		Name:        "walk",
		Category:    functions.CategoryExpression,
		Signature:   "<e-x:x>",
		Description: "Rewrite every node bottom-up: children first, then the node itself",
		Example:     `walk('type(this) == string ? upper(this) : this', {"a": ["x"]}) -> {"a": ["X"]}`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			return walk(ev, expr, args[0])
		},
	}
}

func walk(ev *evaluator.Evaluator, expr *evaluator.Expression, v any) (any, error) {
	switch node := v.(type) {
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			r, err := walk(ev, expr, child)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		v = out
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			r, err := walk(ev, expr, child)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		v = out
	case *types.OrderedObject:
		out := types.NewOrderedObject()
		for _, k := range node.Keys {
			r, err := walk(ev, expr, node.Values[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, r)
		}
		v = out
	}
	return evalElem(ev, expr, v)
}
