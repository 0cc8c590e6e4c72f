package exprfn

import (
	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
)

func predicate(name, sig, desc, example string, fn functions.ExprFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryExpression,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Policy:      functions.PolicyNullOnError,
		Expr:        fn,
	}
}

// FilterExpr returns the descriptor for filter_expr(expr, array).
func FilterExpr() functions.Descriptor {
	return predicate("filter_expr", "<e-a:a>",
		"Keep elements for which the expression is truthy",
		`filter_expr('age >= 18', [{"age": 25}, {"age": 17}]) -> [{"age": 25}]`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			return selectWhere(ev, expr, "filter_expr", args[0].([]any), true)
		})
}

// Reject returns the descriptor for reject(expr, array).
func Reject() functions.Descriptor {
	return predicate("reject", "<e-a:a>",
		"Keep elements for which the expression is falsy",
		`reject('this > 2', [1, 2, 3, 4]) -> [1, 2]`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			return selectWhere(ev, expr, "reject", args[0].([]any), false)
		})
}

func selectWhere(ev *evaluator.Evaluator, expr *evaluator.Expression, fn string, arr []any, want bool) (any, error) {
	out := make([]any, 0, len(arr))
	for _, v := range arr {
		ok, err := test(ev, expr, fn, v)
		if err != nil {
			return nil, err
		}
		if ok == want {
			out = append(out, v)
		}
	}
	return out, nil
}

// AnyExpr returns the descriptor for any_expr(expr, array), alias some.
func AnyExpr() functions.Descriptor {
	d := predicate("any_expr", "<e-a:b>",
		"True if the expression is truthy for at least one element",
		`any_expr('this > 2', [1, 2, 3]) -> true`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			for _, v := range args[0].([]any) {
				ok, err := test(ev, expr, "any_expr", v)
				if err != nil {
					return nil, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		})
	d.Aliases = []string{"some"}
	return d
}

// AllExpr returns the descriptor for all_expr(expr, array), alias every.
func AllExpr() functions.Descriptor {
	d := predicate("all_expr", "<e-a:b>",
		"True if the expression is truthy for every element; true for an empty array",
		`all_expr('this > 0', [1, 2, 3]) -> true`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			for _, v := range args[0].([]any) {
				ok, err := test(ev, expr, "all_expr", v)
				if err != nil {
					return nil, err
				}
				if !ok {
					return false, nil
				}
			}
			return true, nil
		})
	d.Aliases = []string{"every"}
	return d
}

// FindExpr returns the descriptor for find_expr(expr, array).
func FindExpr() functions.Descriptor {
	return predicate("find_expr", "<e-a:x>",
		"First element for which the expression is truthy, or null",
		`find_expr('name == "b"', [{"name": "a"}, {"name": "b"}]) -> {"name": "b"}`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			i, err := findIndex(ev, expr, "find_expr", args[0].([]any))
			if err != nil || i < 0 {
				return nil, err
			}
			return args[0].([]any)[i], nil
		})
}

// FindIndexExpr returns the descriptor for find_index_expr(expr, array).
func FindIndexExpr() functions.Descriptor {
	return predicate("find_index_expr", "<e-a:n>",
		"Index of the first element for which the expression is truthy, or -1",
		`find_index_expr('this > 1', [1, 2, 3]) -> 1`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			i, err := findIndex(ev, expr, "find_index_expr", args[0].([]any))
			if err != nil {
				return nil, err
			}
			return float64(i), nil
		})
}

func findIndex(ev *evaluator.Evaluator, expr *evaluator.Expression, fn string, arr []any) (int, error) {
	for i, v := range arr {
		ok, err := test(ev, expr, fn, v)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// CountExpr returns the descriptor for count_expr(expr, array).
func CountExpr() functions.Descriptor {
	return predicate("count_expr", "<e-a:n>",
		"Number of elements for which the expression is truthy",
		`count_expr('active', [{"active": true}, {"active": false}]) -> 1`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			n := 0
			for _, v := range args[0].([]any) {
				ok, err := test(ev, expr, "count_expr", v)
				if err != nil {
					return nil, err
				}
				if ok {
					n++
				}
			}
			return float64(n), nil
		})
}

// PartitionExpr returns the descriptor for partition_expr(expr, array).
func PartitionExpr() functions.Descriptor {
	return predicate("partition_expr", "<e-a:a>",
		"Split into [truthy, falsy] preserving order",
		`partition_expr('this > 2', [1, 2, 3, 4]) -> [[3, 4], [1, 2]]`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			pass, fail := []any{}, []any{}
			for _, v := range args[0].([]any) {
				ok, err := test(ev, expr, "partition_expr", v)
				if err != nil {
					return nil, err
				}
				if ok {
					pass = append(pass, v)
				} else {
					fail = append(fail, v)
				}
			}
			return []any{pass, fail}, nil
		})
}

// TakeWhile returns the descriptor for take_while(expr, array).
func TakeWhile() functions.Descriptor {
	return predicate("take_while", "<e-a:a>",
		"Leading elements while the expression is truthy",
		`take_while('this < 4', [1, 2, 3, 5, 1]) -> [1, 2, 3]`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			n, err := prefix(ev, expr, "take_while", arr)
			if err != nil {
				return nil, err
			}
			return append([]any{}, arr[:n]...), nil
		})
}

// DropWhile returns the descriptor for drop_while(expr, array).
func DropWhile() functions.Descriptor {
	return predicate("drop_while", "<e-a:a>",
		"Elements after the leading run for which the expression is truthy",
		`drop_while('this < 4', [1, 2, 3, 5, 1]) -> [5, 1]`,
		func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			n, err := prefix(ev, expr, "drop_while", arr)
			if err != nil {
				return nil, err
			}
			return append([]any{}, arr[n:]...), nil
		})
}

// prefix returns the length of the leading truthy run.
func prefix(ev *evaluator.Evaluator, expr *evaluator.Expression, fn string, arr []any) (int, error) {
	for i, v := range arr {
		ok, err := test(ev, expr, fn, v)
		if err != nil {
			return 0, err
		}
		if !ok {
			return i, nil
		}
	}
	return len(arr), nil
}
