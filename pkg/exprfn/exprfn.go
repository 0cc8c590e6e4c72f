// Package exprfn provides the expression functions: higher-order functions
// whose first argument is query source text evaluated once per element.
//
// The calling convention is fn(expression, data, ...):
//
//	filter_expr('age >= 18', this)
//	group_by_expr('type', this)
//	reduce_expr('accumulator + current', this, 0.0)
//
// Inside the expression, `this` is the current element and, when the element
// is an object, its fields resolve as bare identifiers. Reductions bind
// `accumulator`, `current` and `index` instead.
//
// Each function has an error policy (see [functions.Policy]). Fail-fast
// functions abort on the first element whose evaluation fails. Null-on-error
// functions treat that element as falsy and log it at debug level. Resource
// ceilings (nesting depth) always abort.
package exprfn

import (
	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// All returns every expression function descriptor.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		MapExpr(),
		FilterExpr(),
		Reject(),
		AnyExpr(),
		AllExpr(),
		FindExpr(),
		FindIndexExpr(),
		CountExpr(),
		SortByExpr(),
		GroupByExpr(),
		CountBy(),
		PartitionExpr(),
		MinByExpr(),
		MaxByExpr(),
		UniqueByExpr(),
		FlatMapExpr(),
		MapKeys(),
		MapValues(),
		OrderBy(),
		ReduceExpr(),
		ScanExpr(),
		TakeWhile(),
		DropWhile(),
		ZipWith(),
		Walk(),
		Partial(),
		Apply(),
	}
}

// evalElem evaluates expr against a single element.
func evalElem(ev *evaluator.Evaluator, expr *evaluator.Expression, v any) (any, error) {
	return ev.Evaluate(expr, evaluator.Bind(v))
}

// test evaluates a predicate under the null-on-error policy.
func test(ev *evaluator.Evaluator, expr *evaluator.Expression, fn string, v any) (bool, error) {
	r, err := evalElem(ev, expr, v)
	if err != nil {
		if fatal(err) {
			return false, err
		}
		ev.Logger().Debug("predicate failed, treating element as false",
			"function", fn, "expression", expr.Source(), "error", err)
		return false, nil
	}
	return types.IsTruthy(r), nil
}

// fatal reports whether err must abort the call regardless of policy.
func fatal(err error) bool {
	te, ok := types.AsError(err)
	return ok && te.Code == types.ErrCodeRecursionLimit
}

// keys evaluates expr for every element, fail-fast.
func keys(ev *evaluator.Evaluator, expr *evaluator.Expression, arr []any) ([]any, error) {
	out := make([]any, len(arr))
	for i, v := range arr {
		k, err := evalElem(ev, expr, v)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

// checkComparable verifies that every non-null key shares one scalar type.
func checkComparable(keys []any) error {
	var first any
	for _, k := range keys {
		if k == nil {
			continue
		}
		switch types.TypeOf(k) {
		case types.TypeNumber, types.TypeString, types.TypeBoolean:
		default:
			return types.Errorf(types.ErrCodeEvaluation, "cannot order by %s keys", types.TypeOf(k)).
				WithTypes("number, string or boolean", types.TypeOf(k))
		}
		if first == nil {
			first = k
			continue
		}
		if _, err := types.Compare(first, k); err != nil {
			return err
		}
	}
	return nil
}
