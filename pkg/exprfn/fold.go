package exprfn

import (
	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
)

// ReduceExpr returns the descriptor for reduce_expr(expr, array, initial),
// alias fold. The expression sees accumulator, current and index.
func ReduceExpr() functions.Descriptor {
	return functions.Descriptor{
		Name:        "reduce_expr",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a-x:x>",
		Description: "Fold the array into one value; the expression sees accumulator, current and index",
		Example:     `reduce_expr('accumulator + current', [1, 2, 3], 0) -> 6`,
		Aliases:     []string{"fold"},
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			acc := args[1]
			for i, v := range args[0].([]any) {
				r, err := ev.Evaluate(expr, evaluator.BindStep(acc, v, i))
				if err != nil {
					return nil, err
				}
				acc = r
			}
			return acc, nil
		},
	}
}

// ScanExpr returns the descriptor for scan_expr(expr, array, initial).
func ScanExpr() functions.Descriptor {
	return functions.Descriptor{
		Name:        "scan_expr",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a-x:a>",
		Description: "Like reduce_expr but returns every intermediate accumulator",
		Example:     `scan_expr('accumulator + current', [1, 2, 3], 0) -> [1, 3, 6]`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			acc := args[1]
			out := make([]any, 0, len(arr))
			for i, v := range arr {
				r, err := ev.Evaluate(expr, evaluator.BindStep(acc, v, i))
				if err != nil {
					return nil, err
				}
				acc = r
				out = append(out, acc)
			}
			return out, nil
		},
	}
}
