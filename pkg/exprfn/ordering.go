package exprfn

import (
	"slices"
	"strings"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// SortByExpr returns the descriptor for sort_by_expr(expr, array).
func SortByExpr() functions.Descriptor {
	return functions.Descriptor{
		Name:        "sort_by_expr",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a:a>",
		Description: "Stable sort by the expression's value; keys must share a scalar type",
		Example:     `sort_by_expr('age', [{"age": 30}, {"age": 25}]) -> [{"age": 25}, {"age": 30}]`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			ks, err := keys(ev, expr, arr)
			if err != nil {
				return nil, err
			}
			if err := checkComparable(ks); err != nil {
				return nil, err
			}
			idx := make([]int, len(arr))
			for i := range idx {
				idx[i] = i
			}
			slices.SortStableFunc(idx, func(a, b int) int {
				c, _ := types.Compare(ks[a], ks[b])
				return c
			})
			out := make([]any, len(arr))
			for i, j := range idx {
				out[i] = arr[j]
			}
			return out, nil
		},
	}
}

// GroupByExpr returns the descriptor for group_by_expr(expr, array).
func GroupByExpr() functions.Descriptor {
	return functions.Descriptor{
		Name:        "group_by_expr",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a:o>",
		Description: "Group elements by the stringified expression value, keys in first-seen order",
		Example:     `group_by_expr('type', [{"type": "a"}, {"type": "b"}, {"type": "a"}]) -> {"a": [...], "b": [...]}`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			ks, err := keys(ev, expr, arr)
			if err != nil {
				return nil, err
			}
			groups := types.NewOrderedObject()
			for i, v := range arr {
				key := types.KeyString(ks[i])
				g, _ := groups.Get(key)
				list, _ := g.([]any)
				groups.Set(key, append(list, v))
			}
			return groups, nil
		},
	}
}

// CountBy returns the descriptor for count_by(expr, array).
func CountBy() functions.Descriptor {
	return functions.Descriptor{
		Name:        "count_by",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a:o>",
		Description: "Count elements per stringified expression value, keys in first-seen order",
		Example:     `count_by('type', [{"type": "a"}, {"type": "b"}, {"type": "a"}]) -> {"a": 2, "b": 1}`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			ks, err := keys(ev, expr, args[0].([]any))
			if err != nil {
				return nil, err
			}
			counts := types.NewOrderedObject()
			for _, k := range ks {
				key := types.KeyString(k)
				n, _ := counts.Get(key)
				f, _ := n.(float64)
				counts.Set(key, f+1)
			}
			return counts, nil
		},
	}
}

// MinByExpr returns the descriptor for min_by_expr(expr, array).
func MinByExpr() functions.Descriptor {
	return extremum("min_by_expr", "Element with the smallest expression value, or null",
		`min_by_expr('price', [{"price": 3}, {"price": 1}]) -> {"price": 1}`, -1)
}

// MaxByExpr returns the descriptor for max_by_expr(expr, array).
func MaxByExpr() functions.Descriptor {
	return extremum("max_by_expr", "Element with the largest expression value, or null",
		`max_by_expr('price', [{"price": 3}, {"price": 1}]) -> {"price": 3}`, 1)
}

func extremum(name, desc, example string, sign int) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryExpression,
		Signature:   "<e-a:x>",
		Description: desc,
		Example:     example,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return nil, nil
			}
			ks, err := keys(ev, expr, arr)
			if err != nil {
				return nil, err
			}
			if err := checkComparable(ks); err != nil {
				return nil, err
			}
			best := 0
			for i := 1; i < len(arr); i++ {
				c, _ := types.Compare(ks[i], ks[best])
				if c*sign > 0 {
					best = i
				}
			}
			return arr[best], nil
		},
	}
}

// UniqueByExpr returns the descriptor for unique_by_expr(expr, array).
func UniqueByExpr() functions.Descriptor {
	return functions.Descriptor{
		Name:        "unique_by_expr",
		Category:    functions.CategoryExpression,
		Signature:   "<e-a:a>",
		Description: "First element for each distinct expression value",
		Example:     `unique_by_expr('id', [{"id": 1}, {"id": 1}, {"id": 2}]) -> [{"id": 1}, {"id": 2}]`,
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			arr := args[0].([]any)
			ks, err := keys(ev, expr, arr)
			if err != nil {
				return nil, err
			}
			seen := make(map[string]struct{}, len(arr))
			out := make([]any, 0, len(arr))
			for i, v := range arr {
				id := types.IdentityKey(ks[i])
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, v)
			}
			return out, nil
		},
	}
}

type orderSpec struct {
	field     string
	ascending bool
}

// OrderBy returns the descriptor for order_by(array, criteria).
func OrderBy() functions.Descriptor {
	return functions.Descriptor{
		Name:        "order_by",
		Category:    functions.CategoryExpression,
		Signature:   "<a-a:a>",
		Description: "Multi-key sort; criteria is a list of [field, direction] pairs",
		Example:     `order_by(this, [["age", "desc"], ["name", "asc"]])`,
		Leaf: func(args ...any) (any, error) {
			arr := args[0].([]any)
			specs, err := parseOrderSpecs(args[1].([]any))
			if err != nil {
				return nil, err
			}

			rows := make([][]any, len(arr))
			for i, v := range arr {
				row := make([]any, len(specs))
				for j, s := range specs {
					row[j], _ = types.Field(v, s.field)
				}
				rows[i] = row
			}
			for j, s := range specs {
				col := make([]any, len(rows))
				for i := range rows {
					col[i] = rows[i][j]
				}
				if err := checkComparable(col); err != nil {
					te, _ := types.AsError(err)
					te.Message = "order_by field " + s.field + ": " + te.Message
					return nil, te
				}
			}

			idx := make([]int, len(arr))
			for i := range idx {
				idx[i] = i
			}
			slices.SortStableFunc(idx, func(a, b int) int {
				for j, s := range specs {
					c, _ := types.Compare(rows[a][j], rows[b][j])
					if c != 0 {
						if !s.ascending {
							return -c
						}
						return c
					}
				}
				return 0
			})
			out := make([]any, len(arr))
			for i, j := range idx {
				out[i] = arr[j]
			}
			return out, nil
		},
	}
}

func parseOrderSpecs(criteria []any) ([]orderSpec, error) {
	specs := make([]orderSpec, 0, len(criteria))
	for i, c := range criteria {
		pair, ok := c.([]any)
		if !ok || len(pair) < 2 {
			return nil, types.Errorf(types.ErrCodeEvaluation, "criterion %d must be [field, direction]", i+1)
		}
		field, ok := pair[0].(string)
		if !ok {
			return nil, types.Errorf(types.ErrCodeTypeMismatch, "criterion %d: field name must be a string", i+1).
				WithTypes(types.TypeString, types.TypeOf(pair[0]))
		}
		dir, _ := pair[1].(string)
		var asc bool
		switch strings.ToLower(dir) {
		case "asc", "ascending":
			asc = true
		case "desc", "descending":
		default:
			return nil, types.Errorf(types.ErrCodeEvaluation, "criterion %d: direction must be 'asc' or 'desc'", i+1)
		}
		specs = append(specs, orderSpec{field: field, ascending: asc})
	}
	return specs, nil
}
