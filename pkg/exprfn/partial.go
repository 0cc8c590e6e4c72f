package exprfn

import (
	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// Keys of a partial application object.
const (
	PartialMarker = "__partial__"
	PartialFn     = "fn"
	PartialArgs   = "args"
)

// Partial returns the descriptor for partial(name, args...).
func Partial() functions.Descriptor {
	return functions.Descriptor{
		Name:        "partial",
		Category:    functions.CategoryExpression,
		Signature:   "<s-x?+:o>",
		Description: "Capture a function name and leading arguments for a later apply",
		Example:     `partial("contains_any", ["a"]) -> {"__partial__": true, "fn": "contains_any", "args": [["a"]]}`,
		Leaf: func(args ...any) (any, error) {
			prefilled := append([]any{}, args[1:]...)
			obj := types.NewOrderedObject()
			obj.Set(PartialMarker, true)
			obj.Set(PartialFn, args[0])
			obj.Set(PartialArgs, prefilled)
			return obj, nil
		},
	}
}

// Apply returns the descriptor for apply(fnOrPartial, args...).
func Apply() functions.Descriptor {
	return functions.Descriptor{
		Name:        "apply",
		Category:    functions.CategoryExpression,
		Signature:   "<(so)-x?+:x>",
		Description: "Call an installed function by name, or complete a partial application",
		Example:     `apply("upper", "hi") -> "HI"`,
		ExprArg:     functions.NoExprArg,
		Expr: func(ev *evaluator.Evaluator, _ *evaluator.Expression, args []any) (any, error) {
			name, prefilled, err := target(args[0])
			if err != nil {
				return nil, err
			}
			return ev.Call(name, append(prefilled, args[1:]...)...)
		},
	}
}

func target(v any) (string, []any, error) {
	if name, ok := v.(string); ok {
		return name, nil, nil
	}
	marker, _ := types.Field(v, PartialMarker)
	if marker != true {
		return "", nil, types.NewError(types.ErrCodeTypeMismatch, "first argument must be a function name or a partial object").
			WithPosition(1).WithTypes("string or partial", types.TypeObject)
	}
	fn, _ := types.Field(v, PartialFn)
	name, ok := fn.(string)
	if !ok {
		return "", nil, types.NewError(types.ErrCodeEvaluation, "invalid partial object: missing 'fn' field")
	}
	a, _ := types.Field(v, PartialArgs)
	prefilled, ok := a.([]any)
	if !ok {
		return "", nil, types.NewError(types.ErrCodeEvaluation, "invalid partial object: missing 'args' field")
	}
	return name, append([]any{}, prefilled...), nil
}
