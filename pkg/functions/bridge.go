package functions

import (
	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/types"
)

// NativeDefs adapts the descriptor into evaluator function definitions, one
// for the name and one per alias. Standard descriptors yield nothing.
func (d Descriptor) NativeDefs() ([]*evaluator.FunctionDef, error) {
	if d.Standard() {
		return nil, nil
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	sig, _ := evaluator.ParseSignature(d.Signature)
	lo, hi := sig.Arity()

	names := d.Names()
	defs := make([]*evaluator.FunctionDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, &evaluator.FunctionDef{
			Name:    name,
			MinArgs: lo,
			MaxArgs: hi,
			Impl:    d.bridge(name, sig),
		})
	}
	return defs, nil
}

// bridge wraps the implementation in the native call contract. The host
// has already checked the argument count; the bridge checks argument types,
// routes the expression argument through the evaluator's cache and
// translates errors.
func (d Descriptor) bridge(name string, sig *evaluator.Signature) evaluator.FunctionImpl {
	return func(ev *evaluator.Evaluator, args []any) (any, error) {
		for i, arg := range args {
			p, ok := sig.ParamAt(i)
			if !ok {
				continue
			}
			if err := p.ValidateArgument(arg); err != nil {
				te, _ := types.AsError(err)
				return nil, te.WithFunction(name).WithPosition(i + 1)
			}
		}

		if d.Expr != nil {
			return d.callExpr(name, ev, args)
		}
		result, err := d.Leaf(args...)
		if err != nil {
			return nil, translate(name, err)
		}
		return result, nil
	}
}

func (d Descriptor) callExpr(name string, ev *evaluator.Evaluator, args []any) (any, error) {
	var expr *evaluator.Expression
	rest := args
	if d.ExprArg != NoExprArg {
		src := args[d.ExprArg].(string)
		var err error
		expr, err = ev.CompileCached(src)
		if err != nil {
			return nil, translate(name, err)
		}
		rest = make([]any, 0, len(args)-1)
		rest = append(rest, args[:d.ExprArg]...)
		rest = append(rest, args[d.ExprArg+1:]...)
	}

	inner, err := ev.Descend()
	if err != nil {
		return nil, translate(name, err)
	}

	result, err := d.Expr(inner, expr, rest)
	if err != nil {
		return nil, translate(name, err)
	}
	return result, nil
}

// translate maps an implementation error onto the evaluator's error
// channel. Typed errors keep their code and gain the function name when
// they have none; anything else becomes an evaluation error.
func translate(name string, err error) error {
	if te, ok := types.AsError(err); ok {
		if te.Function == "" {
			te.Function = name
		}
		return te
	}
	return types.NewError(types.ErrCodeEvaluation, err.Error()).WithFunction(name).WithCause(err)
}
