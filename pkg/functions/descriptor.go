package functions

import (
	"fmt"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/types"
)

// NoExprArg marks an expression-category function that receives the
// evaluator handle but takes no expression argument.
const NoExprArg = -1

// Descriptor is the static description of an installable function.
type Descriptor struct {
	// Name is the function name as written in expressions.
	Name     string
	Category Category
	// Signature is the type-code signature used for arity and argument
	// checking, e.g. "<s-n?:s>". Empty accepts anything.
	Signature   string
	Description string
	Example     string
	// SpecRef names the external specification or proposal the function
	// follows, if any.
	SpecRef  string
	Aliases  []string
	Features []string

	// ExprArg is the position of the expression argument. Only used by
	// expression functions.
	ExprArg int
	// Policy is the per-element error policy of expression functions.
	Policy Policy

	Leaf LeafFunc
	Expr ExprFunc
}

// Kind returns the call shape derived from the implementation.
func (d Descriptor) Kind() Kind {
	switch {
	case d.Expr != nil:
		return KindExpression
	case d.Leaf != nil:
		return KindLeaf
	default:
		return KindStandard
	}
}

// Standard reports whether d describes a host built-in.
func (d Descriptor) Standard() bool {
	return d.Kind() == KindStandard
}

// Arity returns the accepted argument count range; hi is -1 for variadic
// functions. An invalid signature yields (0, -1).
func (d Descriptor) Arity() (lo, hi int) {
	sig, err := evaluator.ParseSignature(d.Signature)
	if err != nil {
		return 0, -1
	}
	return sig.Arity()
}

// Names returns the function name followed by its aliases.
func (d Descriptor) Names() []string {
	return append([]string{d.Name}, d.Aliases...)
}

// Validate checks that the descriptor is internally consistent.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return types.NewError(types.ErrCodeConfig, "descriptor without name")
	}
	if _, ok := ParseCategory(string(d.Category)); !ok {
		return types.Errorf(types.ErrCodeUnknownCategory, "%s: unknown category %q", d.Name, d.Category).
			WithFunction(d.Name)
	}
	sig, err := evaluator.ParseSignature(d.Signature)
	if err != nil {
		return types.Errorf(types.ErrCodeConfig, "%s: invalid signature %q", d.Name, d.Signature).
			WithFunction(d.Name).WithCause(err)
	}
	if d.Leaf != nil && d.Expr != nil {
		return types.Errorf(types.ErrCodeConfig, "%s: both leaf and expression implementations", d.Name).
			WithFunction(d.Name)
	}
	if d.Standard() != (d.Category == CategoryStandard) {
		return types.Errorf(types.ErrCodeConfig, "%s: standard functions must be in the standard category and carry no implementation", d.Name).
			WithFunction(d.Name)
	}
	if d.Kind() == KindExpression && d.ExprArg != NoExprArg {
		p, ok := sig.ParamAt(d.ExprArg)
		if !ok || p.Type != evaluator.TypeExpression {
			return types.Errorf(types.ErrCodeConfig, "%s: argument %d must be declared as an expression", d.Name, d.ExprArg+1).
				WithFunction(d.Name)
		}
	}
	return nil
}

// String returns "name(signature)".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s%s", d.Name, d.Signature)
}
