package evaluator

import (
	celtypes "github.com/google/cel-go/common/types"
	"github.com/google/cel-go/interpreter"

	"github.com/sandrolain/celfx/pkg/types"
)

// ThisName is the identifier bound to the current element.
const ThisName = "this"

// depthName is the hidden trailing argument Compile appends to every call
// of an installed function. It cannot be written in source text.
const depthName = "@depth"

// Binding is the context a compiled expression is evaluated against: the
// current element plus optional named variables. It implements the CEL
// activation interface.
//
// Identifiers resolve in this order: "this", explicit variables, fields of
// the current element, then the parent binding. A Binding must not be
// modified once it has been handed to Evaluate.
type Binding struct {
	// data is the current element
	data any

	// vars holds explicit variable bindings
	vars map[string]any

	// parent is consulted when a name is not found locally
	parent *Binding

	// depth is the expression-function nesting level of the evaluation
	depth int
}

var _ interpreter.Activation = (*Binding)(nil)

// Bind creates a binding whose current element is data.
func Bind(data any) *Binding {
	return &Binding{data: data}
}

// BindStep creates the binding used by reduce and scan steps: the current
// element is the object {"accumulator": acc, "current": cur, "index": idx}.
func BindStep(acc, cur any, idx int) *Binding {
	step := types.NewOrderedObject()
	step.Set("accumulator", acc)
	step.Set("current", cur)
	step.Set("index", float64(idx))
	return &Binding{data: step}
}

// BindVars creates a binding with explicit variables in addition to data.
func BindVars(data any, vars map[string]any) *Binding {
	return &Binding{data: data, vars: vars}
}

// NewChild creates a child binding with new data that falls back to b for
// names it does not define.
func (b *Binding) NewChild(data any) *Binding {
	return &Binding{data: data, parent: b, depth: b.depth}
}

// atDepth returns b, or a shallow copy of it, at the given nesting level.
func (b *Binding) atDepth(depth int) *Binding {
	if b.depth == depth {
		return b
	}
	c := *b
	c.depth = depth
	return &c
}

// Data returns the current element.
func (b *Binding) Data() any {
	return b.data
}

// ResolveName implements interpreter.Activation.
func (b *Binding) ResolveName(name string) (any, bool) {
	switch name {
	case ThisName:
		return b.data, true
	case depthName:
		return celtypes.Int(b.depth), true
	}
	if v, ok := b.vars[name]; ok {
		return v, true
	}
	if v, ok := types.Field(b.data, name); ok {
		return v, true
	}
	if b.parent != nil {
		return b.parent.ResolveName(name)
	}
	return nil, false
}

// Parent implements interpreter.Activation.
func (b *Binding) Parent() interpreter.Activation {
	if b.parent == nil {
		return nil
	}
	return b.parent
}
