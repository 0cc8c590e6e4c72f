package evaluator

import (
	"github.com/google/cel-go/cel"
)

// Expression is a compiled query expression. It is immutable and safe for
// concurrent evaluation.
type Expression struct {
	source     string
	program    cel.Program
	generation uint64
	calls      []string
}

// Source returns the source text the expression was compiled from.
func (x *Expression) Source() string {
	return x.source
}

// Generation identifies the function environment the expression was
// planned against. It changes whenever functions are installed.
func (x *Expression) Generation() uint64 {
	return x.generation
}

// Calls returns the sorted, de-duplicated names of the functions the
// expression invokes, operators excluded.
func (x *Expression) Calls() []string {
	return x.calls
}

// String returns the source text.
func (x *Expression) String() string {
	return x.source
}
