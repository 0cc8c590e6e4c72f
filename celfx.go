// Package celfx extends CEL with a selectable library of document-query
// functions.
//
// Functions are described by a catalog of descriptors grouped in categories
// (string, math, array, datetime, hash, ...). A registry chooses which of
// them an evaluator exposes. Expression functions such as filter_expr and
// sort_by_expr take query source text as an argument and evaluate it per
// element.
//
// # Quick Start
//
//	// Everything enabled
//	result, err := celfx.Eval(`filter_expr('age >= 18', this)`, people)
//
//	// Compile once, evaluate many times
//	q, err := celfx.Compile(`sort_by_expr('price', items)`)
//	result1, _ := q.Eval(ctx, data1)
//	result2, _ := q.Eval(ctx, data2)
//
//	// A restricted function set
//	reg := registry.New()
//	_ = reg.RegisterCategory(functions.CategoryString)
//	ev := evaluator.New(evaluator.WithTimeout(time.Second))
//	err = reg.Apply(ev)
//
// # More Information
//
//   - Evaluator: github.com/sandrolain/celfx/pkg/evaluator
//   - Registry: github.com/sandrolain/celfx/pkg/registry
//   - Descriptors and the native bridge: github.com/sandrolain/celfx/pkg/functions
//   - Catalog: github.com/sandrolain/celfx/pkg/ext
//   - Expression functions: github.com/sandrolain/celfx/pkg/exprfn
package celfx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/registry"
)

const defaultTimeout = 30 * time.Second

// Version returns the current version of celfx.
func Version() string {
	return "v0.1.0-dev"
}

// RegisterAll installs every catalog function into inst.
func RegisterAll(inst registry.Installer) error {
	reg := registry.New()
	reg.RegisterAll()
	return reg.Apply(inst)
}

// New creates an evaluator with every catalog function installed.
func New(opts ...evaluator.EvalOption) (*evaluator.Evaluator, error) {
	ev := evaluator.New(opts...)
	if err := RegisterAll(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// defaultEvaluator is shared by Compile and Eval calls without options.
var defaultEvaluator = sync.OnceValues(func() (*evaluator.Evaluator, error) {
	return New()
})

// Query is a compiled expression bound to the evaluator it was compiled
// with. It is safe for concurrent use.
type Query struct {
	ev   *evaluator.Evaluator
	expr *evaluator.Expression
}

// Source returns the expression text.
func (q *Query) Source() string {
	return q.expr.Source()
}

// Evaluator returns the evaluator the query was compiled with.
func (q *Query) Evaluator() *evaluator.Evaluator {
	return q.ev
}

// Eval evaluates the query against data.
func (q *Query) Eval(ctx context.Context, data any) (any, error) {
	return q.ev.EvalExpression(ctx, q.expr, data)
}

// Compile compiles an expression against an evaluator with every catalog
// function installed. Without options every call shares one evaluator,
// built on first use, and its expression cache. Passing options builds a
// new evaluator, which means a new environment with every catalog
// function: reuse the returned Query instead of compiling again.
//
// Example:
//
//	q, err := celfx.Compile(`filter_expr('price > 100.0', items)`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, _ := q.Eval(ctx, data)
func Compile(src string, opts ...evaluator.EvalOption) (*Query, error) {
	var (
		ev  *evaluator.Evaluator
		err error
	)
	if len(opts) == 0 {
		ev, err = defaultEvaluator()
	} else {
		ev, err = New(opts...)
	}
	if err != nil {
		return nil, err
	}
	x, err := ev.CompileCached(src)
	if err != nil {
		return nil, err
	}
	return &Query{ev: ev, expr: x}, nil
}

// MustCompile is like Compile but panics if the expression cannot be
// compiled.
func MustCompile(src string, opts ...evaluator.EvalOption) *Query {
	q, err := Compile(src, opts...)
	if err != nil {
		panic(fmt.Sprintf("celfx: Compile(%q): %v", src, err))
	}
	return q
}

// Eval compiles and evaluates an expression in a single call, with a
// 30 second timeout. It has the costs described on Compile; for repeated
// evaluations use Compile once and Query.Eval.
func Eval(src string, data any, opts ...evaluator.EvalOption) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return EvalWithContext(ctx, src, data, opts...)
}

// EvalWithContext is Eval with a caller-supplied context.
func EvalWithContext(ctx context.Context, src string, data any, opts ...evaluator.EvalOption) (any, error) {
	q, err := Compile(src, opts...)
	if err != nil {
		return nil, err
	}
	return q.Eval(ctx, data)
}
