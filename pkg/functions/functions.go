// Package functions describes installable functions and adapts them to the
// evaluator's native calling convention.
//
// A [Descriptor] carries a function's static metadata (name, category,
// signature, documentation) together with its implementation. Two call
// shapes exist:
//
//   - leaf functions ([LeafFunc]) are pure value transforms;
//   - expression functions ([ExprFunc]) take query source text as one of
//     their arguments and evaluate it through the evaluator handle they
//     receive explicitly.
//
// Standard descriptors describe the host language built-ins; they carry no
// implementation and are never installed.
//
// # Example
//
//	d := functions.Descriptor{
//	    Name:      "greet",
//	    Category:  functions.CategoryString,
//	    Signature: "<s:s>",
//	    Leaf: func(args ...any) (any, error) {
//	        return "Hello, " + args[0].(string) + "!", nil
//	    },
//	}
//	defs, err := d.NativeDefs()
//	err = ev.Install(defs...)
package functions

import (
	"github.com/sandrolain/celfx/pkg/evaluator"
)

// LeafFunc is the implementation of a leaf function. args have already been
// checked against the descriptor's signature.
type LeafFunc func(args ...any) (any, error)

// ExprFunc is the implementation of an expression function. expr is the
// compiled expression argument (nil when the descriptor has no expression
// argument) and args are the remaining arguments in order.
type ExprFunc func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error)

// Category groups related functions.
type Category string

// Categories.
const (
	CategoryStandard   Category = "standard"
	CategoryString     Category = "string"
	CategoryMath       Category = "math"
	CategoryArray      Category = "array"
	CategoryObject     Category = "object"
	CategoryType       Category = "type"
	CategoryDatetime   Category = "datetime"
	CategoryDuration   Category = "duration"
	CategoryHash       Category = "hash"
	CategoryEncoding   Category = "encoding"
	CategoryIDs        Category = "ids"
	CategoryFuzzy      Category = "fuzzy"
	CategorySemver     Category = "semver"
	CategoryFormat     Category = "format"
	CategoryValidation Category = "validation"
	CategoryRegex      Category = "regex"
	CategoryNetwork    Category = "network"
	CategoryUtility    Category = "utility"
	CategoryExpression Category = "expression"
)

var allCategories = []Category{
	CategoryStandard,
	CategoryString,
	CategoryMath,
	CategoryArray,
	CategoryObject,
	CategoryType,
	CategoryDatetime,
	CategoryDuration,
	CategoryHash,
	CategoryEncoding,
	CategoryIDs,
	CategoryFuzzy,
	CategorySemver,
	CategoryFormat,
	CategoryValidation,
	CategoryRegex,
	CategoryNetwork,
	CategoryUtility,
	CategoryExpression,
}

// Categories returns every known category.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory returns the category called name.
func ParseCategory(name string) (Category, bool) {
	for _, c := range allCategories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Kind is the call shape of a function.
type Kind int

const (
	KindStandard Kind = iota
	KindLeaf
	KindExpression
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindExpression:
		return "expression"
	default:
		return "standard"
	}
}

// Policy is what an expression function does when evaluating its
// expression fails for one element.
type Policy int

const (
	// PolicyFailFast aborts the whole call with the element's error.
	PolicyFailFast Policy = iota
	// PolicyNullOnError treats the element's result as null (falsy).
	PolicyNullOnError
)

func (p Policy) String() string {
	if p == PolicyNullOnError {
		return "null-on-error"
	}
	return "fail-fast"
}
