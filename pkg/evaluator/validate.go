package evaluator

import (
	"slices"
	"sort"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
)

// StandardFunctions lists the host language built-ins. They are always
// available and cannot be installed or removed.
var StandardFunctions = []string{
	"bool", "bytes", "contains", "double", "duration", "dyn", "endsWith",
	"getDate", "getDayOfMonth", "getDayOfWeek", "getDayOfYear", "getFullYear",
	"getHours", "getMilliseconds", "getMinutes", "getMonth", "getSeconds",
	"has", "int", "matches", "size", "startsWith", "string", "timestamp",
	"type", "uint",
}

// IsStandardFunction reports whether name is a host built-in.
func IsStandardFunction(name string) bool {
	i := sort.SearchStrings(StandardFunctions, name)
	return i < len(StandardFunctions) && StandardFunctions[i] == name
}

// collectCalls returns the named functions invoked by the parsed
// expression. Operators and internal helpers (names that do not start with
// a letter) are skipped.
func collectCalls(ast *cel.Ast) []string {
	seen := make(map[string]struct{})
	var walk func(e celast.Expr)
	walk = func(e celast.Expr) {
		if e == nil {
			return
		}
		switch e.Kind() {
		case celast.CallKind:
			call := e.AsCall()
			if name := call.FunctionName(); isIdentifierName(name) {
				seen[name] = struct{}{}
			}
			if call.IsMemberFunction() {
				walk(call.Target())
			}
			for _, arg := range call.Args() {
				walk(arg)
			}
		case celast.ListKind:
			for _, el := range e.AsList().Elements() {
				walk(el)
			}
		case celast.MapKind:
			for _, entry := range e.AsMap().Entries() {
				me := entry.AsMapEntry()
				walk(me.Key())
				walk(me.Value())
			}
		case celast.StructKind:
			for _, field := range e.AsStruct().Fields() {
				walk(field.AsStructField().Value())
			}
		case celast.SelectKind:
			walk(e.AsSelect().Operand())
		case celast.ComprehensionKind:
			comp := e.AsComprehension()
			walk(comp.IterRange())
			walk(comp.AccuInit())
			walk(comp.LoopCondition())
			walk(comp.LoopStep())
			walk(comp.Result())
		}
	}
	walk(ast.NativeRep().Expr())

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// addDepthArgs appends the depth identifier to every global call of an
// installed function, so the function learns the nesting level of the
// evaluation that called it.
func addDepthArgs(ast *cel.Ast, installed map[string]*FunctionDef) {
	native := ast.NativeRep()
	fac := celast.NewExprFactory()
	nextID := celast.MaxID(native)
	celast.PostOrderVisit(native.Expr(), celast.NewExprVisitor(func(e celast.Expr) {
		if e.Kind() != celast.CallKind {
			return
		}
		call := e.AsCall()
		if call.IsMemberFunction() {
			return
		}
		if _, ok := installed[call.FunctionName()]; !ok {
			return
		}
		args := append(slices.Clone(call.Args()), fac.NewIdent(nextID, depthName))
		nextID++
		e.SetKindCase(fac.NewCall(e.ID(), call.FunctionName(), args...))
	}))
}

func isIdentifierName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
