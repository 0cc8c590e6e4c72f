package evaluator

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	celtypes "github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/sandrolain/celfx/pkg/types"
)

// MaxCallArgs is the largest number of arguments an installed function can
// be called with.
const MaxCallArgs = 12

// FunctionDef defines an installable native function.
type FunctionDef struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for unlimited (up to MaxCallArgs)
	Impl    FunctionImpl
}

// FunctionImpl is the implementation of a native function. It receives the
// evaluator it runs in and the arguments converted to document values.
type FunctionImpl func(e *Evaluator, args []any) (any, error)

// InstallFunction installs a single native function. See Install.
func (e *Evaluator) InstallFunction(name string, minArgs, maxArgs int, impl FunctionImpl) error {
	return e.Install(&FunctionDef{Name: name, MinArgs: minArgs, MaxArgs: maxArgs, Impl: impl})
}

// Install adds native functions to the evaluator, replacing functions with
// the same name, and rebuilds the function environment once. Expressions
// compiled before the call keep the environment they were compiled with.
func (e *Evaluator) Install(defs ...*FunctionDef) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := maps.Clone(e.funcs)
	for _, def := range defs {
		if err := validateDef(def); err != nil {
			return err
		}
		next[def.Name] = def
	}
	return e.rebuild(next)
}

// Uninstall removes installed native functions. Names that are not
// installed are ignored and the environment is only rebuilt when something
// was removed. Built-ins cannot be removed.
func (e *Evaluator) Uninstall(names ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := maps.Clone(e.funcs)
	for _, name := range names {
		delete(next, name)
	}
	if len(next) == len(e.funcs) {
		return nil
	}
	return e.rebuild(next)
}

// rebuild replaces the function environment with one exposing funcs.
// e.mu must be held.
func (e *Evaluator) rebuild(funcs map[string]*FunctionDef) error {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	envOpts := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		envOpts = append(envOpts, e.functionOption(funcs[name]))
	}
	env, err := e.base.Extend(envOpts...)
	if err != nil {
		return types.NewError(types.ErrCodeConfig, "installing functions").WithCause(err)
	}

	e.env = env
	e.funcs = funcs
	e.gen = generations.Add(1)
	e.known = knownFunctions(funcs)
	e.logger.Debug("function environment rebuilt", "generation", e.gen, "functions", len(funcs))
	return nil
}

// HasFunction reports whether name can be called: a built-in or an
// installed function.
func (e *Evaluator) HasFunction(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.known[name]
	return ok
}

// Functions returns the sorted names of the installed native functions.
func (e *Evaluator) Functions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.funcs))
	for name := range e.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes the function called name with args, going through the same
// dispatch as a call written in an expression.
func (e *Evaluator) Call(name string, args ...any) (any, error) {
	if !isIdentifierName(name) || strings.ContainsFunc(name, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) {
		return nil, types.Errorf(types.ErrCodeEvaluation, "invalid function name %q", name)
	}
	if len(args) > MaxCallArgs {
		return nil, types.Errorf(types.ErrCodeArityMismatch,
			"%s: at most %d arguments supported, got %d", name, MaxCallArgs, len(args)).
			WithFunction(name)
	}

	vars := make(map[string]any, len(args))
	params := make([]string, len(args))
	for i, arg := range args {
		p := fmt.Sprintf("arg%d", i)
		params[i] = p
		vars[p] = arg
	}
	x, err := e.CompileCached(name + "(" + strings.Join(params, ", ") + ")")
	if err != nil {
		return nil, err
	}
	return e.Evaluate(x, BindVars(nil, vars))
}

// CheckArity returns an ArityMismatch error when n is outside [lo, hi].
// A negative hi means no upper bound.
func CheckArity(name string, lo, hi, n int) error {
	if n >= lo && (hi < 0 || n <= hi) {
		return nil
	}
	var expected string
	switch {
	case hi < 0:
		expected = fmt.Sprintf("at least %d", lo)
	case lo == hi:
		expected = fmt.Sprintf("%d", lo)
	default:
		expected = fmt.Sprintf("%d to %d", lo, hi)
	}
	return types.Errorf(types.ErrCodeArityMismatch,
		"expected %s arguments, got %d", expected, n).
		WithFunction(name).
		WithTypes(expected, fmt.Sprintf("%d", n))
}

// functionOption declares name with one dynamically typed overload per
// supported argument count. Compile appends the caller's nesting depth to
// every call, so each overload takes one more argument than the call
// site shows. Every overload routes to invoke, which reports arity
// violations itself.
func (e *Evaluator) functionOption(def *FunctionDef) cel.EnvOption {
	binding := cel.FunctionBinding(func(args ...ref.Val) ref.Val {
		return e.invoke(def, args)
	})
	overloads := make([]cel.FunctionOpt, 0, MaxCallArgs+1)
	for n := 0; n <= MaxCallArgs; n++ {
		params := make([]*cel.Type, n+1)
		for i := range params {
			params[i] = cel.DynType
		}
		overloads = append(overloads, cel.Overload(fmt.Sprintf("%s#%d", def.Name, n), params, cel.DynType, binding))
	}
	return cel.Function(def.Name, overloads...)
}

// invoke is the host side of the native call contract: the trailing depth
// argument selects the evaluator view the implementation runs in,
// arguments are converted to document values, the arity is checked, and
// results and errors are converted back for the interpreter.
func (e *Evaluator) invoke(def *FunctionDef, args []ref.Val) ref.Val {
	depth := 0
	if n := len(args); n > 0 {
		if d, ok := args[n-1].(celtypes.Int); ok {
			depth = int(d)
		}
		args = args[:n-1]
	}
	if err := CheckArity(def.Name, def.MinArgs, def.MaxArgs, len(args)); err != nil {
		return toCELError(err)
	}
	native := make([]any, len(args))
	for i, arg := range args {
		v, err := toNative(arg)
		if err != nil {
			return toCELError(err)
		}
		native[i] = v
	}
	result, err := def.Impl(e.at(depth), native)
	if err != nil {
		if _, ok := types.AsError(err); !ok {
			err = types.NewError(types.ErrCodeEvaluation, err.Error()).WithFunction(def.Name).WithCause(err)
		}
		return toCELError(err)
	}
	return e.adapter.NativeToValue(result)
}

func validateDef(def *FunctionDef) error {
	if def == nil || def.Impl == nil {
		return types.NewError(types.ErrCodeConfig, "function definition without implementation")
	}
	if !isIdentifierName(def.Name) {
		return types.Errorf(types.ErrCodeConfig, "invalid function name %q", def.Name)
	}
	if IsStandardFunction(def.Name) {
		return types.Errorf(types.ErrCodeConfig, "cannot replace built-in function %q", def.Name)
	}
	if def.MinArgs < 0 || (def.MaxArgs >= 0 && def.MaxArgs < def.MinArgs) || def.MaxArgs > MaxCallArgs {
		return types.Errorf(types.ErrCodeConfig, "invalid arity [%d, %d] for %q", def.MinArgs, def.MaxArgs, def.Name)
	}
	return nil
}

func knownFunctions(funcs map[string]*FunctionDef) map[string]struct{} {
	known := make(map[string]struct{}, len(funcs)+len(StandardFunctions))
	for name := range funcs {
		known[name] = struct{}{}
	}
	for _, name := range StandardFunctions {
		known[name] = struct{}{}
	}
	return known
}
