// Package evaluator hosts the query language used by celfx.
//
// Expressions are written in the Common Expression Language and run on
// cel-go in parse-only (dynamically typed) mode. Documents are JSON-shaped
// Go values; inside an expression the current element is bound to "this"
// and its fields are available as plain identifiers.
//
// The evaluator is also the re-entrant host for expression functions: an
// installed native function receives the *Evaluator it runs in, so it can
// compile its expression argument through the evaluator's cache and
// evaluate it against a fresh Binding per element.
//
// # Example
//
//	ev := evaluator.New()
//	result, err := ev.Eval(ctx, `age >= 18`, map[string]any{"age": 21.0})
//
// # Concurrency
//
// Compilation and function installation are synchronised internally and a
// compiled *Expression may be evaluated from many goroutines. The nesting
// depth of expression functions travels with the Binding of each
// evaluation, so concurrent queries never count against each other.
package evaluator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/sandrolain/celfx/pkg/cache"
	"github.com/sandrolain/celfx/pkg/types"
)

// Defaults.
const (
	DefaultMaxDepth            = 32
	DefaultCacheSize           = 256
	DefaultTimeout             = 30 * time.Second
	DefaultMaxExpressionLength = 16 * 1024
	interruptCheckFrequency    = 100
)

// generations hands out environment generations. It is process wide so
// that evaluators sharing one cache never collide on keys.
var generations atomic.Uint64

// Evaluator compiles and evaluates expressions.
//
// Evaluators returned by Descend share everything with the evaluator they
// came from except the nesting depth.
type Evaluator struct {
	*engine

	// depth is the expression-function nesting level of this view
	depth int
}

type engine struct {
	opts    EvalOptions
	logger  *slog.Logger
	cache   *cache.Cache[*Expression] // nil when caching is disabled
	adapter *valueAdapter

	mu    sync.RWMutex
	base  *cel.Env
	env   *cel.Env
	gen   uint64
	known map[string]struct{}
	funcs map[string]*FunctionDef
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables the expression compilation cache used by
	// CompileCached and by expression functions. Enabled by default.
	Caching bool
	// CacheSize sets the maximum number of cached expressions.
	// Only used when Caching is true and no explicit Cache is provided.
	CacheSize int
	// Cache is a shared expression cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache[*Expression]
	// MaxDepth limits how deeply expression functions may nest.
	MaxDepth int
	// Timeout bounds top-level Eval calls. Zero disables it.
	Timeout time.Duration
	// CostLimit bounds the runtime cost of a single evaluation. Zero disables it.
	CostLimit uint64
	// MaxExpressionLength rejects longer sources at compile time.
	MaxExpressionLength int
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// EvalOption configures an Evaluator.
type EvalOption func(*EvalOptions)

// New creates a new Evaluator with only the host built-ins available.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Caching:             true,
		CacheSize:           DefaultCacheSize,
		MaxDepth:            DefaultMaxDepth,
		Timeout:             DefaultTimeout,
		MaxExpressionLength: DefaultMaxExpressionLength,
	}
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !options.Debug {
		logger = slog.New(levelFilter{Handler: logger.Handler(), min: slog.LevelInfo})
	}

	var c *cache.Cache[*Expression]
	switch {
	case options.Cache != nil:
		c = options.Cache
	case options.Caching:
		c = cache.New[*Expression](options.CacheSize)
	}

	adapter := newValueAdapter()
	base, err := cel.NewEnv(
		cel.CustomTypeAdapter(adapter),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		panic(fmt.Sprintf("evaluator: building base environment: %v", err))
	}

	return &Evaluator{engine: &engine{
		opts:    options,
		logger:  logger,
		cache:   c,
		adapter: adapter,
		base:    base,
		env:     base,
		gen:     generations.Add(1),
		known:   knownFunctions(nil),
		funcs:   make(map[string]*FunctionDef),
	}}
}

// WithCaching enables or disables expression compilation caching.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached expressions.
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external expression cache, which may be shared
// between evaluators.
func WithCache(c *cache.Cache[*Expression]) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithTimeout sets the evaluation timeout for top-level Eval calls.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithCostLimit bounds the runtime cost of a single evaluation.
func WithCostLimit(limit uint64) EvalOption {
	return func(opts *EvalOptions) {
		opts.CostLimit = limit
	}
}

// WithMaxExpressionLength sets the maximum accepted source length.
func WithMaxExpressionLength(n int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxExpressionLength = n
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum expression-function nesting depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// Cache returns the expression cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache[*Expression] {
	return e.cache
}

// Logger returns the evaluator's logger.
func (e *Evaluator) Logger() *slog.Logger {
	return e.logger
}

// Generation returns the current function environment generation.
func (e *Evaluator) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gen
}

// Compile parses src against the current function environment. Calls to
// functions that are neither built in nor installed fail with an
// UnknownFunction error; any other problem is a CompileError. A failed
// compilation never returns a handle.
func (e *Evaluator) Compile(src string) (*Expression, error) {
	if limit := e.opts.MaxExpressionLength; limit > 0 && len(src) > limit {
		return nil, types.Errorf(types.ErrCodeCompile,
			"expression length %d exceeds maximum of %d", len(src), limit)
	}

	e.mu.RLock()
	env, gen, known, funcs := e.env, e.gen, e.known, e.funcs
	e.mu.RUnlock()

	ast, iss := env.Parse(src)
	if iss != nil && iss.Err() != nil {
		return nil, types.Errorf(types.ErrCodeCompile, "invalid expression %q", src).
			WithCause(iss.Err())
	}

	calls := collectCalls(ast)
	for _, name := range calls {
		if _, ok := known[name]; !ok {
			return nil, types.UnknownFunction(name)
		}
	}
	addDepthArgs(ast, funcs)

	progOpts := []cel.ProgramOption{cel.InterruptCheckFrequency(interruptCheckFrequency)}
	if e.opts.CostLimit > 0 {
		progOpts = append(progOpts, cel.CostLimit(e.opts.CostLimit))
	}
	prg, err := env.Program(ast, progOpts...)
	if err != nil {
		return nil, types.Errorf(types.ErrCodeCompile, "planning expression %q", src).WithCause(err)
	}

	return &Expression{source: src, program: prg, generation: gen, calls: calls}, nil
}

// CompileCached is Compile through the expression cache. Keys include the
// environment generation, so installing functions invalidates every
// handle compiled before. Without a cache it compiles every time.
func (e *Evaluator) CompileCached(src string) (*Expression, error) {
	if e.cache == nil {
		return e.Compile(src)
	}
	return e.cache.GetOrCompile(e.CacheKey(src), func() (*Expression, error) {
		e.logger.Debug("expression cache miss", "source", src)
		return e.Compile(src)
	})
}

// CacheKey returns the cache key of src under the current generation.
func (e *Evaluator) CacheKey(src string) string {
	return fmt.Sprintf("%d\x00%s", e.Generation(), src)
}

// Evaluate runs a compiled expression against a binding and returns the
// result as a document value. Expression functions called by x start at
// the nesting depth of e.
func (e *Evaluator) Evaluate(x *Expression, b *Binding) (any, error) {
	if x == nil {
		return nil, types.NewError(types.ErrCodeEvaluation, "nil expression")
	}
	if b == nil {
		b = Bind(nil)
	}
	b = b.atDepth(e.depth)
	out, _, err := x.program.Eval(b)
	if err != nil {
		return nil, fromCELError(err)
	}
	return toNative(out)
}

// EvalExpression evaluates a compiled expression against data, honouring
// ctx and the configured timeout.
func (e *Evaluator) EvalExpression(ctx context.Context, x *Expression, data any) (any, error) {
	if x == nil {
		return nil, types.NewError(types.ErrCodeEvaluation, "nil expression")
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	out, _, err := x.program.ContextEval(ctx, Bind(data).atDepth(e.depth))
	if err != nil {
		return nil, fromCELError(err)
	}
	return toNative(out)
}

// Eval compiles src (through the cache) and evaluates it against data.
func (e *Evaluator) Eval(ctx context.Context, src string, data any) (any, error) {
	x, err := e.CompileCached(src)
	if err != nil {
		return nil, err
	}
	return e.EvalExpression(ctx, x, data)
}

// Descend returns a view of e one expression-function level deeper.
// Exceeding MaxDepth returns a RecursionLimit error. e itself is not
// changed.
func (e *Evaluator) Descend() (*Evaluator, error) {
	d := e.depth + 1
	if e.opts.MaxDepth > 0 && d > e.opts.MaxDepth {
		return nil, types.Errorf(types.ErrCodeRecursionLimit,
			"expression functions nested deeper than %d levels", e.opts.MaxDepth)
	}
	return e.at(d), nil
}

// Depth returns the expression-function nesting depth of e. Evaluators
// created with New are at depth 0.
func (e *Evaluator) Depth() int {
	return e.depth
}

func (e *Evaluator) at(depth int) *Evaluator {
	if depth == e.depth {
		return e
	}
	return &Evaluator{engine: e.engine, depth: depth}
}

// levelFilter drops records below min.
type levelFilter struct {
	slog.Handler
	min slog.Level
}

func (f levelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= f.min && f.Handler.Enabled(ctx, level)
}

func (f levelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelFilter{Handler: f.Handler.WithAttrs(attrs), min: f.min}
}

func (f levelFilter) WithGroup(name string) slog.Handler {
	return levelFilter{Handler: f.Handler.WithGroup(name), min: f.min}
}
