package exprfn_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/exprfn"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// helpers installed next to the expression functions
func testHelpers() []functions.Descriptor {
	return []functions.Descriptor{
		{
			Name:      "join2",
			Category:  functions.CategoryString,
			Signature: "<s-s:s>",
			Leaf: func(args ...any) (any, error) {
				return args[0].(string) + args[1].(string), nil
			},
		},
		{
			Name:      "times10",
			Category:  functions.CategoryMath,
			Signature: "<x:x>",
			Leaf: func(args ...any) (any, error) {
				if n, ok := args[0].(float64); ok {
					return n * 10, nil
				}
				return args[0], nil
			},
		},
	}
}

func newEvaluator(t *testing.T, opts ...evaluator.EvalOption) *evaluator.Evaluator {
	t.Helper()
	ev := evaluator.New(opts...)
	var defs []*evaluator.FunctionDef
	for _, d := range append(exprfn.All(), testHelpers()...) {
		nd, err := d.NativeDefs()
		require.NoError(t, err, d.Name)
		defs = append(defs, nd...)
	}
	require.NoError(t, ev.Install(defs...))
	return ev
}

func eval(t *testing.T, ev *evaluator.Evaluator, expr string, data any) (any, error) {
	t.Helper()
	return ev.Eval(context.Background(), expr, data)
}

func obj(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestAll_Descriptors(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, d := range exprfn.All() {
		require.NoError(t, d.Validate(), d.Name)
		assert.Equal(t, functions.CategoryExpression, d.Category, d.Name)
		assert.NotEmpty(t, d.Description, d.Name)
		for _, n := range d.Names() {
			assert.False(t, seen[n], "duplicate %s", n)
			seen[n] = true
		}
	}
	for _, n := range []string{"some", "every", "fold"} {
		assert.True(t, seen[n], n)
	}
}

func TestFilterExpr_Scenario(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	data := []any{obj("age", 25.0), obj("age", 17.0), obj("age", 30.0)}

	got, err := eval(t, ev, `filter_expr('age >= 18', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, []any{obj("age", 25.0), obj("age", 30.0)}, got)
}

func TestFilterExpr_CompileError(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	data := []any{obj("age", 25.0), obj("age", 17.0)}

	got, err := eval(t, ev, `filter_expr('age >>> 18', this)`, data)
	require.ErrorIs(t, err, types.ErrCompile)
	assert.Nil(t, got)
	te, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "filter_expr", te.Function)
}

func TestGroupByExpr_Scenario(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	a1 := obj("type", "a", "v", 1.0)
	b := obj("type", "b", "v", 2.0)
	a2 := obj("type", "a", "v", 3.0)

	got, err := eval(t, ev, `group_by_expr('type', this)`, []any{a1, b, a2})
	require.NoError(t, err)
	groups, ok := got.(*types.OrderedObject)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, groups.Keys)
	assert.Equal(t, []any{a1, a2}, groups.Values["a"])
	assert.Equal(t, []any{b}, groups.Values["b"])

	raw, err := json.Marshal(groups)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), `{"a":`))
}

func TestGroupByExpr_Properties(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	data := []any{
		obj("k", 2.0), obj("k", "x"), obj("k", 2.0), obj("k", nil), obj("k", true), obj("k", 2.5),
	}
	got, err := eval(t, ev, `group_by_expr('k', this)`, data)
	require.NoError(t, err)
	groups := got.(*types.OrderedObject)
	assert.Equal(t, []string{"2", "x", "null", "true", "2.5"}, groups.Keys)

	total := 0
	for _, k := range groups.Keys {
		total += len(groups.Values[k].([]any))
	}
	assert.Equal(t, len(data), total)

	got, err = eval(t, ev, `count_by('k', this)`, data)
	require.NoError(t, err)
	counts := got.(*types.OrderedObject)
	assert.Equal(t, 2.0, counts.Values["2"])
	assert.Equal(t, 1.0, counts.Values["x"])
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	nums := []any{1.0, 2.0, 3.0, 5.0, 1.0}

	tests := []struct {
		name string
		expr string
		data any
		want any
	}{
		{"reject", `reject('this > 2', this)`, nums, []any{1.0, 2.0, 1.0}},
		{"any", `any_expr('this > 4', this)`, nums, true},
		{"any empty", `any_expr('this > 4', this)`, []any{}, false},
		{"some alias", `some('this > 9', this)`, nums, false},
		{"all", `all_expr('this > 0', this)`, nums, true},
		{"all empty", `all_expr('this > 100', this)`, []any{}, true},
		{"every alias", `every('this < 5', this)`, nums, false},
		{"find", `find_expr('this > 2', this)`, nums, 3.0},
		{"find none", `find_expr('this > 9', this)`, nums, nil},
		{"find index", `find_index_expr('this > 2', this)`, nums, 2.0},
		{"find index none", `find_index_expr('this > 9', this)`, nums, -1.0},
		{"count", `count_expr('this >= 2', this)`, nums, 3.0},
		{"take while", `take_while('this < 4', this)`, nums, []any{1.0, 2.0, 3.0}},
		{"drop while", `drop_while('this < 4', this)`, nums, []any{5.0, 1.0}},
		{"zero is truthy", `filter_expr('this', this)`, []any{0.0, "", nil, false, []any{}, "x"}, []any{0.0, "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval(t, ev, tt.expr, tt.data)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestPartitionExpr_Property(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	data := []any{4.0, 1.0, 7.0, 2.0, 9.0, 3.0}

	got, err := eval(t, ev, `partition_expr('this > 3', this)`, data)
	require.NoError(t, err)
	parts := got.([]any)
	require.Len(t, parts, 2)
	pass, fail := parts[0].([]any), parts[1].([]any)
	assert.Equal(t, []any{4.0, 7.0, 9.0}, pass)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, fail)
	assert.Len(t, append(pass, fail...), len(data))
}

func TestNullOnError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ev := newEvaluator(t, evaluator.WithLogger(logger), evaluator.WithDebug(true))
	data := []any{obj("age", 20.0), obj("name", "x"), 5.0}

	got, err := eval(t, ev, `filter_expr('age > 1', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, []any{obj("age", 20.0)}, got)
	assert.Contains(t, buf.String(), "predicate failed")

	got, err = eval(t, ev, `count_expr('age > 1', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = eval(t, ev, `all_expr('age > 1', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestFailFast(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	data := []any{obj("age", 20.0), obj("name", "x")}

	for _, expr := range []string{
		`map_expr('age', this)`,
		`sort_by_expr('age', this)`,
		`group_by_expr('age', this)`,
		`min_by_expr('age', this)`,
		`unique_by_expr('age', this)`,
		`reduce_expr('accumulator + current.age', this, 0.0)`,
	} {
		_, err := eval(t, ev, expr, data)
		assert.ErrorIs(t, err, types.ErrEvaluation, expr)
	}

	// absent fields have to be tolerated explicitly
	got, err := eval(t, ev, `map_expr('has(this.age) ? age : null', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, []any{20.0, nil}, got)
}

func TestSortByExpr(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	a := obj("k", 2.0, "id", "a")
	b := obj("k", 1.0, "id", "b")
	c := obj("k", 2.0, "id", "c")

	got, err := eval(t, ev, `sort_by_expr('k', this)`, []any{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []any{b, a, c}, got)

	got, err = eval(t, ev, `sort_by_expr('this', this)`, []any{"b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, got)

	_, err = eval(t, ev, `sort_by_expr('this', this)`, []any{1.0, "a"})
	require.ErrorIs(t, err, types.ErrEvaluation)
	assert.Contains(t, err.Error(), "number")

	_, err = eval(t, ev, `sort_by_expr('this', this)`, []any{[]any{1.0}, []any{2.0}})
	require.ErrorIs(t, err, types.ErrEvaluation)
}

func TestMinMaxUnique(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	p1 := obj("id", 1.0, "price", 3.0)
	p2 := obj("id", 2.0, "price", 1.0)
	p3 := obj("id", 3.0, "price", 1.0)
	p4 := obj("id", 4.0, "price", 3.0)
	data := []any{p1, p2, p3, p4}

	got, err := eval(t, ev, `min_by_expr('price', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, p2, got)

	got, err = eval(t, ev, `max_by_expr('price', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, p1, got)

	got, err = eval(t, ev, `max_by_expr('price', this)`, []any{})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = eval(t, ev, `unique_by_expr('price', this)`, data)
	require.NoError(t, err)
	assert.Equal(t, []any{p1, p2}, got)

	got, err = eval(t, ev, `unique_by_expr('this', this)`, []any{1.0, "1", 1.0})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, "1"}, got)
}

func TestTransforms(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)

	got, err := eval(t, ev, `map_expr('name', this)`, []any{obj("name", "Alice"), obj("name", "Bob")})
	require.NoError(t, err)
	assert.Equal(t, []any{"Alice", "Bob"}, got)

	got, err = eval(t, ev, `flat_map_expr('tags', this)`, []any{
		obj("tags", []any{"a", "b"}), obj("tags", "c"), obj("tags", []any{}),
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, got)

	// null results are dropped, null elements inside a result are kept
	got, err = eval(t, ev, `flat_map_expr('tags', this)`, []any{
		obj("tags", []any{"a"}), obj("tags", nil), obj("tags", []any{"b", nil}),
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", nil}, got)

	got, err = eval(t, ev, `map_keys('join2(this, "_x")', this)`, obj("b", 1.0, "a", 2.0))
	require.NoError(t, err)
	keys := got.(*types.OrderedObject)
	assert.Equal(t, []string{"a_x", "b_x"}, keys.Keys)
	assert.Equal(t, 2.0, keys.Values["a_x"])

	got, err = eval(t, ev, `map_keys('1', this)`, obj("a", 1.0))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, got.(*types.OrderedObject).Keys)

	got, err = eval(t, ev, `map_keys('true', this)`, obj("a", 1.0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.(*types.OrderedObject).Keys)

	got, err = eval(t, ev, `map_values('this * 2.0', this)`, obj("a", 1.0, "b", 2.0))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 2.0, "b": 4.0}, got.(*types.OrderedObject).Map())

	got, err = eval(t, ev, `zip_with('this[0] + this[1]', [1.0, 2.0], [10.0, 20.0, 30.0])`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{11.0, 22.0}, got)

	got, err = eval(t, ev, `walk('times10(this)', this)`, obj("a", []any{1.0, 2.0}, "b", "x"))
	require.NoError(t, err)
	assert.Equal(t, obj("a", []any{10.0, 20.0}, "b", "x"), got)
}

func TestOrderBy(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	ann := obj("name", "ann", "age", 30.0)
	bob := obj("name", "bob", "age", 25.0)
	cid := obj("name", "cid", "age", 30.0)

	got, err := eval(t, ev, `order_by(this, [["age", "desc"], ["name", "asc"]])`, []any{bob, cid, ann})
	require.NoError(t, err)
	assert.Equal(t, []any{ann, cid, bob}, got)

	got, err = eval(t, ev, `order_by(this, [["name", "DESCENDING"]])`, []any{ann, bob})
	require.NoError(t, err)
	assert.Equal(t, []any{bob, ann}, got)

	_, err = eval(t, ev, `order_by(this, [["name", "sideways"]])`, []any{ann})
	require.ErrorIs(t, err, types.ErrEvaluation)

	_, err = eval(t, ev, `order_by(this, [["name"]])`, []any{ann})
	require.ErrorIs(t, err, types.ErrEvaluation)
}

func TestReduceAndScan(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	nums := []any{1.0, 2.0, 3.0}

	got, err := eval(t, ev, `reduce_expr('accumulator + current', this, 0)`, nums)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)

	got, err = eval(t, ev, `fold('accumulator + current * index', this, 0.0)`, nums)
	require.NoError(t, err)
	assert.Equal(t, 8.0, got)

	got, err = eval(t, ev, `reduce_expr('accumulator + current', this, "init")`, []any{})
	require.NoError(t, err)
	assert.Equal(t, "init", got)

	got, err = eval(t, ev, `scan_expr('accumulator + current', this, 0.0)`, nums)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 3.0, 6.0}, got)

	got, err = eval(t, ev, `scan_expr('accumulator + current', this, 0.0)`, []any{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}

func TestPartialApply(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)

	got, err := eval(t, ev, `apply(partial("join2", "a"), "b")`, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", got)

	got, err = eval(t, ev, `apply("join2", "x", "y")`, nil)
	require.NoError(t, err)
	assert.Equal(t, "xy", got)

	got, err = eval(t, ev, `apply("size", this)`, []any{1.0, 2.0, 3.0})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = eval(t, ev, `partial("join2", "a")`, nil)
	require.NoError(t, err)
	p := got.(*types.OrderedObject)
	assert.Equal(t, []string{exprfn.PartialMarker, exprfn.PartialFn, exprfn.PartialArgs}, p.Keys)
	assert.Equal(t, []any{"a"}, p.Values[exprfn.PartialArgs])

	_, err = eval(t, ev, `apply("missing_fn", 1)`, nil)
	require.ErrorIs(t, err, types.ErrUnknownFunction)

	_, err = eval(t, ev, `apply({"x": 1}, 1)`, nil)
	require.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestContractErrors(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)

	_, err := eval(t, ev, `filter_expr('age > 1')`, nil)
	require.ErrorIs(t, err, types.ErrArityMismatch)

	_, err = eval(t, ev, `filter_expr('age > 1', 5)`, nil)
	require.ErrorIs(t, err, types.ErrTypeMismatch)
	te, _ := types.AsError(err)
	assert.Equal(t, 2, te.Position)
	assert.Equal(t, types.TypeArray, te.Expected)
	assert.Equal(t, types.TypeNumber, te.Actual)

	_, err = eval(t, ev, `map_keys('this', [1])`, nil)
	require.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestRecursionLimit(t *testing.T) {
	t.Parallel()

	data := []any{[]any{[]any{1.0}}}
	nested := `map_expr('''map_expr("map_expr('this', this)", this)''', this)`

	ev := newEvaluator(t, evaluator.WithMaxDepth(2))
	_, err := eval(t, ev, nested, data)
	require.ErrorIs(t, err, types.ErrRecursionLimit)
	assert.Equal(t, 0, ev.Depth())

	ev = newEvaluator(t, evaluator.WithMaxDepth(3))
	got, err := eval(t, ev, nested, data)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// null-on-error does not hide the depth ceiling
	ev = newEvaluator(t, evaluator.WithMaxDepth(1))
	_, err = eval(t, ev, `filter_expr("size(filter_expr('true', this)) > 0", this)`, []any{[]any{1.0}})
	require.ErrorIs(t, err, types.ErrRecursionLimit)
}

func TestConcurrentQueries_IndependentDepth(t *testing.T) {
	t.Parallel()

	const workers = 40
	ev := newEvaluator(t, evaluator.WithMaxDepth(1))

	// holds every query inside map_expr until all of them are there
	var arrived sync.WaitGroup
	arrived.Add(workers)
	require.NoError(t, ev.InstallFunction("wait_gate", 1, 1, func(_ *evaluator.Evaluator, args []any) (any, error) {
		arrived.Done()
		arrived.Wait()
		return args[0], nil
	}))
	x, err := ev.Compile(`map_expr('wait_gate(this)', this)`)
	require.NoError(t, err)

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n float64) {
			defer wg.Done()
			got, err := ev.EvalExpression(context.Background(), x, []any{n})
			if err == nil && !cmp.Equal([]any{n}, got) {
				err = fmt.Errorf("query %v returned %v", n, got)
			}
			errs <- err
		}(float64(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCachedExpressions(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	for i := 0; i < 3; i++ {
		_, err := eval(t, ev, `map_expr('this * 2.0', this)`, []any{1.0})
		require.NoError(t, err)
	}
	assert.True(t, ev.Cache().Contains(ev.CacheKey("this * 2.0")))
}
