package functions_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

func shout() functions.Descriptor {
	return functions.Descriptor{
		Name:      "shout",
		Category:  functions.CategoryString,
		Signature: "<s-n?:s>",
		Aliases:   []string{"yell"},
		Leaf: func(args ...any) (any, error) {
			n := 1.0
			if len(args) > 1 && args[1] != nil {
				n = args[1].(float64)
			}
			return strings.ToUpper(args[0].(string)) + strings.Repeat("!", int(n)), nil
		},
	}
}

func mapAll() functions.Descriptor {
	return functions.Descriptor{
		Name:      "map_all",
		Category:  functions.CategoryExpression,
		Signature: "<e-a:a>",
		Expr: func(ev *evaluator.Evaluator, expr *evaluator.Expression, args []any) (any, error) {
			in := args[0].([]any)
			out := make([]any, 0, len(in))
			for _, v := range in {
				r, err := ev.Evaluate(expr, evaluator.Bind(v))
				if err != nil {
					return nil, err
				}
				out = append(out, r)
			}
			return out, nil
		},
	}
}

func install(t *testing.T, ev *evaluator.Evaluator, descs ...functions.Descriptor) {
	t.Helper()
	for _, d := range descs {
		defs, err := d.NativeDefs()
		require.NoError(t, err)
		require.NoError(t, ev.Install(defs...))
	}
}

func TestDescriptor_Kind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, functions.KindLeaf, shout().Kind())
	assert.Equal(t, functions.KindExpression, mapAll().Kind())
	std := functions.Descriptor{Name: "size", Category: functions.CategoryStandard}
	assert.True(t, std.Standard())
	assert.Equal(t, "standard", std.Kind().String())

	lo, hi := shout().Arity()
	assert.Equal(t, 1, lo)
	assert.Equal(t, 2, hi)
	assert.Equal(t, []string{"shout", "yell"}, shout().Names())
}

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	leaf := func(args ...any) (any, error) { return nil, nil }
	tests := []struct {
		name string
		d    functions.Descriptor
		want error
	}{
		{"no name", functions.Descriptor{Category: functions.CategoryString, Leaf: leaf}, types.ErrConfig},
		{"bad category", functions.Descriptor{Name: "x", Category: "nope", Leaf: leaf}, types.ErrUnknownCategory},
		{"bad signature", functions.Descriptor{Name: "x", Category: functions.CategoryString, Signature: "<q>", Leaf: leaf}, types.ErrConfig},
		{"standard with impl", functions.Descriptor{Name: "x", Category: functions.CategoryStandard, Leaf: leaf}, types.ErrConfig},
		{"leaf without impl", functions.Descriptor{Name: "x", Category: functions.CategoryString}, types.ErrConfig},
		{"expr arg not expression", functions.Descriptor{
			Name: "x", Category: functions.CategoryExpression, Signature: "<s-a:a>",
			Expr: func(*evaluator.Evaluator, *evaluator.Expression, []any) (any, error) { return nil, nil },
		}, types.ErrConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.d.Validate(), tt.want)
		})
	}

	assert.NoError(t, shout().Validate())
	assert.NoError(t, mapAll().Validate())
}

func TestNativeDefs_Leaf(t *testing.T) {
	t.Parallel()

	ev := evaluator.New()
	install(t, ev, shout())
	ctx := context.Background()

	got, err := ev.Eval(ctx, `shout(name)`, map[string]any{"name": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "HI!", got)

	got, err = ev.Eval(ctx, `yell("a", 3)`, nil)
	require.NoError(t, err)
	assert.Equal(t, "A!!!", got)

	_, err = ev.Eval(ctx, `shout()`, nil)
	require.ErrorIs(t, err, types.ErrArityMismatch)

	_, err = ev.Eval(ctx, `shout(1)`, nil)
	require.ErrorIs(t, err, types.ErrTypeMismatch)
	te, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "shout", te.Function)
	assert.Equal(t, 1, te.Position)
	assert.Equal(t, types.TypeString, te.Expected)
	assert.Equal(t, types.TypeNumber, te.Actual)

	_, err = ev.Eval(ctx, `yell("a", "b")`, nil)
	require.ErrorIs(t, err, types.ErrTypeMismatch)
	te, _ = types.AsError(err)
	assert.Equal(t, "yell", te.Function)
	assert.Equal(t, 2, te.Position)
}

func TestNativeDefs_LeafErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	d := functions.Descriptor{
		Name:     "explode",
		Category: functions.CategoryUtility,
		Leaf:     func(args ...any) (any, error) { return nil, boom },
	}
	ev := evaluator.New()
	install(t, ev, d)

	_, err := ev.Eval(context.Background(), `explode()`, nil)
	require.ErrorIs(t, err, types.ErrEvaluation)
	require.ErrorIs(t, err, boom)
	te, _ := types.AsError(err)
	assert.Equal(t, "explode", te.Function)
}

func TestNativeDefs_Expression(t *testing.T) {
	t.Parallel()

	ev := evaluator.New()
	install(t, ev, mapAll())
	ctx := context.Background()

	got, err := ev.Eval(ctx, `map_all('v * 2.0', this)`, []any{
		map[string]any{"v": 1.0},
		map[string]any{"v": 2.5},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{2.0, 5.0}, got)

	_, err = ev.Eval(ctx, `map_all('v >>> 1', this)`, []any{map[string]any{"v": 1.0}})
	require.ErrorIs(t, err, types.ErrCompile)
	te, _ := types.AsError(err)
	assert.Equal(t, "map_all", te.Function)

	_, err = ev.Eval(ctx, `map_all(1, this)`, []any{})
	require.ErrorIs(t, err, types.ErrTypeMismatch)

	assert.Equal(t, 0, ev.Depth())
}

func TestNativeDefs_RecursionLimit(t *testing.T) {
	t.Parallel()

	ev := evaluator.New(evaluator.WithMaxDepth(2))
	install(t, ev, mapAll())

	_, err := ev.Eval(context.Background(),
		`map_all('''map_all("map_all('this', [this])", [this])''', [this])`, 1.0)
	require.ErrorIs(t, err, types.ErrRecursionLimit)
	assert.Equal(t, 0, ev.Depth())

	got, err := ev.Eval(context.Background(), `map_all("map_all('this', [this])", [this])`, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{1.0}}, got)
}

func TestNativeDefs_Standard(t *testing.T) {
	t.Parallel()

	defs, err := functions.Descriptor{Name: "size", Category: functions.CategoryStandard}.NativeDefs()
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestCategories(t *testing.T) {
	t.Parallel()

	c, ok := functions.ParseCategory("hash")
	assert.True(t, ok)
	assert.Equal(t, functions.CategoryHash, c)
	_, ok = functions.ParseCategory("nope")
	assert.False(t, ok)
	assert.Contains(t, functions.Categories(), functions.CategoryExpression)
	assert.Equal(t, "null-on-error", functions.PolicyNullOnError.String())
}
