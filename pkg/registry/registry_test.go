package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/ext"
	"github.com/sandrolain/celfx/pkg/ext/extutility"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/registry"
	"github.com/sandrolain/celfx/pkg/registry/mocks"
	"github.com/sandrolain/celfx/pkg/types"
)

func names(infos []registry.Info) []string {
	out := make([]string, len(infos))
	for i, in := range infos {
		out[i] = in.Name
	}
	return out
}

func defNames(defs []*evaluator.FunctionDef) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func echo(name string, cat functions.Category, aliases ...string) functions.Descriptor {
	return functions.Descriptor{
		Name:      name,
		Category:  cat,
		Signature: "<x:x>",
		Aliases:   aliases,
		Leaf:      func(args ...any) (any, error) { return args[0], nil },
	}
}

func TestNew_EverythingDisabled(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	assert.Zero(t, reg.Len())

	all := reg.Functions()
	assert.Len(t, all, len(ext.Catalog()))
	assert.True(t, sort.StringsAreSorted(names(all)))
	for _, in := range all {
		assert.False(t, in.Enabled, in.Name)
	}
	assert.Equal(t, functions.Categories(), reg.Categories())
}

func TestRegisterCategory(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.RegisterCategory(functions.CategoryString))
	require.NoError(t, reg.RegisterCategory(functions.CategoryString))

	inCat := reg.FunctionsInCategory(functions.CategoryString)
	require.NotEmpty(t, inCat)
	for _, in := range inCat {
		assert.True(t, in.Enabled, in.Name)
		assert.Equal(t, functions.KindLeaf, in.Kind)
	}
	assert.Equal(t, len(inCat), reg.Len())
	assert.False(t, reg.IsEnabled("sha256"))
}

func TestRegisterCategory_Unknown(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.RegisterCategory(functions.CategoryMath))
	before := reg.Len()

	err := reg.RegisterCategory("astrology")
	require.ErrorIs(t, err, types.ErrUnknownCategory)
	assert.Equal(t, before, reg.Len())
}

func TestDisableFunction(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.RegisterAll()
	total := reg.Len()

	require.NoError(t, reg.DisableFunction("upper"))
	require.NoError(t, reg.DisableFunction("upper"))
	assert.False(t, reg.IsEnabled("upper"))
	assert.Equal(t, total-1, reg.Len())

	in, ok := reg.Get("upper")
	require.True(t, ok)
	assert.False(t, in.Enabled)

	require.NoError(t, reg.EnableFunction("upper"))
	assert.True(t, reg.IsEnabled("upper"))

	err := reg.DisableFunction("nope")
	require.ErrorIs(t, err, types.ErrUnknownFunction)
	te, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "nope", te.Function)
}

func TestStandardFunctions_StateOnly(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.RegisterCategory(functions.CategoryStandard))
	require.NoError(t, reg.DisableFunction("size"))

	in, ok := reg.Get("size")
	require.True(t, ok)
	assert.True(t, in.Standard)
	assert.False(t, in.Enabled)

	// disabling a host built-in does not remove it from the evaluator
	ev := evaluator.New()
	require.NoError(t, reg.Apply(ev))
	got, err := ev.Eval(context.Background(), `size([1, 2])`, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestLookup_Aliases(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	_, ok := reg.Get("some")
	assert.False(t, ok)

	in, ok := reg.Lookup("some")
	require.True(t, ok)
	assert.Equal(t, "any_expr", in.Name)
	assert.Contains(t, in.Aliases, "some")

	aliases := reg.Aliases()
	assert.Equal(t, "any_expr", aliases["some"])
	assert.Equal(t, "all_expr", aliases["every"])
	assert.Equal(t, "reduce_expr", aliases["fold"])

	require.NoError(t, reg.EnableFunction("every"))
	assert.True(t, reg.IsEnabled("all_expr"))
}

func TestFunctionsWithFeature(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	assert.Equal(t, []string{"get_env"}, names(reg.FunctionsWithFeature(extutility.FeatureEnv)))
	assert.Empty(t, reg.FunctionsWithFeature("teleport"))
}

func TestInfo_Fields(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	in, ok := reg.Get("pad_left")
	require.True(t, ok)
	assert.Equal(t, functions.CategoryString, in.Category)
	assert.NotEmpty(t, in.Signature)
	assert.NotEmpty(t, in.Description)
	assert.NotEmpty(t, in.Example)
	assert.Equal(t, 2, in.MinArgs)
	assert.Equal(t, 3, in.MaxArgs)
}

func TestNewWithCatalog_Collisions(t *testing.T) {
	t.Parallel()

	_, err := registry.NewWithCatalog([]functions.Descriptor{
		echo("a", functions.CategoryUtility),
		echo("a", functions.CategoryUtility),
	})
	require.ErrorIs(t, err, types.ErrConfig)

	_, err = registry.NewWithCatalog([]functions.Descriptor{
		echo("a", functions.CategoryUtility, "b"),
		echo("b", functions.CategoryUtility),
	})
	require.ErrorIs(t, err, types.ErrConfig)

	_, err = registry.NewWithCatalog([]functions.Descriptor{
		echo("a", functions.CategoryUtility, "x"),
		echo("b", functions.CategoryUtility, "x"),
	})
	require.ErrorIs(t, err, types.ErrConfig)

	_, err = registry.NewWithCatalog([]functions.Descriptor{echo("a", "bogus")})
	require.ErrorIs(t, err, types.ErrUnknownCategory)
}

func TestApply_SingleBatch(t *testing.T) {
	t.Parallel()

	reg, err := registry.NewWithCatalog([]functions.Descriptor{
		{Name: "size", Category: functions.CategoryStandard, Signature: "<x:n>"},
		echo("one", functions.CategoryUtility, "uno"),
		echo("two", functions.CategoryUtility),
		echo("three", functions.CategoryString),
	})
	require.NoError(t, err)
	require.NoError(t, reg.RegisterCategory(functions.CategoryUtility))
	require.NoError(t, reg.RegisterCategory(functions.CategoryStandard))

	ctrl := gomock.NewController(t)
	inst := mocks.NewMockInstaller(ctrl)
	gomock.InOrder(
		inst.EXPECT().Uninstall("three").Return(nil),
		inst.EXPECT().Install(gomock.Any()).DoAndReturn(func(defs ...*evaluator.FunctionDef) error {
			assert.ElementsMatch(t, []string{"one", "uno", "two"}, defNames(defs))
			for _, d := range defs {
				assert.Equal(t, 1, d.MinArgs)
				assert.Equal(t, 1, d.MaxArgs)
			}
			return nil
		}).Times(1),
	)

	require.NoError(t, reg.Apply(inst))
	assert.True(t, reg.IsEnabled("one"), "apply must not change registry state")
}

func TestApply_NothingEnabled(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.RegisterCategory(functions.CategoryStandard))

	ctrl := gomock.NewController(t)
	inst := mocks.NewMockInstaller(ctrl)
	// everything is removed, nothing installed
	inst.EXPECT().Uninstall(gomock.Any()).DoAndReturn(func(names ...string) error {
		assert.Contains(t, names, "upper")
		assert.Contains(t, names, "get_env")
		assert.NotContains(t, names, "size")
		return nil
	}).Times(1)
	require.NoError(t, reg.Apply(inst))
}

func TestApply_InstallError(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.EnableFunction("upper"))

	boom := errors.New("boom")
	ctrl := gomock.NewController(t)
	inst := mocks.NewMockInstaller(ctrl)
	inst.EXPECT().Uninstall(gomock.Any()).Return(nil)
	inst.EXPECT().Install(gomock.Any()).Return(boom)

	require.ErrorIs(t, reg.Apply(inst), boom)

	inst = mocks.NewMockInstaller(ctrl)
	inst.EXPECT().Uninstall(gomock.Any()).Return(boom)
	require.ErrorIs(t, reg.Apply(inst), boom)
}

func TestApply_Snapshot(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.RegisterCategory(functions.CategoryString))

	ev := evaluator.New()
	require.NoError(t, reg.Apply(ev))
	require.NoError(t, reg.DisableFunction("upper"))

	got, err := ev.Eval(context.Background(), `upper('x')`, nil)
	require.NoError(t, err)
	assert.Equal(t, "X", got)
}

func TestApply_ReapplyRemovesDisabled(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.RegisterAll()

	ev := evaluator.New()
	require.NoError(t, ev.InstallFunction("custom", 0, 0, func(*evaluator.Evaluator, []any) (any, error) {
		return "kept", nil
	}))
	require.NoError(t, reg.Apply(ev))
	require.True(t, ev.HasFunction("upper"))

	require.NoError(t, reg.DisableFunction("upper"))
	require.NoError(t, reg.DisableFunction("get_env"))
	require.NoError(t, reg.Apply(ev))

	for _, src := range []string{`upper('x')`, `get_env('HOME')`} {
		_, err := ev.Eval(context.Background(), src, nil)
		require.ErrorIs(t, err, types.ErrUnknownFunction, src)
	}
	assert.False(t, ev.HasFunction("upper"))

	got, err := ev.Eval(context.Background(), `lower('X')`, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	// functions installed outside the registry survive
	got, err = ev.Eval(context.Background(), `custom()`, nil)
	require.NoError(t, err)
	assert.Equal(t, "kept", got)

	require.NoError(t, reg.EnableFunction("upper"))
	require.NoError(t, reg.Apply(ev))
	got, err = ev.Eval(context.Background(), `upper('x')`, nil)
	require.NoError(t, err)
	assert.Equal(t, "X", got)
}

func TestScenario_StringOnlyUpperDisabled(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.RegisterCategory(functions.CategoryString))
	require.NoError(t, reg.DisableFunction("upper"))

	ev := evaluator.New()
	require.NoError(t, reg.Apply(ev))

	_, err := ev.Compile(`upper('x')`)
	require.ErrorIs(t, err, types.ErrUnknownFunction)
	te, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "upper", te.Function)

	got, err := ev.Eval(context.Background(), `lower('X')`, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	_, err = ev.Compile(`sha256('x')`)
	require.ErrorIs(t, err, types.ErrUnknownFunction)
}

func TestConfig_Parse(t *testing.T) {
	t.Parallel()

	cfg, err := registry.ParseConfig([]byte(`
categories: [string, math]
enabled: [sha256, some]
disabled: [upper]
`))
	require.NoError(t, err)
	assert.Equal(t, &registry.Config{
		Categories: []string{"string", "math"},
		Enabled:    []string{"sha256", "some"},
		Disabled:   []string{"upper"},
	}, cfg)

	reg, err := registry.NewFromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, reg.IsEnabled("lower"))
	assert.True(t, reg.IsEnabled("round"))
	assert.True(t, reg.IsEnabled("sha256"))
	assert.True(t, reg.IsEnabled("any_expr"))
	assert.False(t, reg.IsEnabled("upper"))
	assert.False(t, reg.IsEnabled("md5"))
}

func TestConfig_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := registry.ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, &registry.Config{}, cfg)
}

func TestConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := registry.ParseConfig([]byte("colour: red\n"))
	require.ErrorIs(t, err, types.ErrConfig)

	_, err = registry.ParseConfig([]byte("categories: {"))
	require.ErrorIs(t, err, types.ErrConfig)

	reg := registry.New()
	require.NoError(t, reg.RegisterCategory(functions.CategoryHash))
	before := reg.Len()

	err = reg.Configure(&registry.Config{All: true, Disabled: []string{"nope"}})
	require.ErrorIs(t, err, types.ErrUnknownFunction)
	assert.Equal(t, before, reg.Len())

	err = reg.Configure(&registry.Config{Categories: []string{"string", "astrology"}})
	require.ErrorIs(t, err, types.ErrUnknownCategory)
	assert.Equal(t, before, reg.Len())
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "functions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("all: true\ndisabled: [get_env]\n"), 0o600))

	cfg, err := registry.LoadConfig(path)
	require.NoError(t, err)
	reg, err := registry.NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, len(ext.Catalog())-1, reg.Len())
	assert.False(t, reg.IsEnabled("get_env"))

	_, err = registry.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, types.ErrConfig)
}
