package resolver

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/registry"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func parseExpression(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "parse %q: %s", src, diags)
	return expr
}

func buildRegistry(modules map[string][]string) *registry.Registry {
	r := registry.New()
	for name, deps := range modules {
		r.Register(&registry.Descriptor{Name: name, Deps: deps})
	}
	return r
}

// assertDependencyFirst checks the core ordering property: every non-exports
// dependency of a module appears earlier in the output than the module itself.
func assertDependencyFirst(t *testing.T, r *registry.Registry, order []string) {
	t.Helper()
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	for _, name := range order {
		d, ok := r.Lookup(name)
		require.True(t, ok)
		for _, dep := range d.Deps {
			if dep == "exports" {
				continue
			}
			depPos, ok := position[dep]
			if !ok {
				continue // optional dependency, not in the registry
			}
			assert.Less(t, depPos, position[name], "%s must precede %s", dep, name)
		}
	}
}

func TestResolveDependencyFirst(t *testing.T) {
	r := buildRegistry(map[string][]string{
		"app":    {"ui", "net"},
		"ui":     {"base"},
		"net":    {"base"},
		"base":   nil,
		"unused": nil,
	})

	order, err := Resolve(testContext(), r, nil, []string{"app"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"app", "ui", "net", "base"}, order)
	assert.NotContains(t, order, "unused")
	assertDependencyFirst(t, r, order)
	assert.Equal(t, "app", order[len(order)-1])
	assert.Equal(t, "base", order[0])
}

func TestResolveIsDeterministic(t *testing.T) {
	r := buildRegistry(map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
		"d": nil,
	})

	first, err := Resolve(testContext(), r, nil, []string{"a"})
	require.NoError(t, err)
	second, err := Resolve(testContext(), r, nil, []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveDropsUnknownNames(t *testing.T) {
	r := buildRegistry(map[string][]string{"a": nil})

	order, err := Resolve(testContext(), r, nil, []string{"ghost", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, order)
}

func TestResolveSkipsUnknownDependencies(t *testing.T) {
	r := buildRegistry(map[string][]string{
		"a": {"optional-extra", "b"},
		"b": nil,
	})

	order, err := Resolve(testContext(), r, nil, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestResolveSkipsExports(t *testing.T) {
	r := buildRegistry(map[string][]string{
		"a": {"exports", "b"},
		"b": nil,
	})

	order, err := Resolve(testContext(), r, nil, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestResolveNoDuplicates(t *testing.T) {
	r := buildRegistry(map[string][]string{
		"a":      {"shared"},
		"b":      {"shared"},
		"shared": nil,
	})

	order, err := Resolve(testContext(), r, nil, []string{"a", "b", "shared"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "shared"}, order)
}

func TestResolveCycle(t *testing.T) {
	r := buildRegistry(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	})

	_, err := Resolve(testContext(), r, nil, []string{"a"})
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)

	t.Run("failed pass leaves no residue", func(t *testing.T) {
		// A fresh pass over an acyclic subset must behave as if the
		// failed pass never ran.
		r.Register(&registry.Descriptor{Name: "standalone"})
		order, err := Resolve(testContext(), r, nil, []string{"standalone"})
		require.NoError(t, err)
		assert.Equal(t, []string{"standalone"}, order)
	})

	t.Run("self dependency is a cycle", func(t *testing.T) {
		selfish := buildRegistry(map[string][]string{"loop": {"loop"}})
		_, err := Resolve(testContext(), selfish, nil, []string{"loop"})
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, "loop", cycle.Module)
	})
}

func TestConditionalActivation(t *testing.T) {
	t.Run("typed predicate true adds the module", func(t *testing.T) {
		r := registry.New()
		r.Register(&registry.Descriptor{Name: "a"})
		r.Register(&registry.Descriptor{
			Name:      "b",
			Condition: &config.Condition{Trigger: "a", Test: func() bool { return true }},
		})

		order, err := Resolve(testContext(), r, nil, []string{"a"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, order)
	})

	t.Run("typed predicate false leaves the module out", func(t *testing.T) {
		r := registry.New()
		r.Register(&registry.Descriptor{Name: "a"})
		r.Register(&registry.Descriptor{
			Name:      "b",
			Condition: &config.Condition{Trigger: "a", Test: func() bool { return false }},
		})

		order, err := Resolve(testContext(), r, nil, []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, order)
	})

	t.Run("trigger depending on the conditional orders it first", func(t *testing.T) {
		r := registry.New()
		r.Register(&registry.Descriptor{Name: "a", Deps: []string{"b"}})
		r.Register(&registry.Descriptor{
			Name:      "b",
			Condition: &config.Condition{Trigger: "a", Test: func() bool { return true }},
		})

		order, err := Resolve(testContext(), r, nil, []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, order)
	})

	t.Run("conditional chain is followed", func(t *testing.T) {
		// b activates on a, and c activates on b.
		r := registry.New()
		r.Register(&registry.Descriptor{Name: "a"})
		r.Register(&registry.Descriptor{
			Name:      "b",
			Condition: &config.Condition{Trigger: "a", Test: func() bool { return true }},
		})
		r.Register(&registry.Descriptor{
			Name:      "c",
			Condition: &config.Condition{Trigger: "b", Test: func() bool { return true }},
		})

		order, err := Resolve(testContext(), r, nil, []string{"a"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, order)
	})

	t.Run("predicate-free condition always activates", func(t *testing.T) {
		r := registry.New()
		r.Register(&registry.Descriptor{Name: "a"})
		r.Register(&registry.Descriptor{Name: "b", Condition: &config.Condition{Trigger: "a"}})

		order, err := Resolve(testContext(), r, nil, []string{"a"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, order)
	})
}

func TestConditionalPredicateProperties(t *testing.T) {
	r := registry.New()
	r.Register(&registry.Descriptor{Name: "a"})
	r.Register(&registry.Descriptor{
		Name: "mobile-shim",
		Condition: &config.Condition{
			Trigger: "a",
			When:    parseExpression(t, `props.mobile && props.locale == "en"`),
		},
	})

	t.Run("holds", func(t *testing.T) {
		props := map[string]cty.Value{"mobile": cty.True, "locale": cty.StringVal("en")}
		order, err := Resolve(testContext(), r, props, []string{"a"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "mobile-shim"}, order)
	})

	t.Run("does not hold", func(t *testing.T) {
		props := map[string]cty.Value{"mobile": cty.False, "locale": cty.StringVal("en")}
		order, err := Resolve(testContext(), r, props, []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, order)
	})

	t.Run("missing property fails the pass", func(t *testing.T) {
		_, err := Resolve(testContext(), r, map[string]cty.Value{"mobile": cty.True}, []string{"a"})
		var condErr *ConditionError
		require.ErrorAs(t, err, &condErr)
		assert.Equal(t, "mobile-shim", condErr.Module)
	})
}
