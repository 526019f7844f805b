package urlbuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/registry"
)

func newRegistry(descriptors ...*registry.Descriptor) *registry.Registry {
	r := registry.New()
	for _, d := range descriptors {
		r.Register(d)
	}
	return r
}

func TestBuildCombined(t *testing.T) {
	settings := config.Settings{
		URL:      "http://cdn.example/combo",
		BasePath: "modules/",
		Combine:  true,
	}
	r := newRegistry(
		&registry.Descriptor{Name: "m1"},
		&registry.Descriptor{Name: "m2"},
	)

	urls := Build(settings, r, []string{"m1", "m2"})
	require.Len(t, urls, 1)
	assert.Equal(t, "http://cdn.example/combo?modules/m1.js&modules/m2.js", urls[0])
}

func TestBuildSeparate(t *testing.T) {
	settings := config.Settings{
		URL:      "http://cdn.example/",
		BasePath: "modules/",
	}
	r := newRegistry(
		&registry.Descriptor{Name: "m1"},
		&registry.Descriptor{Name: "m2"},
	)

	urls := Build(settings, r, []string{"m1", "m2"})
	assert.Equal(t, []string{
		"http://cdn.example/modules/m1.js",
		"http://cdn.example/modules/m2.js",
	}, urls)
}

func TestBuildFullPathNeverBatched(t *testing.T) {
	settings := config.Settings{
		URL:      "http://cdn.example/combo",
		BasePath: "modules/",
		Combine:  true,
	}
	r := newRegistry(
		&registry.Descriptor{Name: "m1"},
		&registry.Descriptor{Name: "vendor", FullPath: "http://other.example/vendor.js"},
		&registry.Descriptor{Name: "m2"},
	)

	urls := Build(settings, r, []string{"m1", "vendor", "m2"})
	require.Len(t, urls, 2)
	assert.Contains(t, urls, "http://other.example/vendor.js")
	assert.Contains(t, urls, "http://cdn.example/combo?modules/m1.js&modules/m2.js")
}

func TestModulePathDefaults(t *testing.T) {
	settings := config.Settings{URL: "u/", BasePath: ""}
	r := newRegistry(
		&registry.Descriptor{Name: "plain"},
		&registry.Descriptor{Name: "already.js"},
		&registry.Descriptor{Name: "custom", Path: "override/custom-v2.js"},
	)

	urls := Build(settings, r, []string{"plain", "already.js", "custom"})
	assert.Equal(t, []string{
		"u/plain.js",
		"u/already.js",
		"u/override/custom-v2.js",
	}, urls)
}

func TestBuildMarksLoading(t *testing.T) {
	settings := config.Settings{URL: "u/"}
	d := &registry.Descriptor{Name: "m"}
	r := newRegistry(d)

	require.False(t, d.Loading())
	Build(settings, r, []string{"m"})
	assert.True(t, d.Loading())

	// Re-listing an already-loading module stays harmless.
	urls := Build(settings, r, []string{"m"})
	assert.Len(t, urls, 1)
}

func TestPlanDoesNotMarkLoading(t *testing.T) {
	settings := config.Settings{URL: "u/"}
	d := &registry.Descriptor{Name: "m"}
	r := newRegistry(d)

	urls := Plan(settings, r, []string{"m"})
	assert.Equal(t, []string{"u/m.js"}, urls)
	assert.False(t, d.Loading())
}

func TestBuildSplitsAtURLMaxLength(t *testing.T) {
	settings := config.Settings{
		URL:          "http://cdn.example/combo",
		BasePath:     "modules/",
		Combine:      true,
		URLMaxLength: 60,
	}
	r := newRegistry(
		&registry.Descriptor{Name: "first"},
		&registry.Descriptor{Name: "second"},
		&registry.Descriptor{Name: "third"},
	)

	urls := Build(settings, r, []string{"first", "second", "third"})
	require.Greater(t, len(urls), 1)
	for _, u := range urls {
		assert.LessOrEqual(t, len(u), settings.URLMaxLength)
		assert.True(t, strings.HasPrefix(u, "http://cdn.example/combo?"))
	}

	var joined []string
	for _, u := range urls {
		joined = append(joined, strings.Split(strings.TrimPrefix(u, "http://cdn.example/combo?"), "&")...)
	}
	assert.Equal(t, []string{"modules/first.js", "modules/second.js", "modules/third.js"}, joined)
}

func TestBuildOversizedModuleEmittedAlone(t *testing.T) {
	settings := config.Settings{
		URL:          "http://c/x",
		BasePath:     "",
		Combine:      true,
		URLMaxLength: 20,
	}
	r := newRegistry(
		&registry.Descriptor{Name: "a"},
		&registry.Descriptor{Name: "a-very-long-module-name"},
	)

	urls := Build(settings, r, []string{"a", "a-very-long-module-name"})
	require.Len(t, urls, 2)
	assert.Equal(t, "http://c/x?a.js", urls[0])
	assert.Equal(t, "http://c/x?a-very-long-module-name.js", urls[1])
}
