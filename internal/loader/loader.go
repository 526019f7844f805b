package loader

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/fetch"
	"github.com/edalgrin/amdloader/internal/modpath"
	"github.com/edalgrin/amdloader/internal/registry"
)

// UnknownDependencyError reports a declared module listing a dependency
// that is absent from the registry. Unlike unknown names in a request,
// which are dropped as optional, this is fatal at declare time.
type UnknownDependencyError struct {
	Module     string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("module %q depends on unknown module %q", e.Module, e.Dependency)
}

// Evaluator applies a fetched code resource. The embedder's evaluation is
// expected to call Define for the modules the resource carries; a nil
// evaluator discards the fetched bytes, which is only useful for plan-style
// tooling.
type Evaluator func(ctx context.Context, src []byte) error

// Loader is the module runtime for one configuration. Each Loader owns
// its registry, so independent loader instances never share state.
type Loader struct {
	settings config.Settings
	reg      *registry.Registry
	fetcher  fetch.Fetcher
	eval     Evaluator

	// baseCtx carries the logger for work not tied to a caller's context,
	// such as Require goroutines and deferred registrations.
	baseCtx context.Context

	// sf collapses concurrent fetches of the same URL into one.
	sf singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

// WithEvaluator sets the evaluator applied to every fetched resource.
func WithEvaluator(e Evaluator) Option {
	return func(l *Loader) { l.eval = e }
}

// New builds a Loader from a configuration model. The context must carry
// a logger (see ctxlog); it is retained for background work.
func New(ctx context.Context, model *config.Model, opts ...Option) *Loader {
	model.Normalize()
	l := &Loader{
		settings: model.Settings,
		reg:      registry.FromModel(model),
		fetcher:  fetch.NewHTTP(),
		baseCtx:  ctx,
	}
	for _, opt := range opts {
		opt(l)
	}
	ctxlog.FromContext(ctx).Debug("Loader initialized.", "modules", l.reg.Len())
	return l
}

// Registry exposes the loader's registry, mainly for inspection tooling.
func (l *Loader) Registry() *registry.Registry {
	return l.reg
}

// Settings returns the loader's global configuration values.
func (l *Loader) Settings() config.Settings {
	return l.settings
}

// depsImplemented reports whether every non-exports dependency of the
// descriptor has an implementation.
func (l *Loader) depsImplemented(d *registry.Descriptor) bool {
	for _, dep := range d.Deps {
		if dep == modpath.Exports {
			continue
		}
		dd, ok := l.reg.Lookup(dep)
		if !ok || !dd.Implemented() {
			return false
		}
	}
	return true
}
