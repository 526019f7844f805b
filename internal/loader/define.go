package loader

import (
	"context"
	"fmt"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/future"
	"github.com/edalgrin/amdloader/internal/modpath"
	"github.com/edalgrin/amdloader/internal/registry"
)

// DefineOption sets optional descriptor fields during Define.
type DefineOption func(*registry.Descriptor)

// WithPath overrides the module's relative fetch path.
func WithPath(path string) DefineOption {
	return func(d *registry.Descriptor) { d.Path = path }
}

// WithFullPath pins the module to a direct fetch URL, excluding it from
// batching.
func WithFullPath(fullPath string) DefineOption {
	return func(d *registry.Descriptor) { d.FullPath = fullPath }
}

// WithCondition attaches a conditional-activation rule to the module.
func WithCondition(c *config.Condition) DefineOption {
	return func(d *registry.Descriptor) { d.Condition = c }
}

// Define declares a module: its name, its dependencies (relative
// identifiers are resolved against the module's own name), and the
// factory that produces its implementation. Every non-exports dependency
// must already be known to the registry.
//
// When all dependencies are already implemented the factory runs
// synchronously, within this call. Otherwise registration is deferred: a
// background waiter composes the dependencies' completions and runs the
// factory once the last one settles. The returned completion settles with
// the module's implementation either way.
func (l *Loader) Define(ctx context.Context, name string, deps []string, factory registry.Factory, opts ...DefineOption) (*future.Completion[any], error) {
	logger := ctxlog.FromContext(ctx)

	resolved := make([]string, len(deps))
	for i, dep := range deps {
		resolved[i] = modpath.Resolve(name, dep)
	}
	for _, dep := range resolved {
		if dep == modpath.Exports {
			continue
		}
		if _, ok := l.reg.Lookup(dep); !ok {
			return nil, &UnknownDependencyError{Module: name, Dependency: dep}
		}
	}

	d := &registry.Descriptor{
		Name:    name,
		Deps:    resolved,
		Factory: factory,
	}
	for _, opt := range opts {
		opt(d)
	}
	l.reg.Register(d)
	done := d.Completion()

	if l.depsImplemented(d) {
		logger.Debug("Registering module synchronously.", "module", name)
		if err := l.register(ctx, d); err != nil {
			_ = done.Reject(err)
			return nil, err
		}
		return done, nil
	}

	logger.Debug("Deferring module registration until dependencies implement.", "module", name)
	// The waiter is tied to the loader's lifetime, not the caller's: a
	// Define issued during a fetch must survive that fetch's context.
	go l.waitAndRegister(l.baseCtx, d)
	return done, nil
}

// register runs the factory with the realized dependency implementations
// in declared order and records the result. The exports sentinel, if
// present, is passed as a fresh placeholder map; an explicit non-nil
// factory return wins over mutations of that placeholder.
func (l *Loader) register(ctx context.Context, d *registry.Descriptor) error {
	logger := ctxlog.FromContext(ctx)

	args := make([]any, len(d.Deps))
	var exportsObj map[string]any
	for i, dep := range d.Deps {
		if dep == modpath.Exports {
			if exportsObj == nil {
				exportsObj = make(map[string]any)
			}
			args[i] = exportsObj
			continue
		}
		dd, ok := l.reg.Lookup(dep)
		if !ok {
			return &UnknownDependencyError{Module: d.Name, Dependency: dep}
		}
		impl, implemented := dd.Implementation()
		if !implemented {
			return fmt.Errorf("dependency %q of module %q is not implemented", dep, d.Name)
		}
		args[i] = impl
	}

	var impl any
	if d.Factory != nil {
		ret, err := d.Factory(args...)
		if err != nil {
			return fmt.Errorf("factory of module %q: %w", d.Name, err)
		}
		impl = ret
	}
	if impl == nil && exportsObj != nil {
		impl = exportsObj
	}

	if err := d.SetImplementation(impl); err != nil {
		return err
	}
	logger.Debug("Module implemented.", "module", d.Name)
	return nil
}

// waitAndRegister blocks on the completions of the descriptor's
// dependencies and then registers it. Failures settle the descriptor's
// completion as rejected so requesters observe them.
func (l *Loader) waitAndRegister(ctx context.Context, d *registry.Descriptor) {
	logger := ctxlog.FromContext(ctx)

	var waits []*future.Completion[any]
	for _, dep := range d.Deps {
		if dep == modpath.Exports {
			continue
		}
		if dd, ok := l.reg.Lookup(dep); ok {
			waits = append(waits, dd.Completion())
		}
	}

	if _, err := future.All(ctx, waits...); err != nil {
		logger.Warn("Abandoning deferred registration.", "module", d.Name, "error", err)
		_ = d.Completion().Reject(fmt.Errorf("waiting for dependencies of module %q: %w", d.Name, err))
		return
	}
	if err := l.register(ctx, d); err != nil {
		logger.Error("Deferred registration failed.", "module", d.Name, "error", err)
		_ = d.Completion().Reject(err)
	}
}
