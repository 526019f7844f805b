package loader

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/future"
	"github.com/edalgrin/amdloader/internal/resolver"
	"github.com/edalgrin/amdloader/internal/urlbuilder"
)

// Request resolves the requested module names into their full dependency
// closure, fetches whatever is neither implemented nor already loading,
// waits for every module in the closure to become implemented, and
// returns the implementations of the requested names in request order.
// Names absent from the registry are dropped as optional and produce no
// slot in the result.
//
// A module is fetched at most once across overlapping concurrent
// requests. A fetch failure rolls back the load flags this request
// claimed and fails only this request; modules other requests already
// implemented are unaffected.
func (l *Loader) Request(ctx context.Context, names []string) ([]any, error) {
	logger := ctxlog.FromContext(ctx)

	var known []string
	for _, name := range names {
		if _, ok := l.reg.Lookup(name); !ok {
			logger.Debug("Dropping unknown module from request.", "module", name)
			continue
		}
		known = append(known, name)
	}

	ordered, err := resolver.Resolve(ctx, l.reg, l.settings.Properties, known)
	if err != nil {
		return nil, err
	}
	logger.Debug("Request expanded.", "requested", len(known), "expanded", len(ordered))

	// Track pending and claimed modules by name. The evaluator's Define
	// replaces descriptors mid-fetch, so a pointer captured here can go
	// stale; every later step re-reads the registry.
	var pending []string
	var claimed []string
	for _, name := range ordered {
		d, ok := l.reg.Lookup(name)
		if !ok {
			continue
		}
		if d.Implemented() {
			continue
		}
		pending = append(pending, name)
		if d.MarkLoading() {
			claimed = append(claimed, name)
		}
	}

	if len(claimed) > 0 {
		urls := urlbuilder.Build(l.settings, l.reg, claimed)
		logger.Debug("Fetching module resources.", "modules", len(claimed), "urls", len(urls))

		g, gctx := errgroup.WithContext(ctx)
		for _, url := range urls {
			url := url
			g.Go(func() error {
				return l.fetchURL(gctx, url)
			})
		}
		if err := g.Wait(); err != nil {
			for _, name := range claimed {
				if d, ok := l.reg.Lookup(name); ok {
					d.ClearLoading()
				}
			}
			return nil, err
		}
	}

	var waits []*future.Completion[any]
	for _, name := range pending {
		d, ok := l.reg.Lookup(name)
		if !ok {
			continue
		}
		if !d.Implemented() {
			waits = append(waits, d.Completion())
		}
	}
	if len(waits) > 0 {
		logger.Debug("Waiting for modules to implement.", "count", len(waits))
		if _, err := future.All(ctx, waits...); err != nil {
			return nil, err
		}
	}

	impls := make([]any, len(known))
	for i, name := range known {
		d, ok := l.reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("module %q disappeared from the registry", name)
		}
		impl, implemented := d.Implementation()
		if !implemented {
			return nil, fmt.Errorf("module %q did not implement", name)
		}
		impls[i] = impl
	}
	return impls, nil
}

// Plan reports the expanded dependency order for the given names and the
// fetch URLs a Request would issue for the modules still lacking both an
// implementation and an in-flight load. It initiates nothing and marks
// nothing.
func (l *Loader) Plan(ctx context.Context, names []string) (order []string, urls []string, err error) {
	var known []string
	for _, name := range names {
		if _, ok := l.reg.Lookup(name); ok {
			known = append(known, name)
		}
	}

	order, err = resolver.Resolve(ctx, l.reg, l.settings.Properties, known)
	if err != nil {
		return nil, nil, err
	}

	var toFetch []string
	for _, name := range order {
		d, ok := l.reg.Lookup(name)
		if !ok || d.Implemented() || d.Loading() {
			continue
		}
		toFetch = append(toFetch, name)
	}
	return order, urlbuilder.Plan(l.settings, l.reg, toFetch), nil
}

// fetchURL fetches one resource and applies the evaluator. Concurrent
// callers of the same URL share a single fetch.
func (l *Loader) fetchURL(ctx context.Context, url string) error {
	_, err, _ := l.sf.Do(url, func() (any, error) {
		src, err := l.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if l.eval == nil {
			return nil, nil
		}
		if err := l.eval(ctx, src); err != nil {
			return nil, fmt.Errorf("evaluating resource %s: %w", url, err)
		}
		return nil, nil
	})
	return err
}

// Require is the convenience boundary over Request: a variadic list of
// module names (strings, or one []string) with optional trailing
// callbacks, a func(...any) receiving the implementations on success and
// a func(error) on failure. The work runs on its own goroutine; neither
// callback is ever invoked inline.
func (l *Loader) Require(args ...any) {
	var names []string
	var onSuccess func(...any)
	var onFailure func(error)

	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			names = append(names, v)
		case []string:
			names = append(names, v...)
		case func(...any):
			onSuccess = v
		case func(error):
			onFailure = v
		}
	}

	go func() {
		impls, err := l.Request(l.baseCtx, names)
		if err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(impls...)
		}
	}()
}
