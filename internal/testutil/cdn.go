package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/edalgrin/amdloader/internal/fetch"
	"github.com/edalgrin/amdloader/internal/loader"
	"github.com/edalgrin/amdloader/internal/registry"
)

// cdnModule is one module a CDNStub can serve.
type cdnModule struct {
	deps    []string
	factory registry.Factory
}

// CDNStub stands in for the remote code server in integration tests. Its
// fetcher echoes the requested URL as the resource body and records every
// fetch; its evaluator defines each served module whose fetch path appears
// in that body, mimicking a script that calls define as it executes.
type CDNStub struct {
	mu      sync.Mutex
	loader  *loader.Loader
	defs    map[string]cdnModule
	fetched []string
}

// NewCDNStub creates an empty stub. Call Serve to add modules and Attach
// once the loader exists.
func NewCDNStub() *CDNStub {
	return &CDNStub{defs: make(map[string]cdnModule)}
}

// Serve registers a module the stub will define when its path is fetched.
func (c *CDNStub) Serve(name string, deps []string, factory registry.Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[name] = cdnModule{deps: deps, factory: factory}
}

// Attach binds the stub's evaluator to the given loader. The evaluator is
// handed to the loader before the loader exists, so this closes the loop.
func (c *CDNStub) Attach(l *loader.Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loader = l
}

// Fetched returns the URLs fetched so far, in arrival order.
func (c *CDNStub) Fetched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.fetched...)
}

// Options returns the loader options that route fetching and evaluation
// through the stub.
func (c *CDNStub) Options() []loader.Option {
	return []loader.Option{
		loader.WithFetcher(c.fetcher()),
		loader.WithEvaluator(c.evaluator()),
	}
}

func (c *CDNStub) fetcher() fetch.Func {
	return func(ctx context.Context, url string) ([]byte, error) {
		c.mu.Lock()
		c.fetched = append(c.fetched, url)
		c.mu.Unlock()
		return []byte(url), nil
	}
}

func (c *CDNStub) evaluator() loader.Evaluator {
	return func(ctx context.Context, src []byte) error {
		c.mu.Lock()
		l := c.loader
		defs := make(map[string]cdnModule, len(c.defs))
		for name, def := range c.defs {
			defs[name] = def
		}
		c.mu.Unlock()

		for name, def := range defs {
			if !strings.Contains(string(src), name+".js") {
				continue
			}
			if _, err := l.Define(ctx, name, def.deps, def.factory); err != nil {
				return err
			}
		}
		return nil
	}
}
