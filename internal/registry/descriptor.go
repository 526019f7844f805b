package registry

import (
	"fmt"
	"sync"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/future"
)

// Factory produces a module's implementation from the realized
// implementations of its dependencies, in declared order. A dependency
// declared as the "exports" sentinel arrives as a fresh map[string]any
// placeholder the factory may mutate.
type Factory func(deps ...any) (any, error)

// Descriptor is the runtime record for one declared or referenced module.
// Identity fields are fixed at registration time; lifecycle state
// (implementation, load flag, completion) is guarded by the descriptor's
// own mutex so overlapping requests can observe it safely.
type Descriptor struct {
	Name      string
	Deps      []string
	Path      string
	FullPath  string
	Factory   Factory
	Condition *config.Condition

	mu          sync.Mutex
	implemented bool
	impl        any
	loading     bool
	done        *future.Completion[any]
}

// Implemented reports whether the module's factory has run.
func (d *Descriptor) Implemented() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.implemented
}

// Implementation returns the module's implementation value. ok is false
// until the factory has run; a nil implementation from a factory that
// returned nothing is still reported as implemented.
func (d *Descriptor) Implementation() (impl any, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.impl, d.implemented
}

// SetImplementation records the implementation value and resolves the
// descriptor's completion. The transition happens at most once; a second
// call is an error.
func (d *Descriptor) SetImplementation(impl any) error {
	d.mu.Lock()
	if d.implemented {
		d.mu.Unlock()
		return fmt.Errorf("module %q is already implemented", d.Name)
	}
	d.impl = impl
	d.implemented = true
	done := d.done
	d.mu.Unlock()

	if done != nil {
		return done.Resolve(impl)
	}
	return nil
}

// Completion returns the single-shot completion that settles when the
// module becomes implemented, creating it lazily. A completion requested
// after implementation is returned already settled.
func (d *Descriptor) Completion() *future.Completion[any] {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done == nil {
		d.done = future.New[any]()
		if d.implemented {
			_ = d.done.Resolve(d.impl)
		}
	}
	return d.done
}

// MarkLoading flags that a fetch has been initiated for this module. It
// reports whether this call performed the transition, so concurrent
// requests claim a module's fetch at most once.
func (d *Descriptor) MarkLoading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loading {
		return false
	}
	d.loading = true
	return true
}

// Loading reports whether a fetch is in flight for this module.
func (d *Descriptor) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// ClearLoading rolls the load flag back after a failed fetch so a later
// request may try again.
func (d *Descriptor) ClearLoading() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
}
