package registry

import (
	"sync"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/modpath"
)

// Registry owns the module descriptors and the conditional-module index
// for one loader instance. It is always constructed explicitly and passed
// where needed; there is no process-wide registry.
type Registry struct {
	mu        sync.RWMutex
	modules   map[string]*Descriptor
	triggered map[string][]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		modules:   make(map[string]*Descriptor),
		triggered: make(map[string][]string),
	}
}

// FromModel builds a Registry from a loaded configuration model,
// registering every declared module. Registration never validates
// cross-references, so the order of entries in the model is irrelevant.
func FromModel(model *config.Model) *Registry {
	r := New()
	for _, m := range model.Modules {
		r.Register(&Descriptor{
			Name:      m.Name,
			Deps:      m.Deps,
			Path:      m.Path,
			FullPath:  m.FullPath,
			Condition: m.Condition,
		})
	}
	return r
}

// Register inserts a descriptor, rewriting its dependencies to absolute
// form with the module's own name as referrer and indexing its condition
// trigger, if any. Re-registering a name replaces the descriptor but both
// descriptors share one completion from that point on, so a waiter holding
// either pointer still observes the implementation when it lands.
// Descriptors are never deleted.
func (r *Registry) Register(d *Descriptor) {
	resolved := make([]string, len(d.Deps))
	for i, dep := range d.Deps {
		resolved[i] = modpath.Resolve(d.Name, dep)
	}
	d.Deps = resolved

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.modules[d.Name]; ok {
		// Materialize the old descriptor's completion so a Completion()
		// call on a stale pointer after the swap joins the shared one
		// instead of creating an orphan nothing resolves.
		done := prev.Completion()
		d.mu.Lock()
		d.done = done
		if prev.Loading() {
			d.loading = true
		}
		d.mu.Unlock()
	}
	r.modules[d.Name] = d

	if d.Condition != nil && d.Condition.Trigger != "" {
		r.indexTrigger(d.Condition.Trigger, d.Name)
	}
}

// indexTrigger appends name to the trigger's dependent list, preserving
// insertion order and dropping duplicates. Caller holds r.mu.
func (r *Registry) indexTrigger(trigger, name string) {
	for _, existing := range r.triggered[trigger] {
		if existing == name {
			return
		}
	}
	r.triggered[trigger] = append(r.triggered[trigger], name)
}

// Lookup finds a descriptor by module name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.modules[name]
	return d, ok
}

// Triggered returns the names of modules whose condition names the given
// trigger, in the order their declarations were registered.
func (r *Registry) Triggered(trigger string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.triggered[trigger]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
