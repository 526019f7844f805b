package resolver

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/modpath"
	"github.com/edalgrin/amdloader/internal/registry"
)

// CycleError indicates the configuration reachable from a request does not
// form a directed acyclic graph.
type CycleError struct {
	// Module is the first module found on its own dependency path.
	Module string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving module %q", e.Module)
}

// ConditionError indicates a conditional-module predicate could not be
// evaluated during a pass.
type ConditionError struct {
	Module  string
	Trigger string
	Err     error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("evaluating condition of module %q (trigger %q): %v", e.Module, e.Trigger, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

type visitState int

const (
	unvisited visitState = iota
	inProgress
	visited
)

// pass holds the traversal state for a single resolution pass.
type pass struct {
	reg   *registry.Registry
	props map[string]cty.Value

	state       map[string]visitState
	queued      map[string]bool
	condChecked map[string]bool
	queue       []string
	order       []string
}

// Resolve expands the requested module names into the full ordered set of
// modules that must be available, dependency-first and duplicate-free,
// including every conditionally-triggered module reachable from the
// request. Requested names absent from the registry are dropped, not
// errors; optional dependencies work the same way. Two consecutive calls
// with the same registry contents and request yield identical output.
func Resolve(ctx context.Context, reg *registry.Registry, props map[string]cty.Value, requested []string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	p := &pass{
		reg:         reg,
		props:       props,
		state:       make(map[string]visitState),
		queued:      make(map[string]bool),
		condChecked: make(map[string]bool),
	}

	for _, name := range requested {
		if _, ok := reg.Lookup(name); !ok {
			logger.Debug("Dropping unknown module from request.", "module", name)
			continue
		}
		p.enqueue(name)
	}

	// Conditionally-activated modules append to the queue mid-drain, so
	// the loop re-reads the length every iteration.
	for i := 0; i < len(p.queue); i++ {
		d, ok := reg.Lookup(p.queue[i])
		if !ok {
			continue
		}
		if err := p.visit(d); err != nil {
			return nil, err
		}
	}

	logger.Debug("Resolution pass complete.", "requested", len(requested), "resolved", len(p.order))
	return p.order, nil
}

func (p *pass) enqueue(name string) {
	if p.queued[name] {
		return
	}
	p.queued[name] = true
	p.queue = append(p.queue, name)
}

// visit runs the depth-first visitation for one descriptor. The post-order
// append yields the dependency-first result directly: a module is emitted
// only after all of its dependencies are emitted.
func (p *pass) visit(d *registry.Descriptor) error {
	if p.state[d.Name] == inProgress {
		return &CycleError{Module: d.Name}
	}

	if err := p.activateConditionals(d.Name); err != nil {
		return err
	}

	if p.state[d.Name] == visited {
		return nil
	}

	p.state[d.Name] = inProgress
	for _, dep := range d.Deps {
		if dep == modpath.Exports {
			continue
		}
		dd, ok := p.reg.Lookup(dep)
		if !ok {
			continue
		}
		if err := p.visit(dd); err != nil {
			return err
		}
	}
	p.state[d.Name] = visited
	p.order = append(p.order, d.Name)
	return nil
}

// activateConditionals queues every module triggered by the given name
// whose predicate holds. It runs exactly once per descriptor per pass, and
// it queues rather than recurses so a conditional triggered by a module
// visited earlier in the pass is still picked up by the outer drain loop.
func (p *pass) activateConditionals(name string) error {
	if p.condChecked[name] {
		return nil
	}
	p.condChecked[name] = true

	for _, depName := range p.reg.Triggered(name) {
		if p.queued[depName] {
			continue
		}
		dep, ok := p.reg.Lookup(depName)
		if !ok || dep.Condition == nil {
			continue
		}
		active, err := p.evalCondition(dep.Condition)
		if err != nil {
			return &ConditionError{Module: depName, Trigger: name, Err: err}
		}
		if active {
			p.enqueue(depName)
		}
	}
	return nil
}

func (p *pass) evalCondition(c *config.Condition) (bool, error) {
	if c.Test != nil {
		return c.Test(), nil
	}
	if c.When == nil {
		return true, nil
	}

	props := p.props
	if props == nil {
		props = map[string]cty.Value{}
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{
		"props": cty.ObjectVal(props),
	}}

	v, diags := c.When.Value(evalCtx)
	if diags.HasErrors() {
		return false, diags
	}
	if v.IsNull() || !v.IsKnown() {
		return false, fmt.Errorf("predicate produced an unknown or null value")
	}
	if v.Type() != cty.Bool {
		return false, fmt.Errorf("predicate produced %s, want bool", v.Type().FriendlyName())
	}
	return v.True(), nil
}
