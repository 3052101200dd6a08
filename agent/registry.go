package agent

import (
	"fmt"
	"slices"

	"github.com/umair-ds92/datawise-ai/core"
)

// Registry is the immutable set of agents participating in a run, in
// registration order. Construction validates the handoff graph; a registry
// that builds successfully cannot produce a structurally invalid handoff.
type Registry struct {
	order  []string
	agents map[string]core.Agent
}

// NewRegistry builds a registry from the given agents. It fails when names
// collide, a declared handoff target is not registered, or an agent declares
// itself as a handoff target.
func NewRegistry(agents ...core.Agent) (*Registry, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("registry requires at least one agent")
	}

	r := &Registry{agents: make(map[string]core.Agent, len(agents))}
	for _, a := range agents {
		name := a.Name()
		if name == "" || name == core.RoleUser {
			return nil, fmt.Errorf("invalid agent name %q", name)
		}
		if _, dup := r.agents[name]; dup {
			return nil, fmt.Errorf("duplicate agent name %q", name)
		}
		r.agents[name] = a
		r.order = append(r.order, name)
	}

	for _, a := range agents {
		for _, target := range a.Handoffs() {
			if target == a.Name() {
				return nil, fmt.Errorf("agent %q declares itself as handoff target", a.Name())
			}
			if _, ok := r.agents[target]; !ok {
				return nil, fmt.Errorf("agent %q declares unregistered handoff target %q", a.Name(), target)
			}
		}
	}

	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error, for fixed wiring known
// to be valid at compile time.
func MustNewRegistry(agents ...core.Agent) *Registry {
	r, err := NewRegistry(agents...)
	if err != nil {
		panic(fmt.Sprintf("agent: %v", err))
	}
	return r
}

// Get returns a registered agent by name.
func (r *Registry) Get(name string) (core.Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns agent names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Agents returns agents in registration order.
func (r *Registry) Agents() []core.Agent {
	out := make([]core.Agent, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.agents[name])
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int { return len(r.order) }

// AllowsHandoff reports whether from may explicitly transfer control to
// target under its declared handoff set.
func (r *Registry) AllowsHandoff(from, target string) bool {
	a, ok := r.agents[from]
	if !ok || from == target {
		return false
	}
	return slices.Contains(a.Handoffs(), target)
}

// ByCapability returns agents with the given capability tag, in registration
// order.
func (r *Registry) ByCapability(c core.Capability) []core.Agent {
	var out []core.Agent
	for _, name := range r.order {
		if a := r.agents[name]; a.Capability() == c {
			out = append(out, a)
		}
	}
	return out
}
