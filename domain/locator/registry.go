package locator

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages flow definitions and provides lookup functionality.
type Registry struct {
	flows map[string]*Flow
	mu    sync.RWMutex
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		flows: make(map[string]*Flow),
	}
}

// Register adds a flow to the registry.
// If a flow with the same name exists, it will be replaced.
func (r *Registry) Register(flow *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.Name] = flow
}

// Get retrieves a flow by name.
// Returns nil if not found.
func (r *Registry) Get(name string) *Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flows[name]
}

// Control looks up a control of a flow.
func (r *Registry) Control(flow, name string) (Control, error) {
	f := r.Get(flow)
	if f == nil {
		return Control{}, fmt.Errorf("unknown locator flow %q", flow)
	}
	c, ok := f.Control(name)
	if !ok {
		return Control{}, fmt.Errorf("flow %q has no control %q", flow, name)
	}
	return c, nil
}

// List returns all registered flow names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.flows))
	for name := range r.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered flows.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

// Require returns an error naming the first missing control, if any.
func (r *Registry) Require(flow string, controls ...string) error {
	for _, name := range controls {
		if _, err := r.Control(flow, name); err != nil {
			return err
		}
	}
	return nil
}
