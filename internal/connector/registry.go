// File: internal/connector/registry.go
package connector

import (
	"fmt"
	"sort"
)

// Adapter bundles everything the core knows about one connector.
type Adapter struct {
	Integration Integration
	Webhook     WebhookHandler
	Redirect    RedirectHandler
}

// Registry maps connector names to adapters. It is populated at startup
// and read-only afterwards, so no locking is needed.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Integration.Name()] = a
}

// Get returns the adapter for the named connector.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return Adapter{}, fmt.Errorf("no adapter registered for connector %q", name)
	}
	return a, nil
}

// Names lists registered connectors in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
