package provider

import (
	"fmt"
	"sync"

	"github.com/vihking/whatsapp-integration/pkg/log"
)

// Registry owns every backend and tracks which one serves requests.
type Registry struct {
	mu        sync.RWMutex
	providers map[Type]Provider
	active    Type
}

func NewRegistry(active Type, providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[Type]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Type()] = p
	}
	if _, ok := r.providers[active]; !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrUnknownType, active)
	}
	r.active = active
	return r, nil
}

func (r *Registry) Active() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[r.active]
}

func (r *Registry) ActiveType() Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Available lists registered backends that have what they need to run.
func (r *Registry) Available() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Type, 0, len(r.providers))
	for _, t := range Types {
		p, ok := r.providers[t]
		if !ok {
			continue
		}
		if c, ok := p.(Configurer); ok && !c.Configured() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Switch changes the active backend. On error the active one is untouched.
func (r *Registry) Switch(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if c, ok := p.(Configurer); ok && !c.Configured() {
		return fmt.Errorf("%w: %s", ErrNotConfigured, t)
	}

	if r.active != t {
		log.Provider(string(t), "switch").Infof("integration switched from %s to %s", r.active, t)
	}
	r.active = t
	return nil
}
