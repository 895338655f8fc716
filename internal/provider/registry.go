package provider

import (
	"fmt"
	"sync"
)

// Registration couples a provider with its rotation settings.
type Registration struct {
	Provider Provider

	// LivePriority opts the provider into live takeovers: when it
	// reports live content, its live modes preempt normal rotation.
	LivePriority bool
}

// RegisterOption configures a registration.
type RegisterOption func(*Registration)

// WithLivePriority opts the provider into live takeovers.
func WithLivePriority() RegisterOption {
	return func(r *Registration) {
		r.LivePriority = true
	}
}

// Registry is the mode name -> provider mapping built at startup. Mode
// order follows registration order, which defines the round-robin
// sequence. Registration happens before the rotation loop starts; reads
// afterward are concurrent with the control API, hence the lock.
type Registry struct {
	mu      sync.RWMutex
	byMode  map[string]*Registration
	modes   []string
	entries []*Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMode: make(map[string]*Registration),
	}
}

// Register adds a provider and all of its modes. A mode name already
// owned by another provider is a configuration error: registration is
// rejected outright rather than silently shadowing the earlier owner.
func (r *Registry) Register(p Provider, opts ...RegisterOption) error {
	modes := p.Modes()
	if len(modes) == 0 {
		return fmt.Errorf("provider %q declares no modes", p.Name())
	}

	reg := &Registration{Provider: p}
	for _, opt := range opts {
		opt(reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mode := range modes {
		if existing, ok := r.byMode[mode]; ok {
			return fmt.Errorf("mode %q already registered by provider %q", mode, existing.Provider.Name())
		}
	}
	for _, mode := range modes {
		r.byMode[mode] = reg
		r.modes = append(r.modes, mode)
	}
	r.entries = append(r.entries, reg)

	return nil
}

// Lookup returns the registration owning mode.
func (r *Registry) Lookup(mode string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byMode[mode]
	return reg, ok
}

// Modes returns all registered mode names in registration order.
func (r *Registry) Modes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.modes))
	copy(out, r.modes)
	return out
}

// Registrations returns one entry per provider in registration order.
func (r *Registry) Registrations() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Registration, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered modes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modes)
}
