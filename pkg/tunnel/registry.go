package tunnel

import (
	"fmt"
	"sync"
)

// Registry is the authoritative set of currently-active tunnels. One mutex
// funnels every mutation, so during a bulk toggle two near-simultaneous
// starts cannot both register the same (service, port) pair and readers never
// observe a half-applied change.
type Registry struct {
	mu      sync.Mutex
	tunnels []*Tunnel // insertion order
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a tunnel. It fails if a tunnel for the same (service, port)
// pair is already present.
func (r *Registry) Add(t *Tunnel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tunnels {
		if existing.Service == t.Service && existing.Port == t.Port {
			return fmt.Errorf("%w: %s:%d", ErrDuplicateTunnel, t.Service, t.Port)
		}
	}
	r.tunnels = append(r.tunnels, t)
	return nil
}

// Remove drops the tunnel for (service, port) if present.
func (r *Registry) Remove(service string, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tunnels {
		if t.Service == service && t.Port == port {
			r.tunnels = append(r.tunnels[:i], r.tunnels[i+1:]...)
			return
		}
	}
}

// Find returns the registered tunnel for (service, port).
func (r *Registry) Find(service string, port int) (*Tunnel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tunnels {
		if t.Service == service && t.Port == port {
			return t, true
		}
	}
	return nil, false
}

// List returns a snapshot of all registered tunnels in insertion order.
func (r *Registry) List() []*Tunnel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Tunnel, len(r.tunnels))
	copy(out, r.tunnels)
	return out
}

// ListForService returns a snapshot of the service's tunnels in insertion
// order.
func (r *Registry) ListForService(service string) []*Tunnel {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Tunnel
	for _, t := range r.tunnels {
		if t.Service == service {
			out = append(out, t)
		}
	}
	return out
}

// CountForService returns how many tunnels the service currently has.
func (r *Registry) CountForService(service string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tunnels {
		if t.Service == service {
			count++
		}
	}
	return count
}
