package tunnel

import (
	"context"
	"fmt"
	"sync"
)

// State tracks where a tunnel is in its lifecycle.
type State int

const (
	StateStarting State = iota // stream negotiation / listener bind in progress
	StateActive                // serving proxied requests
	StateStopping              // shutdown signaled, draining
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateActive:
		return "Active"
	case StateStopping:
		return "Stopping"
	}
	return "Unknown"
}

// Tunnel is a live mapping from a local TCP listener to a single pod port.
// The supervisor goroutine owns the receiving end of the stop channel; the
// registry entry owns the sending end. Cancellation is cooperative: signaling
// stop asks the supervisor to drain and shut down, there is no hard abort.
type Tunnel struct {
	Service string
	Port    int
	Pod     string

	mu    sync.Mutex
	state State

	stop chan struct{} // buffered, at most one pending stop signal
	done chan struct{} // closed once shutdown completed
}

func newTunnel(service, pod string, port int) *Tunnel {
	return &Tunnel{
		Service: service,
		Pod:     pod,
		Port:    port,
		state:   StateStarting,
		stop:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (t *Tunnel) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tunnel) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// SignalStop delivers the cooperative stop signal. Delivery fails only when a
// stop is already pending; an already-stopped tunnel counts as delivered.
func (t *Tunnel) SignalStop() error {
	select {
	case <-t.done:
		return nil
	default:
	}
	select {
	case t.stop <- struct{}{}:
		return nil
	default:
		return fmt.Errorf("%w: stop already pending for %s:%d", ErrStopNotAcknowledged, t.Service, t.Port)
	}
}

// AwaitStopped blocks until the supervisor acknowledges shutdown or the
// context runs out. A stalled forward stream will not acknowledge until the
// transport layer notices the stall on its own.
func (t *Tunnel) AwaitStopped(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s:%d still draining", ErrStopNotAcknowledged, t.Service, t.Port)
	}
}

// Done exposes the acknowledgment channel for callers that want to select on
// shutdown themselves.
func (t *Tunnel) Done() <-chan struct{} {
	return t.done
}
