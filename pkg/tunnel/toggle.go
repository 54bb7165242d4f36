package tunnel

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tehzhed/portnord/pkg/logging"
)

// stopWait bounds how long a toggle waits for a tunnel to acknowledge its
// stop signal. Swapped out in tests.
var stopWait = 10 * time.Second

// PodResolver picks the target pod for a service.
type PodResolver interface {
	ResolvePod(ctx context.Context, service string) (string, error)
}

// Starter abstracts the supervisor so toggle semantics can be exercised
// without real forward streams.
type Starter interface {
	Start(ctx context.Context, service, pod string, port int) (*Tunnel, error)
}

// Coordinator implements single-port and whole-service toggle semantics on
// top of the registry and supervisor. A failure toggling one port is reported
// for that port only and never aborts the rest of a bulk operation.
type Coordinator struct {
	registry *Registry
	starter  Starter
	resolver PodResolver
}

func NewCoordinator(registry *Registry, starter Starter, resolver PodResolver) *Coordinator {
	return &Coordinator{registry: registry, starter: starter, resolver: resolver}
}

// TogglePort stops and deregisters the tunnel for (service, port) if one
// exists, otherwise starts and registers a new one.
func (c *Coordinator) TogglePort(ctx context.Context, service string, port int) error {
	if t, ok := c.registry.Find(service, port); ok {
		return c.stopAndRemove(ctx, t)
	}
	return c.startAndRegister(ctx, service, port)
}

// ToggleResult reports the outcome of a whole-service toggle, port by port.
type ToggleResult struct {
	Started []int
	Stopped []int
	Errors  map[int]error
}

// ToggleService toggles every port of a service at once. A fully-forwarded
// service is stopped; anything less starts the missing ports. Stops and
// starts run concurrently and independently: each success takes effect in the
// registry as soon as it completes, so a later failure never discards an
// earlier success.
func (c *Coordinator) ToggleService(ctx context.Context, service string, ports []int) *ToggleResult {
	result := &ToggleResult{Errors: make(map[int]error)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	active := c.registry.CountForService(service)
	if active > 0 && active == len(ports) {
		for _, t := range c.registry.ListForService(service) {
			wg.Add(1)
			go func(t *Tunnel) {
				defer wg.Done()
				err := c.stopAndRemove(ctx, t)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Errors[t.Port] = err
					return
				}
				result.Stopped = append(result.Stopped, t.Port)
			}(t)
		}
		wg.Wait()
		sort.Ints(result.Stopped)
		return result
	}

	for _, port := range ports {
		if _, ok := c.registry.Find(service, port); ok {
			continue
		}
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			err := c.startAndRegister(ctx, service, port)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[port] = err
				return
			}
			result.Started = append(result.Started, port)
		}(port)
	}
	wg.Wait()
	sort.Ints(result.Started)
	return result
}

// StopAll stops every registered tunnel, used for orderly shutdown on quit.
// Per-tunnel failures are logged and do not block the rest.
func (c *Coordinator) StopAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range c.registry.List() {
		wg.Add(1)
		go func(t *Tunnel) {
			defer wg.Done()
			if err := c.stopAndRemove(ctx, t); err != nil {
				logging.LogError("stopping %s:%d on shutdown: %v", t.Service, t.Port, err)
			}
		}(t)
	}
	wg.Wait()
}

// stopAndRemove signals the tunnel, awaits the single acknowledgment and only
// then deregisters it. A tunnel that fails to acknowledge stays registered.
func (c *Coordinator) stopAndRemove(ctx context.Context, t *Tunnel) error {
	if err := t.SignalStop(); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, stopWait)
	defer cancel()
	if err := t.AwaitStopped(waitCtx); err != nil {
		return err
	}
	c.registry.Remove(t.Service, t.Port)
	return nil
}

func (c *Coordinator) startAndRegister(ctx context.Context, service string, port int) error {
	pod, err := c.resolver.ResolvePod(ctx, service)
	if err != nil {
		return err
	}
	t, err := c.starter.Start(ctx, service, pod, port)
	if err != nil {
		return err
	}
	if err := c.registry.Add(t); err != nil {
		// Lost the race against a concurrent start for the same pair; tear
		// the fresh tunnel down again.
		if stopErr := c.stopFresh(t); stopErr != nil {
			logging.LogError("discarding duplicate tunnel %s:%d: %v", service, port, stopErr)
		}
		return err
	}
	return nil
}

func (c *Coordinator) stopFresh(t *Tunnel) error {
	if err := t.SignalStop(); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), stopWait)
	defer cancel()
	return t.AwaitStopped(waitCtx)
}
