package controller

import (
	"context"
	"sync"
	"time"
)

// Registry maps visitor ids to their controllers.
type Registry struct {
	deps *Deps
	ttl  time.Duration

	mu          sync.Mutex
	controllers map[string]*Controller
	onSize      func(int)
}

// NewRegistry builds an empty registry. Controllers that are not signed in
// and have been idle for longer than ttl are evicted by Sweep.
func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	return &Registry{deps: &deps, ttl: ttl, controllers: make(map[string]*Controller)}
}

// OnSize registers a hook called with the controller count after it changes.
func (r *Registry) OnSize(fn func(int)) {
	r.mu.Lock()
	r.onSize = fn
	r.mu.Unlock()
}

// Get returns the visitor's controller, creating and starting it on first use.
func (r *Registry) Get(ctx context.Context, visitorID string) *Controller {
	r.mu.Lock()
	c, ok := r.controllers[visitorID]
	if !ok {
		c = New(visitorID, r.deps)
		r.controllers[visitorID] = c
		r.sizeChangedLocked()
	}
	r.mu.Unlock()

	c.Start(ctx)
	return c
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Sweep evicts idle controllers and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.ttl)
	r.mu.Lock()
	var evicted []*Controller
	for id, c := range r.controllers {
		if c.idleSince(cutoff) {
			delete(r.controllers, id)
			evicted = append(evicted, c)
		}
	}
	if len(evicted) > 0 {
		r.sizeChangedLocked()
	}
	r.mu.Unlock()

	// Store calls run outside the registry lock.
	ctx, cancel := context.WithTimeout(context.Background(), r.deps.rpcTimeout())
	defer cancel()
	for _, c := range evicted {
		c.evict(ctx)
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.deps.logger().Debug("evicted idle visitors", "count", n)
			}
		}
	}
}

// Close stops every inactivity timer.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.controllers {
		c.close()
	}
}

func (r *Registry) sizeChangedLocked() {
	if r.onSize != nil {
		r.onSize(len(r.controllers))
	}
}
