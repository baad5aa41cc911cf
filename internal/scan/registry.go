package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zombor/scout-scanner/internal/analysis"
)

// Surface is one UI surface: a coordinator plus the hub its renderers subscribe to
type Surface struct {
	ID          string
	Coordinator *Coordinator
	Hub         *Hub

	lastSeen time.Time
}

// Registry owns the surfaces of all connected visitors.
// Surfaces not touched within the TTL are closed as if their page unmounted.
type Registry struct {
	mu       sync.Mutex
	surfaces map[string]*Surface
	analyzer analysis.Analyzer
	opts     []Option
	clock    Clock
	ids      IDGenerator
	ttl      time.Duration
}

// NewRegistry creates a Registry whose coordinators are built with opts
func NewRegistry(analyzer analysis.Analyzer, ttl time.Duration, opts ...Option) *Registry {
	// The registry ticks on the same clock as its coordinators
	defaults := applyOptions(opts)
	return &Registry{
		surfaces: make(map[string]*Surface),
		analyzer: analyzer,
		opts:     opts,
		clock:    defaults.clock,
		ids:      defaults.ids,
		ttl:      ttl,
	}
}

// Open creates a new surface
func (r *Registry) Open() *Surface {
	hub := NewHub(16)
	surface := &Surface{
		ID:  r.ids.Generate(),
		Hub: hub,
	}
	listeners := Listeners{LogListener(slog.Default().With("surface_id", surface.ID)), hub}
	surface.Coordinator = NewCoordinator(r.analyzer, listeners, r.opts...)

	r.mu.Lock()
	defer r.mu.Unlock()
	surface.lastSeen = r.clock.Now()
	r.surfaces[surface.ID] = surface
	return surface
}

// Get returns the surface with id and marks it as recently used
func (r *Registry) Get(id string) (*Surface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	surface, ok := r.surfaces[id]
	if ok {
		surface.lastSeen = r.clock.Now()
	}
	return surface, ok
}

// Close tears down the surface with id
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	surface, ok := r.surfaces[id]
	delete(r.surfaces, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	surface.Coordinator.Close()
	surface.Hub.Close()
	return true
}

// Len returns the number of open surfaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.surfaces)
}

// Sweep closes surfaces idle for longer than the TTL and returns how many it closed
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}

	now := r.clock.Now()
	var expired []string
	r.mu.Lock()
	for id, surface := range r.surfaces {
		if now.Sub(surface.lastSeen) > r.ttl {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	closed := 0
	for _, id := range expired {
		if r.Close(id) {
			closed++
		}
	}
	if closed > 0 {
		slog.Info("Closed idle scan surfaces", "count", closed)
	}
	return closed
}

// Run sweeps periodically until ctx is done, then closes every surface
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.surfaces))
	for id := range r.surfaces {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Close(id)
	}
}
