package breaker

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry owns one Breaker per operation family. It is built by the
// application root and handed to the clients that need breakers.
type Registry struct {
	cfg     Config
	mu      sync.Mutex
	members map[string]*Breaker
	obs     observer
}

// NewRegistry creates a registry whose breakers share cfg. When reg is not
// nil the registry's collectors are registered with it.
func NewRegistry(cfg Config, reg prometheus.Registerer) (*Registry, error) {
	r := &Registry{cfg: cfg, members: make(map[string]*Breaker)}
	if reg != nil {
		c := newCollectors()
		if err := c.register(reg); err != nil {
			return nil, err
		}
		r.obs = c
	}
	return r, nil
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	return r.GetWith(name, r.cfg)
}

// GetWith is Get with a per-family config used only when the breaker does
// not exist yet.
func (r *Registry) GetWith(name string, cfg Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.members[name]; ok {
		return b
	}
	b := New(name, cfg)
	b.obs = r.obs
	if c, ok := r.obs.(*collectors); ok {
		c.state.WithLabelValues(name).Set(float64(StateClosed))
	}
	r.members[name] = b
	return b
}

// Metrics returns a snapshot of every breaker sorted by name.
func (r *Registry) Metrics() []Metrics {
	r.mu.Lock()
	members := make([]*Breaker, 0, len(r.members))
	for _, b := range r.members {
		members = append(members, b)
	}
	r.mu.Unlock()

	out := make([]Metrics, 0, len(members))
	for _, b := range members {
		out = append(out, b.Metrics())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Config returns the shared config new breakers are created with.
func (r *Registry) Config() Config { return r.cfg }
