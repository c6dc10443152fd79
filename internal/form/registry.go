package form

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry tracks the live form controllers of this process, keyed by
// controller id. Controllers that stop being touched (abandoned tabs,
// navigations that never came back) are closed by the reaper so their
// preview buffers are released.
type Registry struct {
	mu     sync.RWMutex
	forms  map[string]*Controller
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		forms:  make(map[string]*Controller),
		logger: logger,
	}
}

// Put registers a controller and returns its id.
func (r *Registry) Put(c *Controller) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[c.ID()] = c
	return c.ID()
}

// Get looks up a live controller.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.forms[id]
	return c, ok
}

// Remove closes and forgets a controller. Unknown ids are a no-op: the
// form may already have been reaped.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c, ok := r.forms[id]
	delete(r.forms, id)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
}

// ReapIdle closes controllers idle for longer than ttl and returns how
// many were removed.
func (r *Registry) ReapIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	var victims []*Controller
	for id, c := range r.forms {
		if c.IdleSince().Before(cutoff) {
			victims = append(victims, c)
			delete(r.forms, id)
		}
	}
	r.mu.Unlock()

	for _, c := range victims {
		c.Close()
	}
	if len(victims) > 0 {
		r.logger.Info("reaped idle listing forms", zap.Int("count", len(victims)))
	}
	return len(victims)
}

// Len reports the number of live controllers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}
