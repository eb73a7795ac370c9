package state

import (
  "sync"
  "time"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

// Registry owns every live client store, keyed by client id.
type Registry struct {
  mu     sync.RWMutex
  stores map[string]*Store
  opts   Options
  log    *logger.Logger
}

func NewRegistry(opts Options) *Registry {
  opts = opts.withDefaults()
  return &Registry{
    stores: make(map[string]*Store),
    opts:   opts,
    log:    opts.Log.With("component", "StateRegistry"),
  }
}

// Create registers a new anonymous store on the landing view.
func (r *Registry) Create() *Store {
  id := r.opts.NewID()
  s := NewStore(id, r.opts)
  r.mu.Lock()
  r.stores[id] = s
  r.mu.Unlock()
  r.log.Debug("Client store created", "clientID", id)
  return s
}

// Get returns the store for id and marks it as recently used.
func (r *Registry) Get(id string) (*Store, bool) {
  r.mu.RLock()
  s, ok := r.stores[id]
  r.mu.RUnlock()
  if ok {
    s.touch()
  }
  return s, ok
}

func (r *Registry) Remove(id string) {
  r.mu.Lock()
  delete(r.stores, id)
  r.mu.Unlock()
}

func (r *Registry) Len() int {
  r.mu.RLock()
  defer r.mu.RUnlock()
  return len(r.stores)
}

// Sweep drops stores idle for longer than maxIdle and returns how many went.
// Stores with remote writes still in flight are kept until the next sweep.
func (r *Registry) Sweep(maxIdle time.Duration) int {
  cutoff := r.opts.Now().Add(-maxIdle)
  r.mu.Lock()
  defer r.mu.Unlock()
  removed := 0
  for id, s := range r.stores {
    if s.LastSeen().Before(cutoff) && s.PendingWrites() == 0 {
      delete(r.stores, id)
      removed++
    }
  }
  if removed > 0 {
    r.log.Info("Swept idle client stores", "removed", removed, "remaining", len(r.stores))
  }
  return removed
}
