package registry

import (
	"concord/internal/core/contracts"
	"sync"
)

// bucket holds the live handles of a single identity. Each bucket is
// locked independently so one busy identity does not serialize the rest.
type bucket struct {
	mu      sync.Mutex
	handles map[string]contracts.Client // handle_id → client
	dead    bool                        // emptied and unlinked from the registry
}

// Registry is the process-wide identity → open-handles table. Buckets are
// created lazily on first Add and deleted as soon as their set becomes
// empty, keeping memory bounded with many transient identities.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

func NewRegistry() *Registry {
	return &Registry{
		buckets: make(map[string]*bucket),
	}
}

func (r *Registry) Add(identity string, c contracts.Client) {
	for {
		r.mu.RLock()
		b := r.buckets[identity]
		r.mu.RUnlock()
		if b == nil {
			r.mu.Lock()
			b = r.buckets[identity]
			if b == nil {
				b = &bucket{handles: make(map[string]contracts.Client)}
				r.buckets[identity] = b
			}
			r.mu.Unlock()
		}
		b.mu.Lock()
		if b.dead {
			// Lost the race against a concurrent delete-on-empty; the
			// bucket is unlinked, retry against a fresh one.
			b.mu.Unlock()
			continue
		}
		b.handles[c.ID()] = c
		b.mu.Unlock()
		return
	}
}

// Remove drops the handle from its identity's bucket. Removing a handle
// that is already gone is a no-op.
func (r *Registry) Remove(identity string, c contracts.Client) {
	r.mu.RLock()
	b := r.buckets[identity]
	r.mu.RUnlock()
	if b == nil {
		return
	}
	b.mu.Lock()
	delete(b.handles, c.ID())
	empty := len(b.handles) == 0
	if empty {
		b.dead = true
	}
	b.mu.Unlock()
	if empty {
		r.mu.Lock()
		if cur := r.buckets[identity]; cur == b {
			delete(r.buckets, identity)
		}
		r.mu.Unlock()
	}
}

// Handles returns a snapshot of the identity's live handles. An identity
// with no bucket yields nil, not an error.
func (r *Registry) Handles(identity string) []contracts.Client {
	r.mu.RLock()
	b := r.buckets[identity]
	r.mu.RUnlock()
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.handles) == 0 {
		return nil
	}
	out := make([]contracts.Client, 0, len(b.handles))
	for _, c := range b.handles {
		out = append(out, c)
	}
	return out
}
