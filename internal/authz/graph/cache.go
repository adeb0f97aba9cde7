package graph

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/store"

	"golang.org/x/sync/singleflight"
)

// Cache keeps per-scope snapshots with bounded staleness. Writers invalidate
// their scope synchronously inside the mutation critical section, so a stale
// snapshot can only ever lag a write by the TTL when no write happened.
// Concurrent cold loads for the same scope collapse into a single store read.
type Cache struct {
	store store.Store
	ttl   time.Duration

	mu    sync.RWMutex
	snaps map[string]*Snapshot
	sf    singleflight.Group
}

// NewCache returns a snapshot cache. A ttl of zero disables caching: every
// Snapshot call becomes a fresh transactional load.
func NewCache(st store.Store, ttl time.Duration) *Cache {
	return &Cache{
		store: st,
		ttl:   ttl,
		snaps: make(map[string]*Snapshot),
	}
}

// Snapshot returns a usable snapshot of the scope, loading one if the cached
// view is missing or older than the TTL.
func (c *Cache) Snapshot(ctx context.Context, scopeID string) (*Snapshot, error) {
	if c.ttl <= 0 {
		return Load(ctx, c.store, scopeID)
	}

	if snap := c.cached(scopeID); snap != nil {
		return snap, nil
	}

	v, err, _ := c.sf.Do(scopeID, func() (any, error) {
		// Another caller may have filled the slot while we queued.
		if snap := c.cached(scopeID); snap != nil {
			return snap, nil
		}

		snap, err := Load(ctx, c.store, scopeID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snaps[scopeID] = snap
		c.mu.Unlock()

		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Fresh bypasses the cache entirely. Mutation paths use it so cycle checks
// always run against current state, never a TTL-stale view.
func (c *Cache) Fresh(ctx context.Context, scopeID string) (*Snapshot, error) {
	return Load(ctx, c.store, scopeID)
}

// Invalidate drops the scope's cached snapshot. Must be called inside the
// same critical section as the write it follows.
func (c *Cache) Invalidate(scopeID string) {
	c.mu.Lock()
	delete(c.snaps, scopeID)
	c.mu.Unlock()
}

func (c *Cache) cached(scopeID string) *Snapshot {
	c.mu.RLock()
	snap := c.snaps[scopeID]
	c.mu.RUnlock()

	if snap != nil && time.Since(snap.BuiltAt) < c.ttl {
		return snap
	}
	return nil
}
