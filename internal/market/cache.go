package market

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cryptoguide/internal/coins"
	"cryptoguide/internal/metrics"
)

type cachedSnapshot struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// CachedFetcher keeps successful snapshots for a fixed TTL per coin.
// Failures are never cached and descriptions always go upstream.
// Concurrent misses for the same coin share one upstream call.
type CachedFetcher struct {
	next Fetcher
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[coins.ID]cachedSnapshot
	group   singleflight.Group
}

// NewCachedFetcher wraps next. A non-positive ttl disables caching.
func NewCachedFetcher(next Fetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[coins.ID]cachedSnapshot),
	}
}

func (c *CachedFetcher) Snapshot(ctx context.Context, id coins.ID) (Snapshot, error) {
	if c.ttl <= 0 {
		return c.next.Snapshot(ctx, id)
	}

	if s, ok := c.lookup(id); ok {
		metrics.ObserveCacheLookup(true)
		return s, nil
	}
	metrics.ObserveCacheLookup(false)

	// The shared fill outlives any one caller; the client timeout bounds it.
	ch := c.group.DoChan(id.String(), func() (interface{}, error) {
		if s, ok := c.lookup(id); ok {
			return s, nil
		}
		s, err := c.next.Snapshot(context.WithoutCancel(ctx), id)
		if err != nil {
			return Snapshot{}, err
		}
		c.store(id, s)
		return s, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

func (c *CachedFetcher) Description(ctx context.Context, id coins.ID) (string, error) {
	return c.next.Description(ctx, id)
}

// Purge drops every cached snapshot.
func (c *CachedFetcher) Purge() {
	c.mu.Lock()
	c.entries = make(map[coins.ID]cachedSnapshot)
	c.mu.Unlock()
}

func (c *CachedFetcher) lookup(id coins.ID) (Snapshot, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

func (c *CachedFetcher) store(id coins.ID, s Snapshot) {
	c.mu.Lock()
	c.entries[id] = cachedSnapshot{snapshot: s, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
