// Package gateway implements the cached read models the routing core works
// against. Each gateway holds one immutable snapshot of its domain behind an
// atomic pointer: readers always see a complete snapshot, refreshes build
// the replacement off to the side and swap it in one store. A snapshot is
// replaced when its TTL lapses or when an invalidation signal for the
// domain arrives; a refresh that fails keeps the previous snapshot serving.
package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"commerce-router/internal/common/logging"
)

// TTLSource yields the current snapshot lifetime. Implemented by the
// dynamic-config service so operators can tune the TTL at runtime.
type TTLSource interface {
	CacheTTL(ctx context.Context) time.Duration
}

// TTLFunc adapts a function to TTLSource.
type TTLFunc func(ctx context.Context) time.Duration

func (f TTLFunc) CacheTTL(ctx context.Context) time.Duration { return f(ctx) }

// FixedTTL returns a TTLSource with a constant lifetime.
func FixedTTL(d time.Duration) TTLSource {
	return TTLFunc(func(context.Context) time.Duration { return d })
}

type snapshot[T any] struct {
	data     T
	loadedAt time.Time
}

// snapshotCache is the shared refresh machinery. The atomic pointer makes
// reads lock-free; the mutex only serializes refreshes so concurrent
// expiry triggers a single reload.
type snapshotCache[T any] struct {
	name   string
	load   func(ctx context.Context) (T, error)
	ttl    TTLSource
	now    func() time.Time
	logger logging.Logger

	current   atomic.Pointer[snapshot[T]]
	refreshMu sync.Mutex
}

func newSnapshotCache[T any](name string, ttl TTLSource, load func(ctx context.Context) (T, error)) *snapshotCache[T] {
	return &snapshotCache[T]{
		name:   name,
		load:   load,
		ttl:    ttl,
		now:    time.Now,
		logger: logging.WithFields(logging.String("cache", name)),
	}
}

// Get returns the current snapshot, refreshing first if it is missing or
// stale. When a refresh fails and an older snapshot exists, the old data is
// returned and its timestamp left untouched, so the next read retries the
// refresh instead of waiting out a fresh TTL on stale data.
func (c *snapshotCache[T]) Get(ctx context.Context) (T, error) {
	if snap := c.current.Load(); snap != nil && !c.expired(ctx, snap) {
		return snap.data, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another goroutine may have refreshed while this one waited.
	if snap := c.current.Load(); snap != nil && !c.expired(ctx, snap) {
		return snap.data, nil
	}

	data, err := c.load(ctx)
	if err != nil {
		if snap := c.current.Load(); snap != nil {
			c.logger.Warn("Snapshot refresh failed, serving previous snapshot",
				logging.Err(err))
			return snap.data, nil
		}
		var zero T
		return zero, err
	}

	c.current.Store(&snapshot[T]{data: data, loadedAt: c.now()})
	c.logger.Debug("Snapshot refreshed")
	return data, nil
}

// Invalidate marks the snapshot stale. The data stays in place until the
// next read refreshes it, so readers never observe an empty cache.
func (c *snapshotCache[T]) Invalidate() {
	if snap := c.current.Load(); snap != nil {
		c.current.Store(&snapshot[T]{data: snap.data})
	}
}

func (c *snapshotCache[T]) expired(ctx context.Context, snap *snapshot[T]) bool {
	if snap.loadedAt.IsZero() {
		return true
	}
	return c.now().Sub(snap.loadedAt) >= c.ttl.CacheTTL(ctx)
}
