package objectcache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/observability"
)

// Cache is the object cache in front of a Store.
type Cache struct {
	store   Store
	ttl     time.Duration
	log     *logger.Logger
	metrics *observability.CacheMetrics
	now     func() time.Time

	// mu serializes reads and writes so a Put never interleaves with an
	// Invalidate of the same key.
	mu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics records invalidations on m.
func WithMetrics(m *observability.CacheMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a Cache. A ttl of zero means entries only go stale when
// invalidated.
func New(store Store, ttl time.Duration, log *logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   ttl,
		log:   logger.OrNop(log).WithComponent("object-cache"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for key, or nil on a miss. Stale entries are returned
// too; use IsStale to tell them apart.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("objectcache get %q: %w", key, err)
	}
	return e, nil
}

// Put stores a fresh representation for key along with the resource types it
// contains.
func (c *Cache) Put(ctx context.Context, key string, representation []byte, types ...string) error {
	types = slices.Clone(types)
	slices.Sort(types)
	entry := &Entry{
		Key:            key,
		Representation: representation,
		Types:          slices.Compact(types),
		Timestamp:      c.now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Set(ctx, entry); err != nil {
		return fmt.Errorf("objectcache put %q: %w", key, err)
	}
	c.log.Debug("cached", logger.Fields(logger.FieldKey, key, "types", entry.Types, "bytes", len(representation)))
	return nil
}

// Invalidate marks key stale. Unknown keys are ignored and repeated calls have
// no further effect.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.invalidateLocked(ctx, key)
	if err != nil {
		return err
	}
	c.metrics.RecordInvalidations(ctx, n)
	return nil
}

// InvalidateByType marks every entry containing resourceType stale and returns
// how many entries changed.
func (c *Cache) InvalidateByType(ctx context.Context, resourceType string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.KeysByType(ctx, resourceType)
	if err != nil {
		return 0, fmt.Errorf("objectcache keys for type %q: %w", resourceType, err)
	}
	total := 0
	for _, key := range keys {
		n, err := c.invalidateLocked(ctx, key)
		if err != nil {
			return total, err
		}
		total += n
	}
	c.metrics.RecordInvalidations(ctx, total)
	if total > 0 {
		c.log.Debug("invalidated by type", logger.Fields(logger.FieldType, resourceType, "count", total))
	}
	return total, nil
}

// Remove deletes key.
func (c *Cache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("objectcache remove %q: %w", key, err)
	}
	return nil
}

// IsStale reports whether e was invalidated or has outlived the TTL.
func (c *Cache) IsStale(e *Entry) bool {
	if e.Invalidated {
		return true
	}
	return c.ttl > 0 && c.now().Sub(e.Timestamp) > c.ttl
}

func (c *Cache) invalidateLocked(ctx context.Context, key string) (int, error) {
	e, err := c.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("objectcache invalidate %q: %w", key, err)
	}
	if e == nil || e.Invalidated {
		return 0, nil
	}
	e.Invalidated = true
	if err := c.store.Set(ctx, e); err != nil {
		return 0, fmt.Errorf("objectcache invalidate %q: %w", key, err)
	}
	c.log.Debug("invalidated", logger.Fields(logger.FieldKey, key))
	return 1, nil
}
