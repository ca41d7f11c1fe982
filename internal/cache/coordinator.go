package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/observability"
)

// Coordinator binds store operations on one aggregate type to cache actions:
// populate on read, overwrite after update, evict after delete. The store
// write always happens first and the cache is only touched once it succeeds.
type Coordinator[T any] struct {
	cache   *AggregateCache[T]
	locks   *keyLocks
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewCoordinator wraps cache with the coordination policy.
func NewCoordinator[T any](cache *AggregateCache[T], logger *zap.Logger, metrics *observability.Metrics) *Coordinator[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator[T]{
		cache:   cache,
		locks:   newKeyLocks(),
		logger:  logger.With(zap.String("cache", cache.Namespace())),
		metrics: metrics,
	}
}

// Read returns the cached aggregate or loads it from the store and caches it.
func (c *Coordinator[T]) Read(ctx context.Context, id int64, load func(context.Context) (T, error)) (T, error) {
	if value, ok := c.get(ctx, id); ok {
		return value, nil
	}

	unlock := c.locks.lock(id)
	defer unlock()

	// a writer may have populated the entry while we waited
	if value, ok := c.get(ctx, id); ok {
		return value, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.put(ctx, id, value)
	return value, nil
}

// Write persists a change and caches the value the store reports afterwards.
// Used for updates and activation changes.
func (c *Coordinator[T]) Write(ctx context.Context, id int64, write func(context.Context) (T, error)) (T, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	value, err := write(ctx)
	if err != nil {
		return value, err
	}
	if !c.put(ctx, id, value) {
		// never leave the pre-write value behind
		if err := c.cache.Evict(ctx, id); err != nil {
			c.metrics.RecordCacheDegraded(c.cache.Namespace(), "evict")
			c.logger.Error("cache may hold a pre-write value until its TTL expires",
				zap.Int64("id", id), zap.Error(err))
		}
	}
	return value, nil
}

// Remove persists a deletion and evicts the cached entry.
func (c *Coordinator[T]) Remove(ctx context.Context, id int64, del func(context.Context) error) error {
	unlock := c.locks.lock(id)
	defer unlock()

	if err := del(ctx); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

// Evict drops an entry without a store operation, e.g. after a cascaded
// delete. It waits for an in-flight read of id so that read cannot put the
// removed row back afterwards.
func (c *Coordinator[T]) Evict(ctx context.Context, id int64) {
	unlock := c.locks.lock(id)
	defer unlock()
	c.evict(ctx, id)
}

func (c *Coordinator[T]) evict(ctx context.Context, id int64) {
	if err := c.cache.Evict(ctx, id); err != nil {
		c.degraded("evict", id, err)
	}
}

func (c *Coordinator[T]) get(ctx context.Context, id int64) (T, bool) {
	value, ok, err := c.cache.Get(ctx, id)
	if err != nil {
		c.degraded("get", id, err)
		return value, false
	}
	return value, ok
}

func (c *Coordinator[T]) put(ctx context.Context, id int64, value T) bool {
	if err := c.cache.Put(ctx, id, value); err != nil {
		c.degraded("put", id, err)
		return false
	}
	return true
}

func (c *Coordinator[T]) degraded(op string, id int64, err error) {
	c.metrics.RecordCacheDegraded(c.cache.Namespace(), op)
	c.logger.Warn("cache degraded, using store", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
}
