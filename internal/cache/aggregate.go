package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/observability"
)

// Entry is the stored form of a cached aggregate.
type Entry[T any] struct {
	Key        int64     `json:"key"`
	Value      T         `json:"value"`
	InsertedAt time.Time `json:"inserted_at"`
}

// AggregateCache caches one aggregate type under a namespace prefix.
type AggregateCache[T any] struct {
	backend   Backend
	namespace string
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// Option configures an AggregateCache.
type Option func(*options)

type options struct {
	now     func() time.Time
	logger  *zap.Logger
	metrics *observability.Metrics
}

// WithClock sets the time source used to age entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// NewAggregateCache builds a cache whose entries live for ttl.
func NewAggregateCache[T any](backend Backend, namespace string, ttl time.Duration, opts ...Option) *AggregateCache[T] {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &AggregateCache[T]{
		backend:   backend,
		namespace: namespace,
		ttl:       ttl,
		now:       o.now,
		logger:    o.logger.With(zap.String("cache", namespace)),
		metrics:   o.metrics,
	}
}

// Namespace returns the key prefix.
func (c *AggregateCache[T]) Namespace() string {
	return c.namespace
}

func (c *AggregateCache[T]) key(id int64) string {
	return c.namespace + ":" + strconv.FormatInt(id, 10)
}

// Get returns the cached value for id. ok is false on a miss, including
// entries that are older than the TTL or cannot be decoded.
func (c *AggregateCache[T]) Get(ctx context.Context, id int64) (value T, ok bool, err error) {
	raw, err := c.backend.Get(ctx, c.key(id))
	if errors.Is(err, ErrMiss) {
		c.metrics.RecordCache(c.namespace, "get", "miss")
		return value, false, nil
	}
	if err != nil {
		c.metrics.RecordCache(c.namespace, "get", "error")
		return value, false, err
	}

	var entry Entry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.Int64("id", id), zap.Error(err))
		_ = c.backend.Delete(ctx, c.key(id))
		c.metrics.RecordCache(c.namespace, "get", "miss")
		return value, false, nil
	}
	if c.ttl > 0 && c.now().Sub(entry.InsertedAt) >= c.ttl {
		_ = c.backend.Delete(ctx, c.key(id))
		c.metrics.RecordCache(c.namespace, "get", "expired")
		return value, false, nil
	}

	c.metrics.RecordCache(c.namespace, "get", "hit")
	return entry.Value, true, nil
}

// Put overwrites the entry for id and resets its age.
func (c *AggregateCache[T]) Put(ctx context.Context, id int64, value T) error {
	raw, err := json.Marshal(Entry[T]{Key: id, Value: value, InsertedAt: c.now()})
	if err != nil {
		return err
	}
	if err := c.backend.Set(ctx, c.key(id), raw, c.ttl); err != nil {
		c.metrics.RecordCache(c.namespace, "put", "error")
		return err
	}
	c.metrics.RecordCache(c.namespace, "put", "ok")
	return nil
}

// Evict removes the entry for id. Evicting an absent key is a no-op.
func (c *AggregateCache[T]) Evict(ctx context.Context, id int64) error {
	if err := c.backend.Delete(ctx, c.key(id)); err != nil {
		c.metrics.RecordCache(c.namespace, "evict", "error")
		return err
	}
	c.metrics.RecordCache(c.namespace, "evict", "ok")
	return nil
}
