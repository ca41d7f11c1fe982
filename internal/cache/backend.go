// Package cache keeps a read-through/write-through copy of aggregates in a
// key-value backend. Backend failures never fail the surrounding business
// operation; they are reported as ErrBackendUnavailable so callers can fall
// back to the persistent store.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by a Backend when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrBackendUnavailable wraps any failure of the backend itself.
	ErrBackendUnavailable = errors.New("cache backend unavailable")
)

// Backend is a key-value store with per-entry TTL.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
