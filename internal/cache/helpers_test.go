package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

type account struct {
	ID     int64     `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
	Since  time.Time `json:"since"`
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// brokenBackend fails every call, as an unreachable Redis would.
type brokenBackend struct{}

var errDown = errors.New("connection refused")

func (brokenBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.Join(ErrBackendUnavailable, errDown)
}

func (brokenBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.Join(ErrBackendUnavailable, errDown)
}

func (brokenBackend) Delete(context.Context, string) error {
	return errors.Join(ErrBackendUnavailable, errDown)
}
