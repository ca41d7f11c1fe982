package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShards = 32

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

type memoryShard struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

// MemoryBackend is an in-process Backend with lazy expiry. Keys are spread
// over independently locked shards.
type MemoryBackend struct {
	shards [memoryShards]*memoryShard
	now    func() time.Time
}

// NewMemoryBackend returns an empty backend using the wall clock.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithClock(time.Now)
}

// NewMemoryBackendWithClock returns an empty backend using now for expiry.
func NewMemoryBackendWithClock(now func() time.Time) *MemoryBackend {
	b := &MemoryBackend{now: now}
	for i := range b.shards {
		b.shards[i] = &memoryShard{items: make(map[string]memoryItem)}
	}
	return b
}

func (b *MemoryBackend) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return b.shards[h.Sum32()%memoryShards]
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	s := b.shard(key)
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !item.expiresAt.IsZero() && !b.now().Before(item.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expiresAt.Equal(item.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, ErrMiss
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = b.now().Add(ttl)
	}
	s := b.shard(key)
	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	s := b.shard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included.
func (b *MemoryBackend) Len() int {
	n := 0
	for _, s := range b.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
