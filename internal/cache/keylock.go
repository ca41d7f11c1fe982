package cache

import "sync"

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLocks hands out one mutex per live key so operations on different
// keys never contend.
type keyLocks struct {
	mu    sync.Mutex
	locks map[int64]*keyLockEntry
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[int64]*keyLockEntry)}
}

func (k *keyLocks) lock(id int64) func() {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &keyLockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
