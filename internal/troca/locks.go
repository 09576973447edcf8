package troca

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"
)

// lockTable hands out exclusive, context-aware locks on string keys. Entries
// are reference counted and dropped once nobody holds or waits on them.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*keyLock)}
}

func itemKey(id int64) string  { return fmt.Sprintf("item:%d", id) }
func trocaKey(id int64) string { return fmt.Sprintf("troca:%d", id) }

// acquire locks all keys in sorted order, so that two callers sharing any key
// cannot deadlock. On failure every lock taken so far is released.
func (lt *lockTable) acquire(ctx context.Context, keys ...string) (release func(), err error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]string, 0, len(keys))
	release = func() {
		for i := len(held) - 1; i >= 0; i-- {
			lt.unlock(held[i])
		}
	}

	for _, k := range keys {
		if err := lt.lock(ctx, k); err != nil {
			release()
			return nil, err
		}
		held = append(held, k)
	}
	return release, nil
}

func (lt *lockTable) lock(ctx context.Context, key string) error {
	lt.mu.Lock()
	l, ok := lt.locks[key]
	if !ok {
		l = &keyLock{sem: semaphore.NewWeighted(1)}
		lt.locks[key] = l
	}
	l.refs++
	lt.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		lt.drop(key, l)
		return fmt.Errorf("waiting for %s: %w", key, err)
	}
	return nil
}

func (lt *lockTable) unlock(key string) {
	lt.mu.Lock()
	l := lt.locks[key]
	lt.mu.Unlock()

	l.sem.Release(1)
	lt.drop(key, l)
}

func (lt *lockTable) drop(key string, l *keyLock) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(lt.locks, key)
	}
}

func (lt *lockTable) size() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return len(lt.locks)
}
