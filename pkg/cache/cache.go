// Memoizes prepared visual resources (decoded style previews, prepared
// backgrounds) by key. Mutation happens on the owning goroutine only,
// enforced, not assumed. Workers may Peek at already-prepared payloads.
package cache

import (
	"sync"
	"time"

	"github.com/1F47E/go-inkwell/pkg/dispatch"
)

type entry[V any] struct {
	payload    V
	lastAccess time.Time
}

type Cache[K comparable, V any] struct {
	d *dispatch.Dispatcher

	mu      sync.RWMutex
	entries map[K]entry[V]
}

func New[K comparable, V any](d *dispatch.Dispatcher) *Cache[K, V] {
	return &Cache[K, V]{
		d:       d,
		entries: make(map[K]entry[V]),
	}
}

// GetOrCreate returns the cached payload for key, invoking factory and
// storing its result on a miss. For a fixed key the same payload comes
// back until it is invalidated, and factory runs at most once per live
// key. A factory error caches nothing.
//
// Owning goroutine only. Workers request preparation through a
// dispatched task, that is the contract that keeps factories race-free.
func (c *Cache[K, V]) GetOrCreate(key K, factory func() (V, error)) (V, error) {
	c.d.MustOwn()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.touch(key, e)
		return e.payload, nil
	}

	payload, err := factory()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{payload: payload, lastAccess: time.Now()}
	c.mu.Unlock()
	return payload, nil
}

// Peek returns the payload for key if it is already prepared. Safe from
// any goroutine, never invokes a factory.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	return e.payload, true
}

// Invalidate removes one key. Owning goroutine only.
func (c *Cache[K, V]) Invalidate(key K) {
	c.d.MustOwn()
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes everything. Owning goroutine only.
func (c *Cache[K, V]) Clear() {
	c.d.MustOwn()
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.mu.Unlock()
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) touch(key K, e entry[V]) {
	e.lastAccess = time.Now()
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}
