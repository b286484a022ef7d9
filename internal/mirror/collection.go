// Package mirror provides the in-memory collection every entity store keeps in sync
// with the gateway.
package mirror

import (
	"slices"
	"sync"
)

// Collection is an ordered, id-keyed set of rows with a loading flag and a fetch
// generation. Only the latest fetch may replace the rows: Begin hands out a new
// generation and Commit drops results that carry an older one.
type Collection[T any] struct {
	mu       sync.RWMutex
	key      func(T) string
	items    []T
	gen      uint64
	loading  bool
	disposed bool
}

// New returns an empty collection keyed by key.
func New[T any](key func(T) string) *Collection[T] {
	return &Collection[T]{key: key}
}

// Snapshot returns a copy of the rows in order.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *Collection[T]) Disposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// Get returns the row with id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Begin starts a fetch and returns its generation.
func (c *Collection[T]) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.loading = true
	return c.gen
}

// Commit replaces the rows with items if gen is still the latest generation.
// It reports whether the rows were replaced.
func (c *Collection[T]) Commit(gen uint64, items []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || gen != c.gen {
		return false
	}
	c.items = slices.Clone(items)
	c.loading = false
	return true
}

// Abort ends the fetch gen without touching the rows.
func (c *Collection[T]) Abort(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.loading = false
	}
}

// Prepend puts item in front of the rows.
func (c *Collection[T]) Prepend(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.items = append([]T{item}, c.items...)
}

// Append puts item after the rows.
func (c *Collection[T]) Append(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.items = append(slices.Clone(c.items), item)
}

// Update replaces the row with id by fn(row). It reports whether a row matched.
// fn runs under the collection lock and must not call back into it.
func (c *Collection[T]) Update(id string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return false
	}
	items := slices.Clone(c.items)
	items[i] = fn(items[i])
	c.items = items
	return true
}

// Remove drops the row with id. It reports whether a row matched.
func (c *Collection[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = slices.Delete(slices.Clone(c.items), i, i+1)
	return true
}

// Dispose clears the rows and discards every in-flight fetch.
func (c *Collection[T]) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.gen++
	c.items = nil
	c.loading = false
}

func (c *Collection[T]) index(id string) int {
	for i, it := range c.items {
		if c.key(it) == id {
			return i
		}
	}
	return -1
}
