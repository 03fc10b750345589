package listmodel

import (
	"fmt"
	"sort"
	"sync"

	"spmodel/logging"
)

// Entity is anything an IndexedCache can hold.
type Entity interface {
	comparable
	EntityID() int
}

// IndexedCache maps positive entity ids to entities. Ordering helpers use the
// numeric id, never insertion order. Safe for concurrent use.
type IndexedCache[T Entity] struct {
	mu     sync.RWMutex
	items  map[int]T
	logger *logging.Logger
}

// ItemCache is the cache type queries decode into.
type ItemCache = IndexedCache[*ListItem]

// NewIndexedCache creates an empty cache
func NewIndexedCache[T Entity]() *IndexedCache[T] {
	return &IndexedCache[T]{
		items:  make(map[int]T),
		logger: logging.Default().WithComponent("indexed_cache"),
	}
}

// NewItemCache creates an empty list item cache
func NewItemCache() *ItemCache {
	return NewIndexedCache[*ListItem]()
}

// Get returns the entity stored under id.
func (c *IndexedCache[T]) Get(id int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Has reports whether id is cached.
func (c *IndexedCache[T]) Has(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[id]
	return ok
}

// Set stores item under id. The item must carry the same positive id. Replacing a
// different instance is allowed but logged, as it points at a caching bug.
func (c *IndexedCache[T]) Set(id int, item T) error {
	var zero T
	if item == zero {
		return fmt.Errorf("%w: nil entity for key %d", ErrInvalidEntity, id)
	}
	if id <= 0 || item.EntityID() != id {
		return fmt.Errorf("%w: key %d does not match entity id %d", ErrInvalidEntity, id, item.EntityID())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[id]; ok && existing != item {
		c.logger.Warn("Replacing a different entity instance in cache", "id", id)
	}
	c.items[id] = item
	return nil
}

// Delete removes id and reports whether it was present.
func (c *IndexedCache[T]) Delete(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	delete(c.items, id)
	return ok
}

// Clear removes every entity.
func (c *IndexedCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
}

// Size is computed on every call.
func (c *IndexedCache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns the cached ids in ascending order.
func (c *IndexedCache[T]) Keys() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedKeys()
}

// Values returns the entities ordered by ascending id.
func (c *IndexedCache[T]) Values() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := c.sortedKeys()
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.items[k])
	}
	return out
}

// ToSlice is an alias of Values.
func (c *IndexedCache[T]) ToSlice() []T {
	return c.Values()
}

// First returns the entity with the smallest id.
func (c *IndexedCache[T]) First() (T, bool) {
	return c.NthEntity(0)
}

// Last returns the entity with the largest id.
func (c *IndexedCache[T]) Last() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	max := 0
	for k := range c.items {
		if k > max {
			max = k
		}
	}
	return c.items[max], true
}

// NthEntity returns the entity at position index in ascending id order.
func (c *IndexedCache[T]) NthEntity(index int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if index < 0 || index >= len(c.items) {
		return zero, false
	}
	keys := c.sortedKeys()
	return c.items[keys[index]], true
}

// Range calls fn for each entity in ascending id order until fn returns false.
func (c *IndexedCache[T]) Range(fn func(id int, item T) bool) {
	for _, item := range c.Values() {
		if !fn(item.EntityID(), item) {
			return
		}
	}
}

func (c *IndexedCache[T]) sortedKeys() []int {
	keys := make([]int, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
