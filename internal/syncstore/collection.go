// Package syncstore mirrors subtrees of the shared tree into typed local
// caches. Mutating actions write through to the store and never touch the
// cache directly: the cache is refreshed only by the store's own
// subscription callback, so every session converges on what the store
// holds, not on what it hoped it wrote.
package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sync"

	"github.com/yangfam/familyhub/internal/rtdb"
)

// ErrNotFound is returned when an entity id has no value in the store.
var ErrNotFound = errors.New("syncstore: not found")

// casRetries bounds how often a read-modify-write is replayed after losing
// a revision race before the conflict is surfaced to the caller.
const casRetries = 5

// Now returns the creation timestamp format used across all entities.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Collection mirrors the entities under {path}/{id}.
type Collection[T any] struct {
	store rtdb.Store
	path  string

	mu     sync.RWMutex
	items  map[string]T
	cancel func()
}

func NewCollection[T any](store rtdb.Store, path string) *Collection[T] {
	return &Collection[T]{
		store: store,
		path:  path,
		items: make(map[string]T),
	}
}

// Connect registers the subscription that keeps the local cache current.
// The store delivers the current subtree as the first event, so the mirror
// fills without an explicit initial read.
func (c *Collection[T]) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	c.cancel = c.store.Subscribe(c.path, func(ev rtdb.Event) {
		next := make(map[string]T)
		if ev.Value != nil {
			if err := json.Unmarshal(ev.Value, &next); err != nil {
				return
			}
		}
		c.mu.Lock()
		c.items = next
		c.mu.Unlock()
	})
}

func (c *Collection[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Create writes a new entity under a store-generated key. build receives the
// assigned id so the entity can carry it as a field, the way every feature
// denormalizes ids. The local cache is not touched: correctness depends on
// the subscription, which is the point of the pattern.
func (c *Collection[T]) Create(ctx context.Context, build func(id string) T) (T, error) {
	id := rtdb.NewKey()
	e := build(id)
	if err := c.store.Write(ctx, c.path+"/"+id, e); err != nil {
		var zero T
		return zero, fmt.Errorf("creating %s/%s: %w", c.path, id, err)
	}
	return e, nil
}

// Get reads the entity fresh from the store.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var e T
	raw, _, err := c.store.Read(ctx, c.path+"/"+id)
	if err != nil {
		return e, err
	}
	if raw == nil {
		return e, fmt.Errorf("%w: %s/%s", ErrNotFound, c.path, id)
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, fmt.Errorf("decoding %s/%s: %w", c.path, id, err)
	}
	return e, nil
}

// Cached returns the entity from the local mirror.
func (c *Collection[T]) Cached(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[id]
	return e, ok
}

// List returns a snapshot of the local mirror. Order is unspecified;
// callers sort by whatever field their feature renders by.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e)
	}
	return out
}

// Update replays read -> apply -> conditional write until the write lands on
// the revision it read. The whole merged entity is written back, never a
// partial patch: the store overwrites whole values at a path. apply errors
// propagate unchanged and nothing is written.
func (c *Collection[T]) Update(ctx context.Context, id string, apply func(T) (T, error)) (T, error) {
	var zero T
	path := c.path + "/" + id
	for i := 0; i < casRetries; i++ {
		raw, rev, err := c.store.Read(ctx, path)
		if err != nil {
			return zero, err
		}
		if raw == nil {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		var cur T
		if err := json.Unmarshal(raw, &cur); err != nil {
			return zero, fmt.Errorf("decoding %s: %w", path, err)
		}
		next, err := apply(cur)
		if err != nil {
			return zero, err
		}
		err = c.store.CompareAndSwap(ctx, path, rev, next)
		if errors.Is(err, rtdb.ErrConflict) {
			continue
		}
		if err != nil {
			return zero, fmt.Errorf("updating %s: %w", path, err)
		}
		return next, nil
	}
	return zero, fmt.Errorf("updating %s: %w", path, rtdb.ErrConflict)
}

// Remove deletes the entity subtree. Removing an absent entity is a no-op,
// matching the store's delete semantics.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.path+"/"+id)
}
