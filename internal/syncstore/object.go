package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/yangfam/familyhub/internal/rtdb"
)

// Object mirrors one shared value at a fixed path — the shape every
// mini-game state takes: a single object all sessions read and race on.
type Object[T any] struct {
	store rtdb.Store
	path  string

	mu     sync.RWMutex
	val    T
	ok     bool
	cancel func()
}

func NewObject[T any](store rtdb.Store, path string) *Object[T] {
	return &Object[T]{store: store, path: path}
}

func (o *Object[T]) Connect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return
	}
	o.cancel = o.store.Subscribe(o.path, func(ev rtdb.Event) {
		var next T
		ok := ev.Value != nil
		if ok {
			if err := json.Unmarshal(ev.Value, &next); err != nil {
				return
			}
		}
		o.mu.Lock()
		o.val, o.ok = next, ok
		o.mu.Unlock()
	})
}

func (o *Object[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// Get reads the value fresh from the store. exists is false when the path
// holds nothing, in which case v is the zero value.
func (o *Object[T]) Get(ctx context.Context) (v T, exists bool, err error) {
	raw, _, err := o.store.Read(ctx, o.path)
	if err != nil {
		return v, false, err
	}
	if raw == nil {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decoding %s: %w", o.path, err)
	}
	return v, true, nil
}

// Cached returns the mirrored value without touching the store.
func (o *Object[T]) Cached() (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.val, o.ok
}

// Set overwrites the whole value.
func (o *Object[T]) Set(ctx context.Context, v T) error {
	if err := o.store.Write(ctx, o.path, v); err != nil {
		return fmt.Errorf("writing %s: %w", o.path, err)
	}
	return nil
}

// Delete clears the value.
func (o *Object[T]) Delete(ctx context.Context) error {
	return o.store.Delete(ctx, o.path)
}

// Transact replays read -> apply -> conditional write until it lands on an
// unchanged revision. apply sees the zero value when the path is empty, and
// its errors abort the transaction without writing — this is how turn
// checks and status guards stay race-free: they run against the exact value
// the conditional write protects.
func (o *Object[T]) Transact(ctx context.Context, apply func(T) (T, error)) (T, error) {
	var zero T
	for i := 0; i < casRetries; i++ {
		raw, rev, err := o.store.Read(ctx, o.path)
		if err != nil {
			return zero, err
		}
		var cur T
		if raw != nil {
			if err := json.Unmarshal(raw, &cur); err != nil {
				return zero, fmt.Errorf("decoding %s: %w", o.path, err)
			}
		}
		next, err := apply(cur)
		if err != nil {
			return zero, err
		}
		err = o.store.CompareAndSwap(ctx, o.path, rev, next)
		if errors.Is(err, rtdb.ErrConflict) {
			continue
		}
		if err != nil {
			return zero, fmt.Errorf("writing %s: %w", o.path, err)
		}
		return next, nil
	}
	return zero, fmt.Errorf("transacting %s: %w", o.path, rtdb.ErrConflict)
}
