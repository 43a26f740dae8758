// Package rtdb implements a hierarchical key-value tree with change
// subscriptions: the single source of truth shared by every client session.
//
// Values are JSON trees. A Write replaces the whole subtree at its path
// (last-write-wins at path granularity), Update merges fields at one node,
// and CompareAndSwap rejects the write when the subtree changed since the
// revision the caller read. Subscriptions fire with the current subtree
// value immediately and after every change at or under the subscribed path;
// intermediate states may be skipped, only the latest value is guaranteed.
package rtdb

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrConflict is returned by CompareAndSwap when the subtree revision
	// no longer matches. Callers treat it as retryable.
	ErrConflict = errors.New("rtdb: revision conflict")

	ErrInvalidPath = errors.New("rtdb: invalid path")
)

// Event is delivered to subscribers. Value is the full current subtree at
// the subscribed path, nil when the subtree does not exist.
type Event struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
	Rev   uint64          `json:"rev"`
}

type Store interface {
	// Read returns the subtree at path and its revision. A missing subtree
	// is (nil, rev, nil), not an error.
	Read(ctx context.Context, path string) (json.RawMessage, uint64, error)

	// Write replaces the whole subtree at path. A nil value deletes it.
	Write(ctx context.Context, path string, value any) error

	// Update merges fields into the node at path without touching siblings.
	Update(ctx context.Context, path string, fields map[string]any) error

	// CompareAndSwap is Write guarded by the revision the caller last read.
	// Returns ErrConflict and changes nothing when the subtree has moved on.
	CompareAndSwap(ctx context.Context, path string, expectedRev uint64, value any) error

	// Delete removes the subtree at path. Deleting a missing subtree is a no-op.
	Delete(ctx context.Context, path string) error

	// Push writes value under a fresh store-generated key and returns the key.
	Push(ctx context.Context, path string, value any) (string, error)

	// Subscribe registers fn for changes at or under path. fn is called once
	// with the current value, then after every overlapping change, always
	// from a single goroutine per subscription. The returned func cancels.
	Subscribe(path string, fn func(Event)) (cancel func())

	Close() error
}

// NewKey returns a fresh unique entity key. Keys come from the store, never
// from wall-clock timestamps: near-simultaneous creations must not collide.
func NewKey() string {
	return uuid.NewString()
}
