package rtdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps the whole tree in process memory. It is the default
// backend for tests and single-node runs.
type MemoryStore struct {
	mu     sync.RWMutex
	leaves map[string]any    // leaf path -> scalar or array value
	revs   map[string]uint64 // node path -> revision of last change in its subtree
	rev    uint64            // global revision counter

	hub *hub
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		leaves: make(map[string]any),
		revs:   make(map[string]uint64),
	}
	s.hub = newHub(func(_ context.Context, path string) (any, uint64, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		v, rev := s.readLocked(path)
		return v, rev, nil
	})
	return s
}

func (s *MemoryStore) Read(_ context.Context, path string) (json.RawMessage, uint64, error) {
	if err := validPath(path); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	v, rev := s.readLocked(path)
	s.mu.RUnlock()
	raw, err := encodeValue(v)
	return raw, rev, err
}

func (s *MemoryStore) Write(_ context.Context, path string, value any) error {
	if err := validPath(path); err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	changed := s.writeLocked(path, v)
	s.mu.Unlock()
	if changed {
		s.hub.notify(path)
	}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, path string, fields map[string]any) error {
	if err := validPath(path); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	normalized := make(map[string]any, len(fields))
	for k, v := range fields {
		if err := validPath(path + "/" + k); err != nil {
			return err
		}
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		normalized[k] = nv
	}

	s.mu.Lock()
	changed := false
	for k, v := range normalized {
		if s.writeLocked(path+"/"+k, v) {
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.hub.notify(path)
	}
	return nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, path string, expectedRev uint64, value any) error {
	if err := validPath(path); err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if _, rev := s.readLocked(path); rev != expectedRev {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s at rev %d, expected %d", ErrConflict, path, rev, expectedRev)
	}
	changed := s.writeLocked(path, v)
	s.mu.Unlock()
	if changed {
		s.hub.notify(path)
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	return s.Write(ctx, path, nil)
}

func (s *MemoryStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := NewKey()
	if err := s.Write(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *MemoryStore) Subscribe(path string, fn func(Event)) func() {
	return s.hub.subscribe(path, fn)
}

func (s *MemoryStore) Close() error {
	s.hub.close()
	return nil
}

// readLocked assembles the subtree at path. The revision for a path that
// was never written itself is the revision of its nearest written ancestor:
// an overwrite of the ancestor replaced this subtree too.
func (s *MemoryStore) readLocked(path string) (any, uint64) {
	return assemble(path, s.leaves), s.revLocked(path)
}

func (s *MemoryStore) revLocked(path string) uint64 {
	for _, p := range selfAndAncestors(path) {
		if rev, ok := s.revs[p]; ok {
			return rev
		}
	}
	return 0
}

// writeLocked replaces the subtree at path with v (nil deletes) and reports
// whether anything changed.
func (s *MemoryStore) writeLocked(path string, v any) bool {
	changed := false

	// Clear the old subtree.
	if _, ok := s.leaves[path]; ok {
		delete(s.leaves, path)
		changed = true
	}
	prefix := path + "/"
	for p := range s.leaves {
		if strings.HasPrefix(p, prefix) {
			delete(s.leaves, p)
			changed = true
		}
	}

	if v != nil {
		next := make(map[string]any)
		flatten(path, v, next)
		if len(next) > 0 {
			// Writing below a scalar turns the scalar into an object.
			for _, anc := range selfAndAncestors(path)[1:] {
				if anc == "" {
					break
				}
				delete(s.leaves, anc)
			}
			for p, lv := range next {
				s.leaves[p] = lv
			}
			changed = true
		}
	}

	if changed {
		s.rev++
		// The subtree under path is gone wholesale, so descendant revisions
		// fall back to this node's new revision.
		for p := range s.revs {
			if strings.HasPrefix(p, prefix) {
				delete(s.revs, p)
			}
		}
		for _, p := range selfAndAncestors(path) {
			s.revs[p] = s.rev
		}
	}
	return changed
}
