package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryWriteRead(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "users/u1", map[string]any{"name": "Mina", "age": 12}); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, rev, err := s.Read(ctx, "users/u1/name")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != `"Mina"` {
		t.Fatalf("name = %s, want %q", raw, "Mina")
	}
	if rev == 0 {
		t.Fatalf("rev = 0, want > 0 after write")
	}

	// Reading the parent assembles the object back.
	raw, _, err = s.Read(ctx, "users/u1")
	if err != nil {
		t.Fatalf("read parent: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["name"] != "Mina" || got["age"] != float64(12) {
		t.Fatalf("parent = %v", got)
	}
}

func TestMemoryMissingIsNil(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	raw, rev, err := s.Read(context.Background(), "nothing/here")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if raw != nil {
		t.Fatalf("raw = %s, want nil", raw)
	}
	if rev != 0 {
		t.Fatalf("rev = %d, want 0", rev)
	}
}

func TestMemoryInvalidPath(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	for _, path := range []string{"", "a//b", "/a", "a/", "a b", "a/#"} {
		if err := s.Write(ctx, path, 1); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("write %q: err = %v, want ErrInvalidPath", path, err)
		}
	}
}

func TestMemoryWriteReplacesSubtree(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "cfg", map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Whole-subtree overwrite drops b, it is not a merge.
	if err := s.Write(ctx, "cfg", map[string]any{"a": 3}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	raw, _, _ := s.Read(ctx, "cfg/b")
	if raw != nil {
		t.Fatalf("cfg/b = %s, want gone after overwrite", raw)
	}
	raw, _, _ = s.Read(ctx, "cfg/a")
	if string(raw) != "3" {
		t.Fatalf("cfg/a = %s, want 3", raw)
	}
}

func TestMemoryUpdateMergesFields(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "cfg", map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Update(ctx, "cfg", map[string]any{"b": 9, "c": 3}); err != nil {
		t.Fatalf("update: %v", err)
	}

	raw, _, _ := s.Read(ctx, "cfg")
	var got map[string]int
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]int{"a": 1, "b": 9, "c": 3}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("cfg = %v, want %v", got, want)
		}
	}
}

func TestMemoryDelete(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "tmp/x", "v"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	raw, _, _ := s.Read(ctx, "tmp")
	if raw != nil {
		t.Fatalf("tmp = %s, want nil", raw)
	}

	// Deleting again is a no-op, not an error.
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestMemoryPushKeysUnique(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	const n = 50
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := s.Push(ctx, "chat/messages", map[string]any{"content": "hi"})
			if err != nil {
				t.Errorf("push: %v", err)
				return
			}
			keys <- key
		}()
	}
	wg.Wait()
	close(keys)

	seen := make(map[string]bool)
	for key := range keys {
		if seen[key] {
			t.Fatalf("duplicate push key %q", key)
		}
		seen[key] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d keys, want %d", len(seen), n)
	}
}

func TestMemoryCompareAndSwap(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "game", map[string]any{"turn": "p1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, rev, err := s.Read(ctx, "game")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := s.CompareAndSwap(ctx, "game", rev, map[string]any{"turn": "p2"}); err != nil {
		t.Fatalf("cas at current rev: %v", err)
	}

	// The stale revision loses.
	err = s.CompareAndSwap(ctx, "game", rev, map[string]any{"turn": "p3"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("stale cas err = %v, want ErrConflict", err)
	}
	raw, _, _ := s.Read(ctx, "game/turn")
	if string(raw) != `"p2"` {
		t.Fatalf("turn = %s, want p2; losing swap must change nothing", raw)
	}
}

func TestMemoryCASOnMissingPath(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	// Both racers read the missing node at the same revision; only the
	// first swap lands.
	_, rev, err := s.Read(ctx, "quiz/attempts/q1:p1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := s.CompareAndSwap(ctx, "quiz/attempts/q1:p1", rev, map[string]any{"answer": "a"}); err != nil {
		t.Fatalf("first cas: %v", err)
	}
	err = s.CompareAndSwap(ctx, "quiz/attempts/q1:p1", rev, map[string]any{"answer": "b"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second cas err = %v, want ErrConflict", err)
	}
}

func TestMemoryAncestorRevision(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "a", map[string]any{"b": map[string]any{"c": 1}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, revChild, _ := s.Read(ctx, "a/b/c")
	_, revRootNode, _ := s.Read(ctx, "a")
	if revChild != revRootNode {
		t.Fatalf("child rev %d != ancestor rev %d; unwritten paths inherit", revChild, revRootNode)
	}

	// Overwriting the ancestor bumps the child's revision too.
	if err := s.Write(ctx, "a", map[string]any{"b": map[string]any{"c": 2}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_, revAfter, _ := s.Read(ctx, "a/b/c")
	if revAfter <= revChild {
		t.Fatalf("rev after ancestor overwrite = %d, want > %d", revAfter, revChild)
	}
}

func TestMemorySubscribeDeliversLatest(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "chat/messages/m1", map[string]any{"content": "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	events := make(chan Event, 16)
	cancel := s.Subscribe("chat/messages", func(ev Event) { events <- ev })
	defer cancel()

	// First delivery carries the current value.
	ev := waitEvent(t, events)
	if ev.Value == nil {
		t.Fatalf("initial event value = nil, want current subtree")
	}

	if err := s.Write(ctx, "chat/messages/m2", map[string]any{"content": "again"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Eventually an event reflects m2; intermediate states may be skipped.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			var msgs map[string]map[string]any
			if err := json.Unmarshal(ev.Value, &msgs); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if _, ok := msgs["m2"]; ok {
				return
			}
		case <-deadline:
			t.Fatalf("no event containing m2")
		}
	}
}

func TestMemorySubscribeUnrelatedPath(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	events := make(chan Event, 16)
	cancel := s.Subscribe("calendar/events", func(ev Event) { events <- ev })
	defer cancel()

	waitEvent(t, events) // initial delivery

	if err := s.Write(ctx, "chat/messages/m1", "x"); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case ev := <-events:
		t.Fatalf("got event %+v for unrelated write", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemorySubscribeCancel(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	events := make(chan Event, 16)
	cancel := s.Subscribe("x", func(ev Event) { events <- ev })
	waitEvent(t, events)
	cancel()
	cancel() // cancel is idempotent

	if err := s.Write(ctx, "x/y", 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case ev := <-events:
		t.Fatalf("got event %+v after cancel", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}
