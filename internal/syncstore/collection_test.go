package syncstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yangfam/familyhub/internal/rtdb"
)

type note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Hits int    `json:"hits"`
}

func newTestCollection(t *testing.T) (*Collection[note], rtdb.Store) {
	t.Helper()
	store := rtdb.NewMemoryStore()
	c := NewCollection[note](store, "notes")
	c.Connect()
	t.Cleanup(func() {
		c.Close()
		store.Close()
	})
	return c, store
}

func TestCollectionCreateGet(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx := context.Background()

	created, err := c.Create(ctx, func(id string) note {
		return note{ID: id, Text: "hello"}
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("created id is empty")
	}

	got, err := c.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != created {
		t.Fatalf("get = %+v, want %+v", got, created)
	}
}

func TestCollectionGetMissing(t *testing.T) {
	c, _ := newTestCollection(t)

	_, err := c.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCollectionConcurrentCreateIDsUnique(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx := context.Background()

	const n = 40
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := c.Create(ctx, func(id string) note { return note{ID: id} })
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids <- e.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q from near-simultaneous creates", id)
		}
		seen[id] = true
	}
}

func TestCollectionCacheFollowsStore(t *testing.T) {
	c, store := newTestCollection(t)
	ctx := context.Background()

	created, err := c.Create(ctx, func(id string) note { return note{ID: id, Text: "x"} })
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The cache fills via subscription, not synchronously on Create.
	waitFor(t, func() bool {
		_, ok := c.Cached(created.ID)
		return ok
	})

	// A write from another session lands in this cache too.
	if err := store.Write(ctx, "notes/"+created.ID, note{ID: created.ID, Text: "remote"}); err != nil {
		t.Fatalf("remote write: %v", err)
	}
	waitFor(t, func() bool {
		e, ok := c.Cached(created.ID)
		return ok && e.Text == "remote"
	})
}

func TestCollectionUpdateKeepsConcurrentIncrements(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx := context.Background()

	created, err := c.Create(ctx, func(id string) note { return note{ID: id} })
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// With n writers each landing once, a loser retries at most n-1 times,
	// which stays inside the retry budget.
	const n = 5
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Update(ctx, created.ID, func(e note) (note, error) {
				e.Hits++
				return e, nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := c.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Hits != n {
		t.Fatalf("hits = %d, want %d; lost an update", got.Hits, n)
	}
}

func TestCollectionUpdateApplyErrorWritesNothing(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx := context.Background()

	created, err := c.Create(ctx, func(id string) note { return note{ID: id, Text: "keep"} })
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	wantErr := errors.New("domain says no")
	_, err = c.Update(ctx, created.ID, func(e note) (note, error) {
		e.Text = "clobbered"
		return e, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	got, _ := c.Get(ctx, created.ID)
	if got.Text != "keep" {
		t.Fatalf("text = %q, apply error must not write", got.Text)
	}
}

func TestCollectionRemove(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx := context.Background()

	created, err := c.Create(ctx, func(id string) note { return note{ID: id} })
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.Remove(ctx, created.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := c.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// Removing again is fine.
	if err := c.Remove(ctx, created.ID); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestObjectTransact(t *testing.T) {
	store := rtdb.NewMemoryStore()
	defer store.Close()
	o := NewObject[note](store, "shared/note")
	ctx := context.Background()

	// apply sees the zero value when the path is empty.
	got, err := o.Transact(ctx, func(e note) (note, error) {
		if e.ID != "" {
			t.Errorf("apply got %+v, want zero value", e)
		}
		e.ID = "n1"
		e.Hits = 1
		return e, nil
	})
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	if got.Hits != 1 {
		t.Fatalf("hits = %d, want 1", got.Hits)
	}

	const n = 5
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Transact(ctx, func(e note) (note, error) {
				e.Hits++
				return e, nil
			})
			if err != nil {
				t.Errorf("transact: %v", err)
			}
		}()
	}
	wg.Wait()

	v, exists, err := o.Get(ctx)
	if err != nil || !exists {
		t.Fatalf("get: %v exists=%v", err, exists)
	}
	if v.Hits != n+1 {
		t.Fatalf("hits = %d, want %d", v.Hits, n+1)
	}
}

func TestObjectTransactApplyErrorAborts(t *testing.T) {
	store := rtdb.NewMemoryStore()
	defer store.Close()
	o := NewObject[note](store, "shared/note")
	ctx := context.Background()

	if err := o.Set(ctx, note{ID: "n1", Text: "keep"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	wantErr := errors.New("guard tripped")
	_, err := o.Transact(ctx, func(e note) (note, error) { return e, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	v, _, _ := o.Get(ctx)
	if v.Text != "keep" {
		t.Fatalf("text = %q, aborted transact must not write", v.Text)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached")
}
