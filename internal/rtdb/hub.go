package rtdb

import (
	"context"
	"sync"
)

// hub fans change notifications out to subscribers. Each subscription gets
// its own goroutine and a one-slot signal channel: notifications coalesce
// instead of queueing, and the goroutine reads a fresh snapshot before every
// callback, so subscribers always converge on the latest value even when
// intermediate writes are skipped.
type hub struct {
	read func(ctx context.Context, path string) (value any, rev uint64, err error)

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

type subscription struct {
	path string
	kick chan struct{}
	done chan struct{}
}

func newHub(read func(ctx context.Context, path string) (any, uint64, error)) *hub {
	return &hub{
		read: read,
		subs: make(map[*subscription]struct{}),
	}
}

func (h *hub) subscribe(path string, fn func(Event)) func() {
	sub := &subscription{
		path: path,
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	sub.kick <- struct{}{} // initial delivery

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go h.run(sub, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			close(sub.done)
		})
	}
}

func (h *hub) run(sub *subscription, fn func(Event)) {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.kick:
		}

		value, rev, err := h.read(context.Background(), sub.path)
		if err != nil {
			continue
		}
		raw, err := encodeValue(value)
		if err != nil {
			continue
		}
		fn(Event{Path: sub.path, Value: raw, Rev: rev})
	}
}

// notify wakes every subscription overlapping the changed path. A pending
// wake-up already covers the new change, so a full slot is left alone.
func (h *hub) notify(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if !overlaps(sub.path, path) {
			continue
		}
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.done)
	}
}
