package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// instrumentedStore wraps a Store and counts operations per top-level
// subtree. Only the first path segment goes into the label to keep
// cardinality bounded.
type instrumentedStore struct {
	next Store

	ops       *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// WithMetrics registers store operation metrics on reg and returns the
// wrapped store.
func WithMetrics(next Store, reg prometheus.Registerer) Store {
	s := &instrumentedStore{
		next: next,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtdb_operations_total",
			Help: "Tree store operations by type and top-level subtree.",
		}, []string{"op", "subtree", "status"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtdb_conflicts_total",
			Help: "Compare-and-swap conflicts by top-level subtree.",
		}, []string{"subtree"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rtdb_operation_seconds",
			Help:    "Tree store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(s.ops, s.conflicts, s.latency)
	return s
}

func subtreeOf(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func (s *instrumentedStore) observe(op, path string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.ops.WithLabelValues(op, subtreeOf(path), status).Inc()
	s.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) Read(ctx context.Context, path string) (json.RawMessage, uint64, error) {
	start := time.Now()
	raw, rev, err := s.next.Read(ctx, path)
	s.observe("read", path, start, err)
	return raw, rev, err
}

func (s *instrumentedStore) Write(ctx context.Context, path string, value any) error {
	start := time.Now()
	err := s.next.Write(ctx, path, value)
	s.observe("write", path, start, err)
	return err
}

func (s *instrumentedStore) Update(ctx context.Context, path string, fields map[string]any) error {
	start := time.Now()
	err := s.next.Update(ctx, path, fields)
	s.observe("update", path, start, err)
	return err
}

func (s *instrumentedStore) CompareAndSwap(ctx context.Context, path string, expectedRev uint64, value any) error {
	start := time.Now()
	err := s.next.CompareAndSwap(ctx, path, expectedRev, value)
	if errors.Is(err, ErrConflict) {
		s.conflicts.WithLabelValues(subtreeOf(path)).Inc()
	}
	s.observe("cas", path, start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := s.next.Delete(ctx, path)
	s.observe("delete", path, start, err)
	return err
}

func (s *instrumentedStore) Push(ctx context.Context, path string, value any) (string, error) {
	start := time.Now()
	key, err := s.next.Push(ctx, path, value)
	s.observe("push", path, start, err)
	return key, err
}

func (s *instrumentedStore) Subscribe(path string, fn func(Event)) (cancel func()) {
	return s.next.Subscribe(path, fn)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
