package notify

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
)

func newRoster(t *testing.T, users map[string]family.User) rtdb.Store {
	t.Helper()
	store := rtdb.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	for id, u := range users {
		if err := store.Write(t.Context(), "users/"+id, u); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	return store
}

func TestSendToFamily(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var got struct {
		Tokens       []string          `json:"tokens"`
		Notification Notification      `json:"notification"`
		Data         map[string]string `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newRoster(t, map[string]family.User{
		"u1": {ID: "u1", Name: "Appa", FCMToken: "tok-1"},
		"u2": {ID: "u2", Name: "Mina", FCMToken: "tok-2"},
		"u3": {ID: "u3", Name: "Umma"}, // no device registered
	})

	c := New(srv.URL, store, logger)
	err := c.SendToFamily(t.Context(), Notification{Title: "New message", Body: "hi"}, map[string]string{"kind": "chat"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	slices.Sort(got.Tokens)
	if !slices.Equal(got.Tokens, []string{"tok-1", "tok-2"}) {
		t.Fatalf("tokens = %v, want the two registered devices", got.Tokens)
	}
	if got.Notification.Title != "New message" || got.Data["kind"] != "chat" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestSendToFamilyNoDevices(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	store := newRoster(t, map[string]family.User{
		"u1": {ID: "u1", Name: "Appa"},
	})

	c := New(srv.URL, store, logger)
	if err := c.SendToFamily(t.Context(), Notification{Title: "x"}, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if called {
		t.Fatal("provider was called with an empty device list")
	}
}

type logSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *logSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestSendLogsFailure(t *testing.T) {
	sink := &logSink{}
	logger := slog.New(slog.NewTextHandler(sink, nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "provider down", http.StatusBadGateway)
	}))
	defer srv.Close()

	store := newRoster(t, map[string]family.User{
		"u1": {ID: "u1", FCMToken: "tok-1"},
	})

	c := New(srv.URL, store, logger)
	c.Send(t.Context(), Notification{Title: "x"}, nil)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(sink.String(), "notification failed") {
		if time.Now().After(deadline) {
			t.Fatalf("failure was never logged, log: %q", sink.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendToFamilyProviderError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	store := newRoster(t, map[string]family.User{
		"u1": {ID: "u1", FCMToken: "tok-1"},
	})

	c := New(srv.URL, store, logger)
	if err := c.SendToFamily(t.Context(), Notification{Title: "x"}, nil); err == nil {
		t.Fatal("want error on provider failure")
	}
}
