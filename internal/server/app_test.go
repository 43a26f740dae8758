package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
)

func newTestServer(t *testing.T) (*chi.Mux, *App) {
	t.Helper()

	store := rtdb.NewMemoryStore()
	app := NewApp(store, nil, nil)
	app.Connect()
	t.Cleanup(func() {
		app.Close()
		store.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	addRoutes(r, logger, app, map[string]Checker{}, "")
	return r, app
}

// doJSON performs a request with an optional bearer token and JSON body,
// decoding the response into out when non-nil.
func doJSON(t *testing.T, h http.Handler, method, target, token string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %s: %v", rec.Body.String(), err)
		}
	}
	return rec
}

// login registers (or reuses) a family member and returns their session.
func login(t *testing.T, h http.Handler, name string, role family.Role) LoginResponse {
	t.Helper()
	var resp LoginResponse
	rec := doJSON(t, h, http.MethodPost, "/api/login", "", LoginRequest{Name: name, Role: role}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", name, rec.Code, rec.Body.String())
	}
	return resp
}
