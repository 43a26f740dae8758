package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yangfam/familyhub/internal/rtdb"
)

// handleEvents streams store changes for one subtree over SSE. Each
// change arrives as an `event: change` frame carrying the full subtree
// snapshot, so a client that missed intermediate states still converges
// on the latest one.
func handleEvents(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if err := rtdb.ValidPath(path); err != nil {
			writeError(w, http.StatusBadRequest, "invalid path")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		events := make(chan rtdb.Event, 8)
		cancel := app.Store.Subscribe(path, func(ev rtdb.Event) {
			select {
			case events <- ev:
			case <-r.Context().Done():
			}
		})
		defer cancel()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev := <-events:
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
