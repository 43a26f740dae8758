package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/yangfam/familyhub/internal/rtdb"
)

// handleWatch streams the same change feed as the SSE endpoint over a
// websocket, for clients that keep a socket open anyway (the mobile
// app). One subscription per connection; the requested path comes from
// the query string.
func handleWatch(app *App, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if err := rtdb.ValidPath(path); err != nil {
			writeError(w, http.StatusBadRequest, "invalid path")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancelCtx := context.WithCancel(r.Context())
		defer cancelCtx()

		events := make(chan rtdb.Event, 8)
		cancel := app.Store.Subscribe(path, func(ev rtdb.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		defer cancel()

		// Drain reads so pings and close frames are processed.
		go func() {
			defer cancelCtx()
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				writeCtx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
				err = conn.Write(writeCtx, websocket.MessageText, data)
				cancelWrite()
				if err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
