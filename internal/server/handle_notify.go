package server

import (
	"context"
	"net/http"

	"github.com/yangfam/familyhub/internal/notify"
)

type NotifyRequest struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// handleNotify fans a push notification out to every registered device.
// Delivery is fire-and-forget: the provider round-trip happens off the
// request, so the caller gets a 202 immediately.
func handleNotify(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NotifyRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}

		if app.Notifier != nil {
			app.Notifier.Send(context.WithoutCancel(r.Context()), notify.Notification{
				Title: req.Title,
				Body:  req.Body,
			}, req.Data)
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
