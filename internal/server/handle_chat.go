package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/notify"
	"github.com/yangfam/familyhub/internal/syncstore"
)

type ChatMessageRequest struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	ImageURL string `json:"imageUrl"`
}

// handleListMessages returns history ordered by timestamp field, not key
// order: keys are random, send time is what the room renders by.
func handleListMessages(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _, err := app.Store.Read(r.Context(), chatPath)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		messages := []family.ChatMessage{}
		if raw != nil {
			byID := map[string]family.ChatMessage{}
			if err := json.Unmarshal(raw, &byID); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			for _, m := range byID {
				messages = append(messages, m)
			}
		}
		sort.Slice(messages, func(i, j int) bool { return messages[i].Timestamp < messages[j].Timestamp })
		writeJSON(w, http.StatusOK, messages)
	}
}

func handleSendMessage(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatMessageRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Type == "" {
			req.Type = "text"
		}
		if req.Type == "text" && strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		if req.Type == "image" && req.ImageURL == "" {
			writeError(w, http.StatusBadRequest, "imageUrl is required for image messages")
			return
		}

		user := userFrom(r)
		msg, err := app.Chat.Create(r.Context(), func(id string) family.ChatMessage {
			return family.ChatMessage{
				ID:        id,
				Content:   req.Content,
				UserID:    user.ID,
				UserName:  user.Name,
				Timestamp: syncstore.Now(),
				Type:      req.Type,
				ImageURL:  req.ImageURL,
			}
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Fire-and-forget; chat must not block on the push provider.
		if app.Notifier != nil {
			app.Notifier.Send(context.WithoutCancel(r.Context()), notify.Notification{
				Title: user.Name,
				Body:  req.Content,
			}, map[string]string{"type": "chat"})
		}

		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleClearMessages(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Store.Delete(r.Context(), chatPath); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
