package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/syncstore"
)

type CalendarEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Type        string `json:"type"`
}

func handleListEvents(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _, err := app.Store.Read(r.Context(), calendarPath)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		events := []family.CalendarEvent{}
		if raw != nil {
			byID := map[string]family.CalendarEvent{}
			if err := json.Unmarshal(raw, &byID); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			for _, e := range byID {
				events = append(events, e)
			}
		}
		sort.Slice(events, func(i, j int) bool { return events[i].Date < events[j].Date })
		writeJSON(w, http.StatusOK, events)
	}
}

func handleCreateEvent(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CalendarEventRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" || req.Date == "" {
			writeError(w, http.StatusBadRequest, "title and date are required")
			return
		}

		user := userFrom(r)
		event, err := app.Calendar.Create(r.Context(), func(id string) family.CalendarEvent {
			return family.CalendarEvent{
				ID:          id,
				Title:       req.Title,
				Description: req.Description,
				Date:        req.Date,
				Type:        req.Type,
				CreatedBy:   user.ID,
				CreatedAt:   syncstore.Now(),
			}
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, event)
	}
}

func handleUpdateEvent(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req CalendarEventRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		event, err := app.Calendar.Update(r.Context(), id, func(e family.CalendarEvent) (family.CalendarEvent, error) {
			if req.Title != "" {
				e.Title = req.Title
			}
			if req.Description != "" {
				e.Description = req.Description
			}
			if req.Date != "" {
				e.Date = req.Date
			}
			if req.Type != "" {
				e.Type = req.Type
			}
			return e, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	}
}

func handleDeleteEvent(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Calendar.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
