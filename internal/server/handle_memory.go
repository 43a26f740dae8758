package server

import (
	"encoding/json"
	"net/http"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/game"
)

type MemoryStartRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

type MemoryFlipRequest struct {
	CardID int `json:"cardId"`
}

func handleMemoryState(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := app.Memory.State(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleMemoryStart(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MemoryStartRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		raw, _, err := app.Store.Read(r.Context(), usersPath)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		var users map[string]family.User
		if raw != nil {
			if err := json.Unmarshal(raw, &users); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		players := make([]game.Player, 0, len(req.PlayerIDs))
		for _, id := range req.PlayerIDs {
			u, ok := users[id]
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown player: "+id)
				return
			}
			players = append(players, game.Player{ID: u.ID, Name: u.Name})
		}

		state, err := app.Memory.Start(r.Context(), players)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleMemoryFlip(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MemoryFlipRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user := userFrom(r)
		result, err := app.Memory.Flip(r.Context(), user.ID, req.CardID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleMemoryReset(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Memory.Reset(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
