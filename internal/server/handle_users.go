package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/yangfam/familyhub/internal/family"
)

type UserInfo struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Role   family.Role `json:"role"`
	Points int         `json:"points"`
}

// handleListUsers returns the family roster with cumulative mission points.
func handleListUsers(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		points, err := readPoints(r, app)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := make([]UserInfo, 0, len(users))
		for _, u := range users {
			out = append(out, UserInfo{ID: u.ID, Name: u.Name, Role: u.Role, Points: points[u.ID]})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		writeJSON(w, http.StatusOK, out)
	}
}

// handlePoints returns the per-user points ledger.
func handlePoints(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		points, err := readPoints(r, app)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, points)
	}
}

func readPoints(r *http.Request, app *App) (map[string]int, error) {
	raw, _, err := app.Store.Read(r.Context(), pointsPath)
	if err != nil {
		return nil, err
	}
	points := make(map[string]int)
	if raw != nil {
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, err
		}
	}
	return points, nil
}
