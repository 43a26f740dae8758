package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/syncstore"
)

type LoginRequest struct {
	Name string      `json:"name"`
	Role family.Role `json:"role"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  family.User `json:"user"`
}

func validRole(r family.Role) bool {
	switch r {
	case family.RoleParent, family.RoleChild, family.RoleGrandparent:
		return true
	}
	return false
}

// handleLogin resolves a display name to a stable user, creating one on
// first login, and hands back a session token. There is no credential:
// the family roster is the trust boundary, matching the product.
func handleLogin(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || !validRole(req.Role) {
			writeError(w, http.StatusBadRequest, "name and a valid role are required")
			return
		}

		user, err := findUserByName(r, app, req.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user.ID == "" {
			user, err = app.Users.Create(r.Context(), func(id string) family.User {
				return family.User{
					ID:        id,
					Name:      req.Name,
					Role:      req.Role,
					CreatedAt: syncstore.Now(),
				}
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		token, err := app.Store.Push(r.Context(), sessionsPath, session{
			UserID:    user.ID,
			CreatedAt: syncstore.Now(),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
	}
}

func findUserByName(r *http.Request, app *App, name string) (family.User, error) {
	raw, _, err := app.Store.Read(r.Context(), usersPath)
	if err != nil {
		return family.User{}, err
	}
	var users map[string]family.User
	if raw != nil {
		if err := json.Unmarshal(raw, &users); err != nil {
			return family.User{}, err
		}
	}
	for _, u := range users {
		if u.Name == name {
			return u, nil
		}
	}
	return family.User{}, nil
}

func handleLogout(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			app.Store.Delete(r.Context(), sessionsPath+"/"+token)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userFrom(r))
	}
}

type FCMTokenRequest struct {
	Token string `json:"token"`
}

// handleRegisterDevice stores the caller's push token on their user record.
// A field merge, not a whole-user write: concurrent logins must not clobber.
func handleRegisterDevice(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FCMTokenRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user := userFrom(r)
		err := app.Store.Update(r.Context(), usersPath+"/"+user.ID, map[string]any{
			"fcmToken": req.Token,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
