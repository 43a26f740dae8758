package server

import (
	"context"
	"net/http"

	"github.com/yangfam/familyhub/internal/family"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// authMiddleware resolves the Bearer session token to a user and stores it
// on the request context. Everything behind /api except login requires it.
func authMiddleware(app *App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}

			user, err := userFromToken(r.Context(), app.Store, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFrom(r *http.Request) family.User {
	return r.Context().Value(ctxKeyUser).(family.User)
}
