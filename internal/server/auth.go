package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
)

// session is stored under sessions/{token}. Tokens are store-generated
// keys handed out at login and presented as Bearer tokens.
type session struct {
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

var errNoSession = errors.New("no valid session")

func userFromToken(ctx context.Context, store rtdb.Store, token string) (family.User, error) {
	raw, _, err := store.Read(ctx, sessionsPath+"/"+token)
	if err != nil {
		return family.User{}, err
	}
	if raw == nil {
		return family.User{}, errNoSession
	}
	var sess session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return family.User{}, errNoSession
	}

	raw, _, err = store.Read(ctx, usersPath+"/"+sess.UserID)
	if err != nil {
		return family.User{}, err
	}
	if raw == nil {
		return family.User{}, errNoSession
	}
	var u family.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return family.User{}, errNoSession
	}
	return u, nil
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		// SSE and WebSocket clients cannot set headers; accept a query
		// parameter there too.
		token = r.URL.Query().Get("token")
	}
	return token, token != ""
}
