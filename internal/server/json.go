package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/syncstore"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain errors onto status codes: validation
// failures get their explanatory message, infrastructure failures a
// generic one.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, family.ErrNotFound), errors.Is(err, syncstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, family.ErrNotAssignee),
		errors.Is(err, family.ErrNotVerifier),
		errors.Is(err, family.ErrNotOptionOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, family.ErrNotYourTurn),
		errors.Is(err, family.ErrGameNotActive),
		errors.Is(err, family.ErrGameActive),
		errors.Is(err, family.ErrVoteClosed),
		errors.Is(err, family.ErrVoteInactive),
		errors.Is(err, family.ErrBadTransition),
		errors.Is(err, family.ErrAlreadyTried),
		errors.Is(err, family.ErrAlreadyFlipped),
		errors.Is(err, rtdb.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, family.ErrInvalidMove),
		errors.Is(err, family.ErrDuplicateWord),
		errors.Is(err, family.ErrNotEnough):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
