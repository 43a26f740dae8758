package server

import (
	"net/http"
)

type WordRequest struct {
	Word string `json:"word"`
}

func handleWordChainState(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := app.WordChain.State(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleWordChainJoin(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r)
		state, err := app.WordChain.Join(r.Context(), user.ID, user.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleWordChainLeave(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r)
		state, err := app.WordChain.Leave(r.Context(), user.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleWordChainStart(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := app.WordChain.Start(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleWordChainWord(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WordRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user := userFrom(r)
		state, err := app.WordChain.Submit(r.Context(), user.ID, req.Word)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleWordChainEnd(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := app.WordChain.End(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleWordChainReset(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.WordChain.Reset(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
