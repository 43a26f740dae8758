package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type QuizQuestionRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

type QuizAnswerRequest struct {
	Answer string `json:"answer"`
}

func handleQuizQuestions(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := app.Quiz.Questions(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, questions)
	}
}

func handleQuizAddQuestion(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuizQuestionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
			writeError(w, http.StatusBadRequest, "question and answer are required")
			return
		}

		user := userFrom(r)
		q, err := app.Quiz.AddQuestion(r.Context(), req.Question, req.Answer, req.Category, user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func handleQuizRemoveQuestion(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Quiz.RemoveQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleQuizAnswer(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuizAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user := userFrom(r)
		attempt, err := app.Quiz.Answer(r.Context(), chi.URLParam(r, "id"), user.ID, req.Answer)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, attempt)
	}
}

func handleQuizScores(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scores, err := app.Quiz.Scores(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}

func handleQuizReset(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Quiz.Reset(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
