package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, app *App, checks map[string]Checker, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("FamilyHub API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/login", handleLogin(app))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(app))

		r.Post("/logout", handleLogout(app))
		r.Get("/me", handleMe())
		r.Post("/me/device", handleRegisterDevice(app))
		r.Get("/users", handleListUsers(app))
		r.Get("/points", handlePoints(app))

		r.Get("/events", handleEvents(app))
		r.Get("/watch", handleWatch(app, logger))
		r.Post("/notify", handleNotify(app))
		r.Post("/upload", handleUpload(app))

		r.Route("/calendar/events", func(r chi.Router) {
			r.Get("/", handleListEvents(app))
			r.Post("/", handleCreateEvent(app))
			r.Put("/{id}", handleUpdateEvent(app))
			r.Delete("/{id}", handleDeleteEvent(app))
		})

		r.Route("/chat/messages", func(r chi.Router) {
			r.Get("/", handleListMessages(app))
			r.Post("/", handleSendMessage(app))
			r.Delete("/", handleClearMessages(app))
		})

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", handleListGallery(app))
			r.Post("/", handleCreateGalleryItem(app))
			r.Post("/{id}/like", handleLikeGalleryItem(app))
			r.Delete("/{id}", handleDeleteGalleryItem(app))
		})

		r.Route("/votes", func(r chi.Router) {
			r.Get("/", handleListVotes(app))
			r.Post("/", handleCreateVote(app))
			r.Post("/{id}/options", handleAddVoteOption(app))
			r.Delete("/{id}/options/{optionID}", handleRemoveVoteOption(app))
			r.Post("/{id}/options/{optionID}/vote", handleCastVote(app))
			r.Post("/{id}/end", handleEndVote(app))
			r.Delete("/{id}", handleDeleteVote(app))
		})

		r.Route("/missions", func(r chi.Router) {
			r.Get("/", handleListMissions(app))
			r.Post("/", handleCreateMission(app))
			r.Post("/{id}/complete", handleCompleteMission(app))
			r.Post("/{id}/verify", handleVerifyMission(app))
			r.Post("/{id}/reject", handleRejectMission(app))
			r.Delete("/{id}", handleDeleteMission(app))
		})

		r.Route("/games/wordchain", func(r chi.Router) {
			r.Get("/", handleWordChainState(app))
			r.Post("/join", handleWordChainJoin(app))
			r.Post("/leave", handleWordChainLeave(app))
			r.Post("/start", handleWordChainStart(app))
			r.Post("/word", handleWordChainWord(app))
			r.Post("/end", handleWordChainEnd(app))
			r.Post("/reset", handleWordChainReset(app))
		})

		r.Route("/games/memory", func(r chi.Router) {
			r.Get("/", handleMemoryState(app))
			r.Post("/start", handleMemoryStart(app))
			r.Post("/flip", handleMemoryFlip(app))
			r.Post("/reset", handleMemoryReset(app))
		})

		r.Route("/games/quiz", func(r chi.Router) {
			r.Get("/questions", handleQuizQuestions(app))
			r.Post("/questions", handleQuizAddQuestion(app))
			r.Delete("/questions/{id}", handleQuizRemoveQuestion(app))
			r.Post("/questions/{id}/answer", handleQuizAnswer(app))
			r.Get("/scores", handleQuizScores(app))
			r.Post("/reset", handleQuizReset(app))
		})
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
