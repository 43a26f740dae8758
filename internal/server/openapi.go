package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/game"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps check name to its status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "FamilyHub API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the FamilyHub app: calendar, chat, gallery, food votes, missions and mini-games over a shared real-time tree store.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Logs in by display name, creating the family member on first use. Returns a session token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(LoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postLogin)

	// POST /api/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/logout")
	postLogout.SetSummary("Log out")
	postLogout.SetDescription("Invalidates the session token. Requires Bearer token.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/me")
	getMe.SetSummary("Current member")
	getMe.SetDescription("Returns the authenticated family member. Requires Bearer token.")
	getMe.AddRespStructure(family.User{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/users
	listUsers, _ := r.NewOperationContext(http.MethodGet, "/api/users")
	listUsers.SetSummary("Family roster")
	listUsers.SetDescription("Returns all family members with their mission points. Requires Bearer token.")
	listUsers.AddRespStructure([]UserInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listUsers)

	// GET /api/calendar/events
	listEvents, _ := r.NewOperationContext(http.MethodGet, "/api/calendar/events")
	listEvents.SetSummary("List calendar events")
	listEvents.AddRespStructure([]family.CalendarEvent{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listEvents)

	// POST /api/calendar/events
	createEvent, _ := r.NewOperationContext(http.MethodPost, "/api/calendar/events")
	createEvent.SetSummary("Create calendar event")
	createEvent.AddReqStructure(CalendarEventRequest{})
	createEvent.AddRespStructure(family.CalendarEvent{}, openapi.WithHTTPStatus(http.StatusCreated))
	createEvent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createEvent)

	// GET /api/chat/messages
	listMessages, _ := r.NewOperationContext(http.MethodGet, "/api/chat/messages")
	listMessages.SetSummary("Chat history")
	listMessages.SetDescription("Returns messages ordered by send time.")
	listMessages.AddRespStructure([]family.ChatMessage{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listMessages)

	// POST /api/chat/messages
	postMessage, _ := r.NewOperationContext(http.MethodPost, "/api/chat/messages")
	postMessage.SetSummary("Send message")
	postMessage.AddReqStructure(ChatMessageRequest{})
	postMessage.AddRespStructure(family.ChatMessage{}, openapi.WithHTTPStatus(http.StatusCreated))
	postMessage.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postMessage)

	// GET /api/gallery
	listGallery, _ := r.NewOperationContext(http.MethodGet, "/api/gallery")
	listGallery.SetSummary("List gallery items")
	listGallery.AddRespStructure([]family.GalleryItem{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listGallery)

	// POST /api/gallery/{id}/like
	likeItem, _ := r.NewOperationContext(http.MethodPost, "/api/gallery/{id}/like")
	likeItem.SetSummary("Toggle like")
	likeItem.AddRespStructure(family.GalleryItem{}, openapi.WithHTTPStatus(http.StatusOK))
	likeItem.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(likeItem)

	// POST /api/upload
	postUpload, _ := r.NewOperationContext(http.MethodPost, "/api/upload")
	postUpload.SetSummary("Upload media")
	postUpload.SetDescription("Multipart upload. Returns the public URL to reference in gallery or chat entries.")
	postUpload.AddRespStructure(UploadResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postUpload.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postUpload)

	// GET /api/votes
	listVotes, _ := r.NewOperationContext(http.MethodGet, "/api/votes")
	listVotes.SetSummary("List food votes")
	listVotes.AddRespStructure([]family.FoodVote{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listVotes)

	// POST /api/votes/{id}/options/{optionID}/vote
	castVote, _ := r.NewOperationContext(http.MethodPost, "/api/votes/{id}/options/{optionID}/vote")
	castVote.SetSummary("Cast or retract a ballot")
	castVote.SetDescription("Toggles the caller's ballot on the option. Fails once the vote ended or its deadline passed.")
	castVote.AddRespStructure(family.FoodVote{}, openapi.WithHTTPStatus(http.StatusOK))
	castVote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(castVote)

	// GET /api/missions
	listMissions, _ := r.NewOperationContext(http.MethodGet, "/api/missions")
	listMissions.SetSummary("List missions")
	listMissions.AddRespStructure([]family.Mission{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listMissions)

	// POST /api/missions/{id}/verify
	verifyMission, _ := r.NewOperationContext(http.MethodPost, "/api/missions/{id}/verify")
	verifyMission.SetSummary("Verify mission")
	verifyMission.SetDescription("Accepts a handed-in mission and credits its points. Verifier must not be the assignee.")
	verifyMission.AddRespStructure(family.Mission{}, openapi.WithHTTPStatus(http.StatusOK))
	verifyMission.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	verifyMission.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(verifyMission)

	// GET /api/games/wordchain
	wcState, _ := r.NewOperationContext(http.MethodGet, "/api/games/wordchain")
	wcState.SetSummary("Word chain state")
	wcState.AddRespStructure(game.State{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(wcState)

	// POST /api/games/wordchain/word
	wcWord, _ := r.NewOperationContext(http.MethodPost, "/api/games/wordchain/word")
	wcWord.SetSummary("Play a word")
	wcWord.SetDescription("Submits a word for the caller's turn. Out-of-turn submissions are rejected.")
	wcWord.AddReqStructure(WordRequest{})
	wcWord.AddRespStructure(game.State{}, openapi.WithHTTPStatus(http.StatusOK))
	wcWord.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	wcWord.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(wcWord)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE change stream")
	getEvents.SetDescription("Server-Sent Events stream of store changes under the subtree named by the path query parameter. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/watch
	getWatch, _ := r.NewOperationContext(http.MethodGet, "/api/watch")
	getWatch.SetSummary("WebSocket change stream")
	getWatch.SetDescription("Upgrades to a WebSocket carrying the same change feed as /api/events.")
	getWatch.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWatch)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
