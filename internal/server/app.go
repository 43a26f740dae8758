package server

import (
	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/game"
	"github.com/yangfam/familyhub/internal/notify"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/syncstore"
	"github.com/yangfam/familyhub/internal/upload"
)

// Tree layout. Every feature owns one subtree; the store is the only thing
// sessions share.
const (
	usersPath    = "users"
	sessionsPath = "sessions"
	calendarPath = "calendar/events"
	chatPath     = "chat/messages"
	galleryPath  = "gallery/images"
	votesPath    = "foodVotes"
	missionsPath = "missions"
	pointsPath   = "points"
)

// App bundles the synchronized stores and game engines over one injected
// tree store. Tests build it over a MemoryStore; main wires the configured
// backend. Nothing here is a package-level singleton.
type App struct {
	Store rtdb.Store

	Users    *syncstore.Collection[family.User]
	Calendar *syncstore.Collection[family.CalendarEvent]
	Chat     *syncstore.Collection[family.ChatMessage]
	Gallery  *syncstore.Collection[family.GalleryItem]
	Votes    *syncstore.Collection[family.FoodVote]
	Missions *syncstore.Collection[family.Mission]

	WordChain *game.Engine
	Memory    *game.Memory
	Quiz      *game.Quiz

	Notifier *notify.Client
	Uploader upload.Uploader
}

func NewApp(store rtdb.Store, notifier *notify.Client, uploader upload.Uploader) *App {
	return &App{
		Store:     store,
		Users:     syncstore.NewCollection[family.User](store, usersPath),
		Calendar:  syncstore.NewCollection[family.CalendarEvent](store, calendarPath),
		Chat:      syncstore.NewCollection[family.ChatMessage](store, chatPath),
		Gallery:   syncstore.NewCollection[family.GalleryItem](store, galleryPath),
		Votes:     syncstore.NewCollection[family.FoodVote](store, votesPath),
		Missions:  syncstore.NewCollection[family.Mission](store, missionsPath),
		WordChain: game.NewWordChain(store),
		Memory:    game.NewMemory(store),
		Quiz:      game.NewQuiz(store),
		Notifier:  notifier,
		Uploader:  uploader,
	}
}

// Connect registers every store subscription. Call once at startup, after
// the tree store is ready.
func (a *App) Connect() {
	a.Users.Connect()
	a.Calendar.Connect()
	a.Chat.Connect()
	a.Gallery.Connect()
	a.Votes.Connect()
	a.Missions.Connect()
	a.WordChain.Connect()
	a.Memory.Connect()
	a.Quiz.Connect()
}

func (a *App) Close() {
	a.Users.Close()
	a.Calendar.Close()
	a.Chat.Close()
	a.Gallery.Close()
	a.Votes.Close()
	a.Missions.Close()
	a.WordChain.Close()
	a.Memory.Close()
	a.Quiz.Close()
}
