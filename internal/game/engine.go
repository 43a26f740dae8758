// Package game implements the turn-based shared-state engine behind the
// mini-games. One engine core handles turn order, move validation, and
// score accumulation; the games differ only in their Validator and Scorer.
//
// Every mutation goes through a conditional-write transaction against the
// shared state object, so two sessions that both believe it is their turn
// cannot both land a move: the loser's turn check re-runs against the value
// the winner wrote and fails with ErrNotYourTurn.
package game

import (
	"context"
	"fmt"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/syncstore"
)

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type Move struct {
	Value    string `json:"value"`
	PlayerID string `json:"playerId"`
	PlayedAt string `json:"playedAt"`
}

// State is the single shared game object. Players are kept in registration
// order; the turn rotates round-robin over that order. Scores are carried
// in the same object as the moves, so a move and its score land in one
// atomic write — and Scores recomputes them from history on read anyway.
type State struct {
	Players     []Player `json:"players"`
	Moves       []Move   `json:"moves"`
	CurrentTurn string   `json:"currentTurn,omitempty"`
	Active      bool     `json:"active"`
}

func (s State) playerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Scores derives each player's score purely from the accepted move history.
func (s State) Scores(score Scorer) map[string]int {
	out := make(map[string]int, len(s.Players))
	for _, p := range s.Players {
		out[p.ID] = 0
	}
	for _, m := range s.Moves {
		out[m.PlayerID] += score(m.Value)
	}
	return out
}

// Validator decides whether a submitted move is acceptable given the
// current state. It must not mutate s.
type Validator interface {
	Validate(s State, value string) error
}

// Scorer maps an accepted move to the points it awards.
type Scorer func(value string) int

type Engine struct {
	obj   *syncstore.Object[State]
	check Validator
	score Scorer
}

func NewEngine(store rtdb.Store, path string, check Validator, score Scorer) *Engine {
	return &Engine{
		obj:   syncstore.NewObject[State](store, path),
		check: check,
		score: score,
	}
}

func (e *Engine) Connect() { e.obj.Connect() }
func (e *Engine) Close()   { e.obj.Close() }

func (e *Engine) State(ctx context.Context) (State, error) {
	s, _, err := e.obj.Get(ctx)
	return s, err
}

// Join registers a player. Joining twice is a no-op. Players may join while
// a game runs; they enter the rotation at the end of the order.
func (e *Engine) Join(ctx context.Context, id, name string) (State, error) {
	return e.obj.Transact(ctx, func(s State) (State, error) {
		if s.playerIndex(id) >= 0 {
			return s, nil
		}
		s.Players = append(s.Players, Player{ID: id, Name: name})
		return s, nil
	})
}

func (e *Engine) Leave(ctx context.Context, id string) (State, error) {
	return e.obj.Transact(ctx, func(s State) (State, error) {
		i := s.playerIndex(id)
		if i < 0 {
			return s, nil
		}
		s.Players = append(s.Players[:i:i], s.Players[i+1:]...)
		if s.CurrentTurn == id {
			if len(s.Players) == 0 {
				s.CurrentTurn = ""
				s.Active = false
			} else {
				s.CurrentTurn = s.Players[i%len(s.Players)].ID
			}
		}
		return s, nil
	})
}

// Start begins a fresh game over the registered players: history cleared,
// scores zeroed, first registrant on turn. Restarting an ended game reuses
// the same transition.
func (e *Engine) Start(ctx context.Context) (State, error) {
	return e.obj.Transact(ctx, func(s State) (State, error) {
		if s.Active {
			return s, family.ErrGameActive
		}
		if len(s.Players) < 2 {
			return s, family.ErrNotEnough
		}
		for i := range s.Players {
			s.Players[i].Score = 0
		}
		s.Moves = nil
		s.Active = true
		s.CurrentTurn = s.Players[0].ID
		return s, nil
	})
}

// Submit applies one move. A rejected move returns the reason and leaves
// the state untouched — no history append, no turn advance, no score.
func (e *Engine) Submit(ctx context.Context, playerID, value string) (State, error) {
	return e.obj.Transact(ctx, func(s State) (State, error) {
		if !s.Active {
			return s, family.ErrGameNotActive
		}
		i := s.playerIndex(playerID)
		if i < 0 {
			return s, fmt.Errorf("%w: unknown player %s", family.ErrInvalidMove, playerID)
		}
		if s.CurrentTurn != playerID {
			return s, family.ErrNotYourTurn
		}
		if err := e.check.Validate(s, value); err != nil {
			return s, err
		}
		s.Moves = append(s.Moves, Move{
			Value:    value,
			PlayerID: playerID,
			PlayedAt: syncstore.Now(),
		})
		s.Players[i].Score += e.score(value)
		s.CurrentTurn = s.Players[(i+1)%len(s.Players)].ID
		return s, nil
	})
}

// End stops the game. Any player may end any game; nothing in the product
// restricts this to the starter.
func (e *Engine) End(ctx context.Context) (State, error) {
	return e.obj.Transact(ctx, func(s State) (State, error) {
		s.Active = false
		s.CurrentTurn = ""
		return s, nil
	})
}

// Reset clears the whole game object, players included.
func (e *Engine) Reset(ctx context.Context) error {
	return e.obj.Delete(ctx)
}
