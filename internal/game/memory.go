package game

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/syncstore"
)

// MemoryPath is the shared subtree holding the memory-match state.
const MemoryPath = "games/memory"

var memoryEmojis = []string{"👨", "👩", "👶", "🐕", "🏠", "❤️", "🌟", "🎂"}

type Card struct {
	ID      int    `json:"id"`
	Emoji   string `json:"emoji"`
	Flipped bool   `json:"flipped"`
	Matched bool   `json:"matched"`
}

// MemoryState follows the same shared-object pattern as State, with the
// pair-match check standing in for move validation. Selected holds the ids
// of the one or two cards face up this turn.
type MemoryState struct {
	Cards       []Card   `json:"cards"`
	Players     []Player `json:"players"`
	CurrentTurn string   `json:"currentTurn,omitempty"`
	Selected    []int    `json:"selected"`
	Active      bool     `json:"active"`
	Moves       int      `json:"moves"`
}

// FlipResult reports how a second-card flip resolved so clients can run the
// reveal animation. The flip-back after a mismatch has already happened in
// the stored state; the one-second reveal is purely presentational.
type FlipResult struct {
	State    MemoryState `json:"state"`
	Resolved bool        `json:"resolved"`
	Matched  bool        `json:"matched"`
	Revealed []Card      `json:"revealed,omitempty"`
	GameOver bool        `json:"gameOver"`
}

// Memory is the memory-matching game over a shared 16-card deck.
type Memory struct {
	obj *syncstore.Object[MemoryState]
}

func NewMemory(store rtdb.Store) *Memory {
	return &Memory{obj: syncstore.NewObject[MemoryState](store, MemoryPath)}
}

func (m *Memory) Connect() { m.obj.Connect() }
func (m *Memory) Close()   { m.obj.Close() }

func (m *Memory) State(ctx context.Context) (MemoryState, error) {
	s, _, err := m.obj.Get(ctx)
	return s, err
}

// newDeck deals every emoji twice and shuffles.
func newDeck() []Card {
	cards := make([]Card, 0, 2*len(memoryEmojis))
	for _, e := range append(append([]string{}, memoryEmojis...), memoryEmojis...) {
		cards = append(cards, Card{ID: len(cards), Emoji: e})
	}
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i].Emoji, cards[j].Emoji = cards[j].Emoji, cards[i].Emoji
	})
	return cards
}

// Start deals a fresh shuffled deck for the given players and puts the
// first one on turn.
func (m *Memory) Start(ctx context.Context, players []Player) (MemoryState, error) {
	if len(players) < 2 {
		return MemoryState{}, family.ErrNotEnough
	}
	return m.obj.Transact(ctx, func(s MemoryState) (MemoryState, error) {
		if s.Active {
			return s, family.ErrGameActive
		}
		next := MemoryState{
			Cards:   newDeck(),
			Players: make([]Player, len(players)),
			Active:  true,
		}
		for i, p := range players {
			next.Players[i] = Player{ID: p.ID, Name: p.Name}
		}
		next.CurrentTurn = next.Players[0].ID
		return next, nil
	})
}

// Flip turns one card face up for the player on turn. The second flip of a
// turn resolves immediately: a match keeps the cards up, scores a point,
// and keeps the turn; a mismatch flips both back and passes the turn.
func (m *Memory) Flip(ctx context.Context, playerID string, cardID int) (FlipResult, error) {
	var res FlipResult
	s, err := m.obj.Transact(ctx, func(s MemoryState) (MemoryState, error) {
		res = FlipResult{}
		if !s.Active {
			return s, family.ErrGameNotActive
		}
		i := -1
		for idx, p := range s.Players {
			if p.ID == playerID {
				i = idx
			}
		}
		if i < 0 {
			return s, fmt.Errorf("%w: unknown player %s", family.ErrInvalidMove, playerID)
		}
		if s.CurrentTurn != playerID {
			return s, family.ErrNotYourTurn
		}
		if cardID < 0 || cardID >= len(s.Cards) {
			return s, fmt.Errorf("%w: card %d out of range", family.ErrInvalidMove, cardID)
		}
		card := s.Cards[cardID]
		if card.Matched || card.Flipped || len(s.Selected) >= 2 {
			return s, family.ErrAlreadyFlipped
		}

		s.Cards[cardID].Flipped = true
		s.Selected = append(s.Selected, cardID)
		if len(s.Selected) < 2 {
			return s, nil
		}

		// Second card: resolve the pair.
		first, second := s.Selected[0], s.Selected[1]
		res.Resolved = true
		res.Revealed = []Card{s.Cards[first], s.Cards[second]}
		s.Moves++
		if s.Cards[first].Emoji == s.Cards[second].Emoji {
			res.Matched = true
			s.Cards[first].Matched = true
			s.Cards[second].Matched = true
			s.Players[i].Score++
		} else {
			s.Cards[first].Flipped = false
			s.Cards[second].Flipped = false
			s.CurrentTurn = s.Players[(i+1)%len(s.Players)].ID
		}
		s.Selected = nil

		done := true
		for _, c := range s.Cards {
			if !c.Matched {
				done = false
				break
			}
		}
		if done {
			s.Active = false
			s.CurrentTurn = ""
			res.GameOver = true
		}
		return s, nil
	})
	if err != nil {
		return FlipResult{}, err
	}
	res.State = s
	return res, nil
}

// Reset clears the whole game object.
func (m *Memory) Reset(ctx context.Context) error {
	return m.obj.Delete(ctx)
}
