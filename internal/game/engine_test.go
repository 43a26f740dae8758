package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
)

func newWordChain(t *testing.T) *Engine {
	t.Helper()
	store := rtdb.NewMemoryStore()
	e := NewWordChain(store)
	t.Cleanup(func() {
		e.Close()
		store.Close()
	})
	return e
}

func startWordChain(t *testing.T, e *Engine, players ...string) State {
	t.Helper()
	ctx := context.Background()
	for _, p := range players {
		if _, err := e.Join(ctx, p, "Player "+p); err != nil {
			t.Fatalf("join %s: %v", p, err)
		}
	}
	s, err := e.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	e := newWordChain(t)
	ctx := context.Background()

	if _, err := e.Join(ctx, "p1", "Mina"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := e.Start(ctx); !errors.Is(err, family.ErrNotEnough) {
		t.Fatalf("err = %v, want ErrNotEnough", err)
	}
}

func TestStartWhileActive(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2")

	if _, err := e.Start(context.Background()); !errors.Is(err, family.ErrGameActive) {
		t.Fatalf("err = %v, want ErrGameActive", err)
	}
}

func TestJoinTwiceIsNoop(t *testing.T) {
	e := newWordChain(t)
	ctx := context.Background()

	if _, err := e.Join(ctx, "p1", "Mina"); err != nil {
		t.Fatalf("join: %v", err)
	}
	s, err := e.Join(ctx, "p1", "Mina")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if len(s.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(s.Players))
	}
}

func TestWordChainSequence(t *testing.T) {
	e := newWordChain(t)
	s := startWordChain(t, e, "p1", "p2")
	ctx := context.Background()

	if s.CurrentTurn != "p1" {
		t.Fatalf("first turn = %q, want p1", s.CurrentTurn)
	}

	s, err := e.Submit(ctx, "p1", "apple")
	if err != nil {
		t.Fatalf("apple: %v", err)
	}
	if s.CurrentTurn != "p2" {
		t.Fatalf("turn after apple = %q, want p2", s.CurrentTurn)
	}

	s, err = e.Submit(ctx, "p2", "elephant")
	if err != nil {
		t.Fatalf("elephant: %v", err)
	}

	// "dog" does not start with the 't' of "elephant".
	_, err = e.Submit(ctx, "p1", "dog")
	if !errors.Is(err, family.ErrInvalidMove) {
		t.Fatalf("dog err = %v, want ErrInvalidMove", err)
	}

	// The rejection did not advance the turn; p1 may try again.
	s, err = e.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if s.CurrentTurn != "p1" {
		t.Fatalf("turn after rejection = %q, want p1", s.CurrentTurn)
	}
	if len(s.Moves) != 2 {
		t.Fatalf("moves = %d, want 2; rejection must not append", len(s.Moves))
	}

	// Repeating an accepted word is rejected even when it chains.
	_, err = e.Submit(ctx, "p1", "elephant")
	if !errors.Is(err, family.ErrDuplicateWord) {
		t.Fatalf("repeat err = %v, want ErrDuplicateWord", err)
	}

	s, err = e.Submit(ctx, "p1", "tiger")
	if err != nil {
		t.Fatalf("tiger: %v", err)
	}

	// Scores: word length in characters.
	scores := s.Scores(utf8.RuneCountInString)
	if scores["p1"] != len("apple")+len("tiger") {
		t.Fatalf("p1 score = %d, want %d", scores["p1"], len("apple")+len("tiger"))
	}
	if scores["p2"] != len("elephant") {
		t.Fatalf("p2 score = %d, want %d", scores["p2"], len("elephant"))
	}
	for _, p := range s.Players {
		if p.Score != scores[p.ID] {
			t.Fatalf("stored score for %s = %d, derived = %d", p.ID, p.Score, scores[p.ID])
		}
	}
}

func TestWordChainCaseSensitive(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2")
	ctx := context.Background()

	if _, err := e.Submit(ctx, "p1", "apple"); err != nil {
		t.Fatalf("apple: %v", err)
	}
	// 'E' != 'e': no normalization.
	if _, err := e.Submit(ctx, "p2", "Egg"); !errors.Is(err, family.ErrInvalidMove) {
		t.Fatalf("Egg err = %v, want ErrInvalidMove", err)
	}
	// "Apple" is not a duplicate of "apple", but it breaks the chain.
	if _, err := e.Submit(ctx, "p2", "Apple"); !errors.Is(err, family.ErrInvalidMove) {
		t.Fatalf("Apple err = %v, want ErrInvalidMove", err)
	}
}

func TestRepeatedInvalidSubmitChangesNothing(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2")
	ctx := context.Background()

	if _, err := e.Submit(ctx, "p1", "apple"); err != nil {
		t.Fatalf("apple: %v", err)
	}

	before, err := e.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	// The same broken word twice in a row: identical rejections, and the
	// state stays exactly what it was before either attempt.
	var errs [2]error
	for i := range errs {
		_, errs[i] = e.Submit(ctx, "p2", "dog")
		if !errors.Is(errs[i], family.ErrInvalidMove) {
			t.Fatalf("attempt %d err = %v, want ErrInvalidMove", i+1, errs[i])
		}
	}
	if errs[0].Error() != errs[1].Error() {
		t.Fatalf("rejections differ: %v vs %v", errs[0], errs[1])
	}

	after, err := e.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	got, _ := json.Marshal(after)
	want, _ := json.Marshal(before)
	if !bytes.Equal(got, want) {
		t.Fatalf("state changed by rejected submits:\nbefore %s\nafter  %s", want, got)
	}
}

func TestSubmitOutOfTurn(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2")
	ctx := context.Background()

	if _, err := e.Submit(ctx, "p2", "apple"); !errors.Is(err, family.ErrNotYourTurn) {
		t.Fatalf("err = %v, want ErrNotYourTurn", err)
	}
}

func TestSubmitWhenInactive(t *testing.T) {
	e := newWordChain(t)
	ctx := context.Background()

	if _, err := e.Submit(ctx, "p1", "apple"); !errors.Is(err, family.ErrGameNotActive) {
		t.Fatalf("err = %v, want ErrGameNotActive", err)
	}
}

func TestConcurrentSubmitOneWins(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2")
	ctx := context.Background()

	// Two sessions of the same player race the same turn. Exactly one
	// move lands; the loser re-validates against the winner's state and
	// fails the turn check.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	words := []string{"apple", "ant"}
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.Submit(ctx, "p1", words[i])
		}()
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, family.ErrNotYourTurn):
			losses++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins = %d losses = %d, want exactly one of each", wins, losses)
	}

	s, err := e.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(s.Moves) != 1 {
		t.Fatalf("moves = %d, want 1", len(s.Moves))
	}
	if s.CurrentTurn != "p2" {
		t.Fatalf("turn = %q, want p2", s.CurrentTurn)
	}
}

func TestEndAndRestart(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2")
	ctx := context.Background()

	if _, err := e.Submit(ctx, "p1", "apple"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	s, err := e.End(ctx)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if s.Active || s.CurrentTurn != "" {
		t.Fatalf("state after end = %+v", s)
	}

	// Restarting clears history and scores but keeps the roster.
	s, err = e.Start(ctx)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(s.Moves) != 0 {
		t.Fatalf("moves = %d after restart, want 0", len(s.Moves))
	}
	for _, p := range s.Players {
		if p.Score != 0 {
			t.Fatalf("score for %s = %d after restart, want 0", p.ID, p.Score)
		}
	}
	if s.CurrentTurn != "p1" {
		t.Fatalf("turn = %q, want p1", s.CurrentTurn)
	}
}

func TestLeaveOnTurn(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2", "p3")
	ctx := context.Background()

	s, err := e.Leave(ctx, "p1")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if s.CurrentTurn != "p2" {
		t.Fatalf("turn = %q after leaver held it, want p2", s.CurrentTurn)
	}
	if len(s.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(s.Players))
	}
}

func TestReset(t *testing.T) {
	e := newWordChain(t)
	startWordChain(t, e, "p1", "p2")
	ctx := context.Background()

	if err := e.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	s, err := e.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(s.Players) != 0 || s.Active {
		t.Fatalf("state after reset = %+v, want empty", s)
	}
}
