package game

import (
	"fmt"
	"unicode/utf8"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
)

// WordChainPath is the shared subtree holding the word-chain state.
const WordChainPath = "games/wordChain"

// NewWordChain builds the word-chain engine: each word must pick up the
// last character of the previous one, repeats are rejected, and a word
// scores its character count.
func NewWordChain(store rtdb.Store) *Engine {
	return NewEngine(store, WordChainPath, chainRule{}, utf8.RuneCountInString)
}

type chainRule struct{}

// Validate applies the chain rules: non-empty, first character matches the
// last character of the previous accepted word (the opening word has no
// predecessor and always passes), and no word repeats within a game.
// Matching is case-sensitive with no normalization.
func (chainRule) Validate(s State, word string) error {
	if word == "" {
		return fmt.Errorf("%w: empty word", family.ErrInvalidMove)
	}
	if len(s.Moves) > 0 {
		prev := s.Moves[len(s.Moves)-1].Value
		last, _ := utf8.DecodeLastRuneInString(prev)
		first, _ := utf8.DecodeRuneInString(word)
		if last != first {
			return fmt.Errorf("%w: %q must start with %q", family.ErrInvalidMove, word, last)
		}
	}
	for _, m := range s.Moves {
		if m.Value == word {
			return fmt.Errorf("%w: %q", family.ErrDuplicateWord, word)
		}
	}
	return nil
}
