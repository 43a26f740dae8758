package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/syncstore"
)

// Quiz subtrees. Unlike the turn games, the quiz is free-for-all: anyone
// may answer any question once, there is no turn concept.
const (
	QuizQuestionsPath = "games/quiz/questions"
	QuizAttemptsPath  = "games/quiz/attempts"
)

type Quiz struct {
	store     rtdb.Store
	questions *syncstore.Collection[family.QuizQuestion]
}

func NewQuiz(store rtdb.Store) *Quiz {
	return &Quiz{
		store:     store,
		questions: syncstore.NewCollection[family.QuizQuestion](store, QuizQuestionsPath),
	}
}

func (q *Quiz) Connect() { q.questions.Connect() }
func (q *Quiz) Close()   { q.questions.Close() }

func (q *Quiz) AddQuestion(ctx context.Context, question, answer, category, createdBy string) (family.QuizQuestion, error) {
	return q.questions.Create(ctx, func(id string) family.QuizQuestion {
		return family.QuizQuestion{
			ID:        id,
			Question:  question,
			Answer:    answer,
			Category:  category,
			CreatedBy: createdBy,
		}
	})
}

func (q *Quiz) RemoveQuestion(ctx context.Context, id string) error {
	return q.questions.Remove(ctx, id)
}

// Questions lists the bank sorted by question text for a stable order.
func (q *Quiz) Questions(ctx context.Context) ([]family.QuizQuestion, error) {
	raw, _, err := q.store.Read(ctx, QuizQuestionsPath)
	if err != nil {
		return nil, err
	}
	items, err := decodeMap[family.QuizQuestion](raw)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Question < items[j].Question })
	return items, nil
}

// Answer checks the submission against the canonical answer,
// case-insensitively, and records the attempt. Each player gets one attempt
// per question; the attempt key is derived from both ids so a double submit
// — even a racing one — lands on the same path and is rejected.
func (q *Quiz) Answer(ctx context.Context, questionID, playerID, answer string) (family.QuizAttempt, error) {
	question, err := q.questions.Get(ctx, questionID)
	if err != nil {
		return family.QuizAttempt{}, err
	}

	attempt := family.QuizAttempt{
		QuestionID: questionID,
		PlayerID:   playerID,
		Answer:     answer,
		IsCorrect:  strings.EqualFold(answer, question.Answer),
		AnsweredAt: syncstore.Now(),
	}

	path := QuizAttemptsPath + "/" + questionID + ":" + playerID
	for i := 0; i < 5; i++ {
		raw, rev, err := q.store.Read(ctx, path)
		if err != nil {
			return family.QuizAttempt{}, err
		}
		if raw != nil {
			return family.QuizAttempt{}, fmt.Errorf("%w: question %s", family.ErrAlreadyTried, questionID)
		}
		err = q.store.CompareAndSwap(ctx, path, rev, attempt)
		if errors.Is(err, rtdb.ErrConflict) {
			continue
		}
		if err != nil {
			return family.QuizAttempt{}, fmt.Errorf("recording attempt: %w", err)
		}
		return attempt, nil
	}
	return family.QuizAttempt{}, fmt.Errorf("recording attempt: %w", rtdb.ErrConflict)
}

// Scores derives per-player correct-answer counts from the attempt history.
// Scores are never stored independently, so they cannot drift.
func (q *Quiz) Scores(ctx context.Context) (map[string]int, error) {
	raw, _, err := q.store.Read(ctx, QuizAttemptsPath)
	if err != nil {
		return nil, err
	}
	attempts, err := decodeMap[family.QuizAttempt](raw)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int)
	for _, a := range attempts {
		if a.IsCorrect {
			scores[a.PlayerID]++
		}
	}
	return scores, nil
}

// Reset clears questions and attempts.
func (q *Quiz) Reset(ctx context.Context) error {
	if err := q.store.Delete(ctx, QuizAttemptsPath); err != nil {
		return err
	}
	return q.store.Delete(ctx, QuizQuestionsPath)
}

func decodeMap[T any](raw []byte) ([]T, error) {
	if raw == nil {
		return nil, nil
	}
	byID := make(map[string]T)
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(byID))
	for _, v := range byID {
		out = append(out, v)
	}
	return out, nil
}
