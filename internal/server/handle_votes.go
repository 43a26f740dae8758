package server

import (
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/syncstore"
)

type FoodVoteRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	EndTime     string              `json:"endTime"`
	Options     []FoodOptionRequest `json:"options"`
}

type FoodOptionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// voteOpen reports whether ballots are still accepted. A vote closes
// either way: the creator ends it, or the deadline passes. The deadline
// wins even when nobody flipped isActive off.
func voteOpen(v family.FoodVote, now time.Time) error {
	if !v.IsActive {
		return family.ErrVoteInactive
	}
	if end, err := time.Parse(time.RFC3339Nano, v.EndTime); err == nil && now.After(end) {
		return family.ErrVoteClosed
	}
	return nil
}

func handleListVotes(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		votes := app.Votes.List()
		sort.Slice(votes, func(i, j int) bool { return votes[i].CreatedAt > votes[j].CreatedAt })
		writeJSON(w, http.StatusOK, votes)
	}
}

func handleCreateVote(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FoodVoteRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}

		user := userFrom(r)
		now := syncstore.Now()
		vote, err := app.Votes.Create(r.Context(), func(id string) family.FoodVote {
			options := make([]family.FoodOption, 0, len(req.Options))
			for _, o := range req.Options {
				options = append(options, family.FoodOption{
					ID:          rtdb.NewKey(),
					Name:        o.Name,
					Description: o.Description,
					ImageURL:    o.ImageURL,
					Votes:       []string{},
					CreatedBy:   user.ID,
					CreatedAt:   now,
				})
			}
			return family.FoodVote{
				ID:          id,
				Title:       req.Title,
				Description: req.Description,
				Options:     options,
				EndTime:     req.EndTime,
				IsActive:    true,
				CreatedBy:   user.ID,
				CreatedAt:   now,
			}
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, vote)
	}
}

func handleAddVoteOption(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req FoodOptionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		user := userFrom(r)
		vote, err := app.Votes.Update(r.Context(), id, func(v family.FoodVote) (family.FoodVote, error) {
			if err := voteOpen(v, time.Now()); err != nil {
				return v, err
			}
			v.Options = append(slices.Clone(v.Options), family.FoodOption{
				ID:          rtdb.NewKey(),
				Name:        req.Name,
				Description: req.Description,
				ImageURL:    req.ImageURL,
				Votes:       []string{},
				CreatedBy:   user.ID,
				CreatedAt:   syncstore.Now(),
			})
			return v, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vote)
	}
}

func handleRemoveVoteOption(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		optionID := chi.URLParam(r, "optionID")

		user := userFrom(r)
		vote, err := app.Votes.Update(r.Context(), id, func(v family.FoodVote) (family.FoodVote, error) {
			i := slices.IndexFunc(v.Options, func(o family.FoodOption) bool { return o.ID == optionID })
			if i < 0 {
				return v, family.ErrNotFound
			}
			if v.Options[i].CreatedBy != user.ID && v.CreatedBy != user.ID {
				return v, family.ErrNotOptionOwner
			}
			v.Options = slices.Delete(slices.Clone(v.Options), i, i+1)
			return v, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vote)
	}
}

// handleCastVote toggles the caller's ballot on one option. A member
// holds at most one ballot per vote, so picking a new option moves the
// ballot rather than adding a second.
func handleCastVote(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		optionID := chi.URLParam(r, "optionID")

		user := userFrom(r)
		vote, err := app.Votes.Update(r.Context(), id, func(v family.FoodVote) (family.FoodVote, error) {
			if err := voteOpen(v, time.Now()); err != nil {
				return v, err
			}
			target := slices.IndexFunc(v.Options, func(o family.FoodOption) bool { return o.ID == optionID })
			if target < 0 {
				return v, family.ErrNotFound
			}
			options := slices.Clone(v.Options)
			for i := range options {
				votes := slices.Clone(options[i].Votes)
				if j := slices.Index(votes, user.ID); j >= 0 {
					votes = slices.Delete(votes, j, j+1)
				} else if i == target {
					votes = append(votes, user.ID)
				}
				options[i].Votes = votes
			}
			v.Options = options
			return v, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vote)
	}
}

func handleEndVote(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		vote, err := app.Votes.Update(r.Context(), id, func(v family.FoodVote) (family.FoodVote, error) {
			v.IsActive = false
			return v, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vote)
	}
}

func handleDeleteVote(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		user := userFrom(r)

		vote, err := app.Votes.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if vote.CreatedBy != user.ID {
			writeError(w, http.StatusForbidden, "only the creator can delete this vote")
			return
		}
		if err := app.Votes.Remove(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
