package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/notify"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/syncstore"
)

type MissionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	AssignedTo  string `json:"assignedTo"`
	DueDate     string `json:"dueDate"`
}

type MissionProofRequest struct {
	Proof string `json:"proof"`
}

type MissionRejectRequest struct {
	Reason string `json:"reason"`
}

func handleListMissions(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		missions := app.Missions.List()
		sort.Slice(missions, func(i, j int) bool { return missions[i].CreatedAt > missions[j].CreatedAt })
		writeJSON(w, http.StatusOK, missions)
	}
}

func handleCreateMission(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MissionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title == "" || req.AssignedTo == "" {
			writeError(w, http.StatusBadRequest, "title and assignedTo are required")
			return
		}
		if req.Points < 0 {
			writeError(w, http.StatusBadRequest, "points must not be negative")
			return
		}

		user := userFrom(r)
		mission, err := app.Missions.Create(r.Context(), func(id string) family.Mission {
			return family.Mission{
				ID:          id,
				Title:       req.Title,
				Description: req.Description,
				Points:      req.Points,
				AssignedTo:  req.AssignedTo,
				AssignedBy:  user.ID,
				Status:      family.MissionPending,
				DueDate:     req.DueDate,
				CreatedAt:   syncstore.Now(),
			}
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if app.Notifier != nil {
			app.Notifier.Send(context.WithoutCancel(r.Context()), notify.Notification{
				Title: "New mission",
				Body:  req.Title,
			}, map[string]string{"type": "mission", "missionId": mission.ID})
		}

		writeJSON(w, http.StatusCreated, mission)
	}
}

// handleCompleteMission lets the assignee hand in a mission. Rejected
// missions can be handed in again with fresh proof.
func handleCompleteMission(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req MissionProofRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user := userFrom(r)
		mission, err := app.Missions.Update(r.Context(), id, func(m family.Mission) (family.Mission, error) {
			if m.AssignedTo != user.ID {
				return m, family.ErrNotAssignee
			}
			if m.Status != family.MissionPending && m.Status != family.MissionRejected {
				return m, family.ErrBadTransition
			}
			m.Status = family.MissionCompleted
			m.Proof = req.Proof
			m.RejectReason = ""
			m.CompletedAt = syncstore.Now()
			return m, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, mission)
	}
}

// handleVerifyMission accepts a handed-in mission and awards its points.
// The status guard inside the update closure makes verification
// single-shot: a second verifier loses the compare-and-swap or trips the
// guard, so the ledger is credited exactly once.
func handleVerifyMission(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		user := userFrom(r)

		mission, err := app.Missions.Update(r.Context(), id, func(m family.Mission) (family.Mission, error) {
			if m.AssignedTo == user.ID {
				return m, family.ErrNotVerifier
			}
			if m.Status != family.MissionCompleted {
				return m, family.ErrBadTransition
			}
			m.Status = family.MissionVerified
			m.VerifiedAt = syncstore.Now()
			return m, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if err := addPoints(r.Context(), app.Store, mission.AssignedTo, mission.Points); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, mission)
	}
}

func handleRejectMission(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req MissionRejectRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user := userFrom(r)
		mission, err := app.Missions.Update(r.Context(), id, func(m family.Mission) (family.Mission, error) {
			if m.AssignedTo == user.ID {
				return m, family.ErrNotVerifier
			}
			if m.Status != family.MissionCompleted {
				return m, family.ErrBadTransition
			}
			m.Status = family.MissionRejected
			m.RejectReason = req.Reason
			return m, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, mission)
	}
}

func handleDeleteMission(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		user := userFrom(r)

		mission, err := app.Missions.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if mission.AssignedBy != user.ID {
			writeError(w, http.StatusForbidden, "only the creator can delete this mission")
			return
		}
		if err := app.Missions.Remove(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// addPoints credits delta to the ledger entry for userID with a
// compare-and-swap loop, so concurrent verifications of different
// missions never lose an increment.
func addPoints(ctx context.Context, store rtdb.Store, userID string, delta int) error {
	if delta == 0 {
		return nil
	}
	path := pointsPath + "/" + userID
	for range 5 {
		raw, rev, err := store.Read(ctx, path)
		if err != nil {
			return err
		}
		total := 0
		if raw != nil {
			if err := json.Unmarshal(raw, &total); err != nil {
				return err
			}
		}
		err = store.CompareAndSwap(ctx, path, rev, total+delta)
		if err == nil {
			return nil
		}
		if !errors.Is(err, rtdb.ErrConflict) {
			return err
		}
	}
	return rtdb.ErrConflict
}
