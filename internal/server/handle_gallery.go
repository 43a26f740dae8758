package server

import (
	"net/http"
	"slices"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/syncstore"
)

type GalleryItemRequest struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func handleListGallery(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := app.Gallery.List()
		sort.Slice(items, func(i, j int) bool { return items[i].UploadedAt > items[j].UploadedAt })
		writeJSON(w, http.StatusOK, items)
	}
}

func handleCreateGalleryItem(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GalleryItemRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}
		if req.Type == "" {
			req.Type = "image"
		}

		user := userFrom(r)
		item, err := app.Gallery.Create(r.Context(), func(id string) family.GalleryItem {
			return family.GalleryItem{
				ID:          id,
				Type:        req.Type,
				URL:         req.URL,
				Thumbnail:   req.Thumbnail,
				Title:       req.Title,
				Description: req.Description,
				UploadedBy:  user.ID,
				UploadedAt:  syncstore.Now(),
				Likes:       []string{},
			}
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// handleLikeGalleryItem toggles the caller's like. Two family members
// tapping at once both land thanks to the compare-and-swap loop in
// Collection.Update.
func handleLikeGalleryItem(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		user := userFrom(r)

		item, err := app.Gallery.Update(r.Context(), id, func(it family.GalleryItem) (family.GalleryItem, error) {
			if i := slices.Index(it.Likes, user.ID); i >= 0 {
				it.Likes = slices.Delete(slices.Clone(it.Likes), i, i+1)
			} else {
				it.Likes = append(slices.Clone(it.Likes), user.ID)
			}
			return it, nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// Only the uploader may remove their photo.
func handleDeleteGalleryItem(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		user := userFrom(r)

		item, err := app.Gallery.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if item.UploadedBy != user.ID {
			writeError(w, http.StatusForbidden, "only the uploader can delete this item")
			return
		}
		if err := app.Gallery.Remove(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
