package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
)

// ListBookmarks serves GET /api/bookmarks?q=&tags=a,b&sort=
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		mode, err := domain.ParseSortMode(q.Get("sort"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		opts := domain.ViewOptions{
			Query: q.Get("q"),
			Tags:  splitTags(q.Get("tags")),
			Sort:  mode,
		}

		view, err := d.Dashboard.View(r.Context(), currentSession(d, r), opts)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var nb domain.NewBookmark
		if err := decodeJSON(r, &nb); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		created, err := d.Dashboard.Add(r.Context(), currentSession(d, r), nb)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.Patch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		updated, err := d.Dashboard.Update(r.Context(), currentSession(d, r), chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Dashboard.Delete(r.Context(), currentSession(d, r), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type favoriteRequest struct {
	// IsFavorite is the state the client last displayed.
	IsFavorite *bool `json:"isFavorite"`
}

func ToggleFavorite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req favoriteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		updated, err := d.Dashboard.ToggleFavorite(r.Context(), currentSession(d, r), chi.URLParam(r, "id"), req.IsFavorite)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func splitTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
