package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
)

// Stats serves aggregates over the caller's full list.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := d.Dashboard.Stats(r.Context(), currentSession(d, r))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

type tagsResponse struct {
	Tags []domain.TagCount `json:"tags"`
}

// Tags serves every tag with its bookmark count.
func Tags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := d.Dashboard.Tags(r.Context(), currentSession(d, r))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
	}
}
