package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/sources/homepage"
)

// ImportHomepage serves POST /api/import/homepage?format=bookmarks|services
// with the yaml file as the body.
func ImportHomepage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(d, r)
		if sess == nil {
			writeError(w, r, d.Logger, domain.NotAuthenticated())
			return
		}

		format, err := homepage.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.ImportMaxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
				return
			}
			writeError(w, r, d.Logger, domain.NewValidationError("body", "unreadable body"))
			return
		}

		nbs, err := homepage.Parse(data, format)
		if err != nil {
			writeError(w, r, d.Logger, domain.NewValidationError("body", err.Error()))
			return
		}

		res, err := d.Dashboard.Import(r.Context(), sess, nbs)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
