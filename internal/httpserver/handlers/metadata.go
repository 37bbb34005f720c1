package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/metadata"
)

// Metadata serves GET /api/metadata?url=. It always answers 200; a URL
// that yields nothing gets an empty object. Only signed-in callers can
// make the server fetch a page; anonymous callers get the empty object
// when the fetcher scrapes.
func Metadata(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.UserIDFromContext(r.Context()) == "" {
			if _, scrapes := d.Fetcher.(*metadata.Scraper); scrapes {
				writeJSON(w, http.StatusOK, metadata.Metadata{})
				return
			}
		}

		raw := strings.TrimSpace(r.URL.Query().Get("url"))
		writeJSON(w, http.StatusOK, d.Fetcher.Fetch(r.Context(), raw))
	}
}
