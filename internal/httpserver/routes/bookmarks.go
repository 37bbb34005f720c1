package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Get("/bookmarks", handlers.ListBookmarks(d))
	r.Post("/bookmarks", handlers.CreateBookmark(d))
	r.Patch("/bookmarks/{id}", handlers.UpdateBookmark(d))
	r.Delete("/bookmarks/{id}", handlers.DeleteBookmark(d))
	r.Post("/bookmarks/{id}/favorite", handlers.ToggleFavorite(d))

	r.Get("/stats", handlers.Stats(d))
	r.Get("/tags", handlers.Tags(d))
}
