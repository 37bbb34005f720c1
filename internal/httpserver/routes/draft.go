package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerDraft) }

func registerDraft(r chi.Router, d deps.Deps) {
	r.Get("/metadata", handlers.Metadata(d))

	r.Post("/draft", handlers.StartDraft(d))
	r.Patch("/draft", handlers.UpdateDraft(d))
	r.Get("/draft", handlers.GetDraft(d))
	r.Delete("/draft", handlers.DiscardDraft(d))
	r.Post("/draft/save", handlers.SaveDraft(d))
}
