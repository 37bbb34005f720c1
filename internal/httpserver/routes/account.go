package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerAccount) }

func registerAccount(r chi.Router, d deps.Deps) {
	r.Post("/import/homepage", handlers.ImportHomepage(d))
	r.Post("/logout", handlers.Logout(d))
}
