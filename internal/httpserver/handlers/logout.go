package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// Logout ends the caller's session, dropping its cache and draft, and
// clears the auth cookie.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID := auth.UserIDFromContext(r.Context()); userID != "" {
			if d.Sessions.End(userID) {
				d.Logger.Info("session ended by logout", logger.String("user_id", userID))
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
