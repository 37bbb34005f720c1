package mw

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// Authenticate resolves the caller from a bearer token or the auth cookie.
// A request without a token continues anonymously. A token that fails
// verification is rejected with 401.
func Authenticate(jwt *auth.JWTManager, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := jwt.Verify(token)
			if err != nil {
				log.Debug("rejected token", logger.Error(err))
				reject(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if h, ok := r.Context().Value(userHolderKey{}).(*userHolder); ok {
				h.userID = userID
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// userHolder lets Log report the user that Authenticate resolved further
// down the chain.
type userHolder struct{ userID string }

type userHolderKey struct{}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey{}, h)
}
