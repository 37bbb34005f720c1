package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/session"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to its HTTP status. Store failures are
// logged and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	var (
		verr *domain.ValidationError
		nerr *domain.NotFoundError
	)
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Errors})
	case errors.As(err, &nerr):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nerr.Error()})
	default:
		log.Error("action failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.String("user_id", auth.UserIDFromContext(r.Context())),
			logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "action failed"})
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// currentSession returns the caller's session, or nil when anonymous.
func currentSession(d deps.Deps, r *http.Request) *session.Session {
	return d.Sessions.Acquire(auth.UserIDFromContext(r.Context()))
}
