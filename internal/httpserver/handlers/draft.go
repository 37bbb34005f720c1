package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/metadata"
	"github.com/MrSnakeDoc/linkshelf/internal/session"
)

type startDraftRequest struct {
	BookmarkID string `json:"bookmarkId"`
}

// StartDraft opens the add dialog, or the edit dialog when bookmarkId is set.
func StartDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startDraftRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		sess := currentSession(d, r)
		if sess == nil {
			writeError(w, r, d.Logger, domain.NotAuthenticated())
			return
		}

		var editing *domain.Bookmark
		if req.BookmarkID != "" {
			b, err := d.Dashboard.Find(r.Context(), sess, req.BookmarkID)
			if err != nil {
				writeError(w, r, d.Logger, err)
				return
			}
			editing = &b
		}

		draft := metadata.NewDraft(d.Fetcher, d.DebounceWindow, editing)
		sess.StartDraft(draft)
		writeJSON(w, http.StatusCreated, draft.Snapshot())
	}
}

type updateDraftRequest struct {
	URL   *string   `json:"url"`
	Title *string   `json:"title"`
	Memo  *string   `json:"memo"`
	Tags  *[]string `json:"tags"`
}

// UpdateDraft records typed fields. A new URL schedules a debounced fetch.
func UpdateDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateDraftRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		draft, ok := activeDraft(w, r, d)
		if !ok {
			return
		}

		if req.Title != nil {
			draft.SetTitle(*req.Title)
		}
		if req.Memo != nil {
			draft.SetMemo(*req.Memo)
		}
		if req.Tags != nil {
			draft.SetTags(*req.Tags)
		}
		if req.URL != nil {
			draft.SetURL(*req.URL)
		}
		writeJSON(w, http.StatusOK, draft.Snapshot())
	}
}

func GetDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, ok := activeDraft(w, r, d)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, draft.Snapshot())
	}
}

// SaveDraft inserts the draft, or updates the edited bookmark, then
// closes the dialog. A failed save keeps the draft open.
func SaveDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(d, r)
		draft, ok := sessionDraft(w, r, d, sess)
		if !ok {
			return
		}

		var (
			saved  domain.Bookmark
			err    error
			status = http.StatusCreated
		)
		if id := draft.EditingID(); id != "" {
			saved, err = d.Dashboard.Update(r.Context(), sess, id, draft.Patch())
			status = http.StatusOK
		} else {
			saved, err = d.Dashboard.Add(r.Context(), sess, draft.NewBookmark())
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		sess.EndDraft()
		writeJSON(w, status, saved)
	}
}

// DiscardDraft closes the dialog without saving.
func DiscardDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(d, r)
		if sess == nil {
			writeError(w, r, d.Logger, domain.NotAuthenticated())
			return
		}
		sess.EndDraft()
		w.WriteHeader(http.StatusNoContent)
	}
}

func activeDraft(w http.ResponseWriter, r *http.Request, d deps.Deps) (*metadata.Draft, bool) {
	return sessionDraft(w, r, d, currentSession(d, r))
}

func sessionDraft(w http.ResponseWriter, r *http.Request, d deps.Deps, sess *session.Session) (*metadata.Draft, bool) {
	if sess == nil {
		writeError(w, r, d.Logger, domain.NotAuthenticated())
		return nil, false
	}
	draft := sess.Draft()
	if draft == nil {
		writeError(w, r, d.Logger, &domain.NotFoundError{Entity: "draft", ID: sess.UserID})
		return nil, false
	}
	return draft, true
}
