package session

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/cache"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/metadata"
)

// EntityBookmarks names the cached bookmark list.
const EntityBookmarks = "bookmarks"

// Session is one signed-in user's working state: the bookmark cache and
// the add/edit draft. It is torn down at logout or after idling.
type Session struct {
	UserID    string
	Bookmarks *cache.Cache[[]domain.Bookmark]

	mu       sync.Mutex
	draft    *metadata.Draft
	lastSeen time.Time
	now      func() time.Time
}

// BookmarksKey is the cache key of this user's bookmark list.
func (s *Session) BookmarksKey() cache.Key {
	return cache.Key{Entity: EntityBookmarks, UserID: s.UserID}
}

// Touch marks the session as used.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.now()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}

// StartDraft replaces the current draft.
func (s *Session) StartDraft(d *metadata.Draft) {
	s.mu.Lock()
	old := s.draft
	s.draft = d
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Draft returns the current draft, or nil.
func (s *Session) Draft() *metadata.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.draft
}

// EndDraft discards the current draft.
func (s *Session) EndDraft() {
	s.StartDraft(nil)
}

func (s *Session) close() {
	s.EndDraft()
	s.Bookmarks.Close()
}

// CloneBookmarks deep-copies a bookmark list so cache readers never share
// slices with the cached copy.
func CloneBookmarks(in []domain.Bookmark) []domain.Bookmark {
	if in == nil {
		return nil
	}
	out := make([]domain.Bookmark, len(in))
	for i, b := range in {
		b.Tags = append([]string{}, b.Tags...)
		out[i] = b
	}
	return out
}
