package session

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/cache"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// CacheFactory builds the bookmark cache of a new session.
type CacheFactory func(userID string) *cache.Cache[[]domain.Bookmark]

// NewCacheFactory returns a factory for caches with the given options.
// Clone is always set to CloneBookmarks.
func NewCacheFactory(opts cache.Options[[]domain.Bookmark]) CacheFactory {
	opts.Clone = CloneBookmarks
	return func(string) *cache.Cache[[]domain.Bookmark] {
		return cache.New(opts)
	}
}

type RegistryOption func(*Registry)

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// Registry holds at most one session per user.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  CacheFactory
	log      logger.Logger
	now      func() time.Time
}

func NewRegistry(factory CacheFactory, log logger.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the user's session, creating it on first use, and marks
// it as seen. An empty userID has no session.
func (r *Registry) Acquire(userID string) *Session {
	if userID == "" {
		return nil
	}

	r.mu.Lock()
	s, ok := r.sessions[userID]
	if !ok {
		s = &Session{
			UserID:    userID,
			Bookmarks: r.factory(userID),
			now:       r.now,
		}
		r.sessions[userID] = s
	}
	r.mu.Unlock()

	if !ok {
		r.log.Debug("session started", logger.String("user_id", userID))
	}
	s.Touch()
	return s
}

// Lookup returns the user's session without creating one.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// End tears down the user's session. It reports whether one existed.
func (r *Registry) End(userID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if ok {
		s.close()
		r.log.Debug("session ended", logger.String("user_id", userID))
	}
	return ok
}

// SweepIdle ends every session not seen for longer than idle.
func (r *Registry) SweepIdle(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	return len(stale)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// CloseAll ends every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}
