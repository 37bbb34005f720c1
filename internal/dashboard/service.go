package dashboard

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/linkshelf/internal/cache"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/session"
	"github.com/MrSnakeDoc/linkshelf/internal/store"
)

// View is one filtered, sorted page of the dashboard.
type View struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Total     int               `json:"total"`
	Matched   int               `json:"matched"`
}

// ImportResult reports what an import wrote.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type Option func(*Service)

// WithSessions lets background writes invalidate a live session's cache.
func WithSessions(r *session.Registry) Option {
	return func(s *Service) { s.sessions = r }
}

// WithRemote lets background writes retire the shared cache entry when the
// user has no live session.
func WithRemote(r cache.Remote[[]domain.Bookmark]) Option {
	return func(s *Service) { s.remote = r }
}

// Service runs the dashboard use cases for a session. Reads go through the
// session cache; every successful write invalidates it so the next read
// refetches. A nil session is anonymous: reads are empty and writes fail
// as not authenticated.
type Service struct {
	client   *store.Client
	sessions *session.Registry
	remote   cache.Remote[[]domain.Bookmark]
	log      logger.Logger
}

func New(client *store.Client, log logger.Logger, opts ...Option) *Service {
	s := &Service{client: client, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every bookmark of the session's user, oldest first.
func (s *Service) List(ctx context.Context, sess *session.Session) ([]domain.Bookmark, error) {
	if sess == nil {
		return []domain.Bookmark{}, nil
	}

	load := func(ctx context.Context) ([]domain.Bookmark, error) {
		return s.client.ListBookmarks(ctx, sess.UserID)
	}
	list, err := sess.Bookmarks.Fetch(ctx, sess.BookmarksKey(), load)
	if errors.Is(err, cache.ErrClosed) {
		// The session ended under us; answer from the store directly.
		return s.client.ListBookmarks(ctx, sess.UserID)
	}
	return list, err
}

// View applies the search, tag selection and sort to the full list.
func (s *Service) View(ctx context.Context, sess *session.Session, opts domain.ViewOptions) (View, error) {
	all, err := s.List(ctx, sess)
	if err != nil {
		return View{}, err
	}
	shown := domain.ApplyView(all, opts)
	return View{Bookmarks: shown, Total: len(all), Matched: len(shown)}, nil
}

// Stats aggregates the full, unfiltered list.
func (s *Service) Stats(ctx context.Context, sess *session.Session) (domain.Stats, error) {
	all, err := s.List(ctx, sess)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(all), nil
}

// Tags lists every tag with its bookmark count.
func (s *Service) Tags(ctx context.Context, sess *session.Session) ([]domain.TagCount, error) {
	all, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	return domain.TagCounts(all), nil
}

// Find returns one bookmark from the cached list.
func (s *Service) Find(ctx context.Context, sess *session.Session, id string) (domain.Bookmark, error) {
	if sess == nil {
		return domain.Bookmark{}, domain.NotAuthenticated()
	}
	all, err := s.List(ctx, sess)
	if err != nil {
		return domain.Bookmark{}, err
	}
	for _, b := range all {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Bookmark{}, &domain.NotFoundError{Entity: "bookmark", ID: id}
}

func (s *Service) Add(ctx context.Context, sess *session.Session, nb domain.NewBookmark) (domain.Bookmark, error) {
	if sess == nil {
		return domain.Bookmark{}, domain.NotAuthenticated()
	}
	created, err := s.client.InsertBookmark(ctx, sess.UserID, nb)
	if err != nil {
		return domain.Bookmark{}, err
	}
	s.invalidate(ctx, sess)
	return created, nil
}

func (s *Service) Update(ctx context.Context, sess *session.Session, id string, patch domain.Patch) (domain.Bookmark, error) {
	if sess == nil {
		return domain.Bookmark{}, domain.NotAuthenticated()
	}
	updated, err := s.client.UpdateBookmark(ctx, sess.UserID, id, patch)
	if err != nil {
		return domain.Bookmark{}, err
	}
	s.invalidate(ctx, sess)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, sess *session.Session, id string) error {
	if sess == nil {
		return domain.NotAuthenticated()
	}
	if err := s.client.DeleteBookmark(ctx, sess.UserID, id); err != nil {
		return err
	}
	s.invalidate(ctx, sess)
	return nil
}

// ToggleFavorite flips the favorite flag of id. prevFavorite is the state
// the caller last saw; when nil the cached state is used.
func (s *Service) ToggleFavorite(ctx context.Context, sess *session.Session, id string, prevFavorite *bool) (domain.Bookmark, error) {
	prev, err := s.Find(ctx, sess, id)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if prevFavorite != nil {
		prev.IsFavorite = *prevFavorite
	}

	updated, err := s.client.ToggleFavorite(ctx, sess.UserID, prev)
	if err != nil {
		return domain.Bookmark{}, err
	}
	s.invalidate(ctx, sess)
	return updated, nil
}

// Import inserts every new bookmark whose URL the user does not have yet.
func (s *Service) Import(ctx context.Context, sess *session.Session, nbs []domain.NewBookmark) (ImportResult, error) {
	if sess == nil {
		return ImportResult{}, domain.NotAuthenticated()
	}
	existing, err := s.List(ctx, sess)
	if err != nil {
		return ImportResult{}, err
	}

	res, err := s.insertMissing(ctx, sess.UserID, existing, nbs)
	if res.Imported > 0 {
		s.invalidate(ctx, sess)
	}
	return res, err
}

// ImportFor is Import for a background job with no request session.
func (s *Service) ImportFor(ctx context.Context, userID string, nbs []domain.NewBookmark) (ImportResult, error) {
	if userID == "" {
		return ImportResult{}, domain.NotAuthenticated()
	}
	existing, err := s.client.ListBookmarks(ctx, userID)
	if err != nil {
		return ImportResult{}, err
	}

	res, err := s.insertMissing(ctx, userID, existing, nbs)
	if res.Imported > 0 {
		s.invalidateUser(ctx, userID)
	}
	return res, err
}

func (s *Service) insertMissing(ctx context.Context, userID string, existing []domain.Bookmark, nbs []domain.NewBookmark) (ImportResult, error) {
	seen := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		seen[b.URL] = struct{}{}
	}

	var res ImportResult
	for _, nb := range nbs {
		if _, dup := seen[nb.URL]; dup {
			res.Skipped++
			continue
		}
		if _, err := s.client.InsertBookmark(ctx, userID, nb); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				s.log.Debug("skipping invalid import entry",
					logger.String("url", nb.URL),
					logger.Error(err))
				res.Skipped++
				continue
			}
			return res, err
		}
		seen[nb.URL] = struct{}{}
		res.Imported++
	}

	s.log.Info("bookmarks imported",
		logger.String("user_id", userID),
		logger.Int("imported", res.Imported),
		logger.Int("skipped", res.Skipped))
	return res, nil
}

func (s *Service) invalidate(ctx context.Context, sess *session.Session) {
	sess.Bookmarks.Invalidate(ctx, sess.BookmarksKey())
}

func (s *Service) invalidateUser(ctx context.Context, userID string) {
	if s.sessions != nil {
		if sess, ok := s.sessions.Lookup(userID); ok {
			s.invalidate(ctx, sess)
			return
		}
	}
	if s.remote != nil {
		key := cache.Key{Entity: session.EntityBookmarks, UserID: userID}
		if err := s.remote.Invalidate(ctx, key); err != nil {
			s.log.Warn("failed to invalidate shared cache entry",
				logger.String("user_id", userID),
				logger.Error(err))
		}
	}
}
