package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

const entityBookmark = "bookmark"

// Client is the only writer of bookmark rows. It validates input, stamps
// ids and timestamps, scopes every call to the caller and turns backend
// failures into domain errors.
type Client struct {
	table Table
	log   logger.Logger
	now   func() time.Time
	newID func() string
}

type Option func(*Client)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

func NewClient(table Table, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		table: table,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListBookmarks returns every bookmark owned by userID. Without a user it
// returns an empty slice and never touches the table.
func (c *Client) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	if userID == "" {
		return []domain.Bookmark{}, nil
	}

	rows, err := c.table.Select(ctx, userID)
	if err != nil {
		return nil, c.storeError("list", userID, err)
	}
	for i := range rows {
		if rows[i].Tags == nil {
			rows[i].Tags = []string{}
		}
	}
	if rows == nil {
		rows = []domain.Bookmark{}
	}
	return rows, nil
}

// InsertBookmark creates a bookmark for userID and returns the stored record.
func (c *Client) InsertBookmark(ctx context.Context, userID string, nb domain.NewBookmark) (domain.Bookmark, error) {
	if userID == "" {
		return domain.Bookmark{}, domain.NotAuthenticated()
	}
	if err := nb.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	ts := c.timestamp()
	b := domain.Bookmark{
		ID:           c.newID(),
		UserID:       userID,
		Title:        nb.Title,
		URL:          nb.URL,
		Memo:         nb.Memo,
		Tags:         domain.NormalizeTags(nb.Tags),
		FaviconURL:   nb.FaviconURL,
		PreviewImage: nb.PreviewImage,
		IsFavorite:   nb.IsFavorite != nil && *nb.IsFavorite,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	created, err := c.table.Insert(ctx, b)
	if err != nil {
		return domain.Bookmark{}, c.storeError("insert", userID, err)
	}
	c.log.Debug("bookmark inserted",
		logger.String("user_id", userID),
		logger.String("bookmark_id", created.ID))
	return created, nil
}

// UpdateBookmark writes the provided patch fields over an owned bookmark.
func (c *Client) UpdateBookmark(ctx context.Context, userID, id string, patch domain.Patch) (domain.Bookmark, error) {
	if userID == "" {
		return domain.Bookmark{}, domain.NotAuthenticated()
	}
	if id == "" {
		return domain.Bookmark{}, domain.NewValidationError("id", "id is required")
	}
	if err := patch.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	if patch.Tags != nil {
		tags := domain.NormalizeTags(*patch.Tags)
		patch.Tags = &tags
	}

	updated, err := c.table.Update(ctx, userID, id, patch, c.timestamp())
	if err != nil {
		return domain.Bookmark{}, c.classify("update", userID, id, err)
	}
	return updated, nil
}

// DeleteBookmark hard-deletes an owned bookmark. A missing id is reported
// as a NotFoundError.
func (c *Client) DeleteBookmark(ctx context.Context, userID, id string) error {
	if userID == "" {
		return domain.NotAuthenticated()
	}
	if id == "" {
		return domain.NewValidationError("id", "id is required")
	}

	if err := c.table.Delete(ctx, userID, id); err != nil {
		return c.classify("delete", userID, id, err)
	}
	c.log.Debug("bookmark deleted",
		logger.String("user_id", userID),
		logger.String("bookmark_id", id))
	return nil
}

// ToggleFavorite flips prev.IsFavorite. Only the favorite flag and
// updatedAt are written, so concurrent toggles resolve last-write-wins.
// The new updatedAt is strictly later than prev.UpdatedAt.
func (c *Client) ToggleFavorite(ctx context.Context, userID string, prev domain.Bookmark) (domain.Bookmark, error) {
	if userID == "" {
		return domain.Bookmark{}, domain.NotAuthenticated()
	}
	if prev.ID == "" {
		return domain.Bookmark{}, domain.NewValidationError("id", "id is required")
	}

	fav := !prev.IsFavorite
	updated, err := c.table.Update(ctx, userID, prev.ID, domain.Patch{IsFavorite: &fav}, c.timestampAfter(prev.UpdatedAt))
	if err != nil {
		return domain.Bookmark{}, c.classify("toggle_favorite", userID, prev.ID, err)
	}
	return updated, nil
}

// Ping reports whether the table backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.table.Ping(ctx)
}

// timestamp is UTC with microsecond precision, the finest both SQLite text
// columns and PostgreSQL timestamps keep.
func (c *Client) timestamp() time.Time {
	return c.now().UTC().Truncate(time.Microsecond)
}

func (c *Client) timestampAfter(prev time.Time) time.Time {
	ts := c.timestamp()
	if !ts.After(prev) {
		ts = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return ts
}

func (c *Client) classify(op, userID, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.NotFoundError{Entity: entityBookmark, ID: id}
	}
	return c.storeError(op, userID, err)
}

func (c *Client) storeError(op, userID string, err error) error {
	c.log.Error("store operation failed",
		logger.String("op", op),
		logger.String("user_id", userID),
		logger.Error(err))
	return &domain.StoreError{Op: op, Err: err}
}
