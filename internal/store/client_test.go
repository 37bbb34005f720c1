package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/store"
	"github.com/MrSnakeDoc/linkshelf/internal/store/memory"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newClient(t *testing.T) (*store.Client, *memory.Table, *fixedClock) {
	t.Helper()
	clock := &fixedClock{t: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	seq := 0
	table := memory.NewTable()
	c := store.NewClient(table, logger.Nop(),
		store.WithClock(clock.now),
		store.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("bm-%d", seq)
		}),
	)
	return c, table, clock
}

// failingTable fails every call with err.
type failingTable struct{ err error }

func (f failingTable) Select(context.Context, string) ([]domain.Bookmark, error) { return nil, f.err }
func (f failingTable) Get(context.Context, string, string) (domain.Bookmark, error) {
	return domain.Bookmark{}, f.err
}
func (f failingTable) Insert(context.Context, domain.Bookmark) (domain.Bookmark, error) {
	return domain.Bookmark{}, f.err
}
func (f failingTable) Update(context.Context, string, string, domain.Patch, time.Time) (domain.Bookmark, error) {
	return domain.Bookmark{}, f.err
}
func (f failingTable) Delete(context.Context, string, string) error { return f.err }
func (f failingTable) Ping(context.Context) error                   { return f.err }

func TestInsertBookmarkStampsRecord(t *testing.T) {
	c, _, clock := newClient(t)
	ctx := context.Background()

	got, err := c.InsertBookmark(ctx, "alice", domain.NewBookmark{
		Title: "Ex",
		URL:   "https://example.com",
		Tags:  []string{" Work", "work", "GO"},
	})
	require.NoError(t, err)

	assert.Equal(t, "bm-1", got.ID)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, []string{"work", "go"}, got.Tags)
	assert.False(t, got.IsFavorite)
	assert.True(t, got.CreatedAt.Equal(clock.t))
	assert.True(t, got.UpdatedAt.Equal(got.CreatedAt))
}

func TestInsertBookmarkExplicitFavorite(t *testing.T) {
	c, _, _ := newClient(t)
	fav := true

	got, err := c.InsertBookmark(context.Background(), "alice", domain.NewBookmark{
		Title: "Ex", URL: "https://example.com", IsFavorite: &fav,
	})
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
	assert.NotNil(t, got.Tags)
}

func TestInsertBookmarkValidation(t *testing.T) {
	tests := []struct {
		name string
		user string
		nb   domain.NewBookmark
		auth bool
	}{
		{name: "empty title", user: "alice", nb: domain.NewBookmark{URL: "https://example.com"}},
		{name: "malformed url", user: "alice", nb: domain.NewBookmark{Title: "Ex", URL: "not-a-url"}},
		{name: "no user", user: "", nb: domain.NewBookmark{Title: "Ex", URL: "https://example.com"}, auth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, table, _ := newClient(t)
			_, err := c.InsertBookmark(context.Background(), tt.user, tt.nb)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.auth, errors.Is(err, domain.ErrUnauthenticated))
			assert.Zero(t, table.Count(), "nothing should be written")
		})
	}
}

func TestListBookmarksWithoutUserSkipsTable(t *testing.T) {
	c := store.NewClient(failingTable{err: errors.New("must not be called")}, logger.Nop())

	got, err := c.ListBookmarks(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListBookmarksScopedToUser(t *testing.T) {
	c, _, _ := newClient(t)
	ctx := context.Background()

	_, err := c.InsertBookmark(ctx, "alice", domain.NewBookmark{Title: "A", URL: "https://a.example"})
	require.NoError(t, err)
	_, err = c.InsertBookmark(ctx, "bob", domain.NewBookmark{Title: "B", URL: "https://b.example"})
	require.NoError(t, err)

	got, err := c.ListBookmarks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)

	none, err := c.ListBookmarks(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdateBookmark(t *testing.T) {
	c, _, clock := newClient(t)
	ctx := context.Background()

	created, err := c.InsertBookmark(ctx, "alice", domain.NewBookmark{Title: "Old", URL: "https://example.com"})
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour)
	title := "New"
	tags := []string{"Read", "READ"}
	got, err := c.UpdateBookmark(ctx, "alice", created.ID, domain.Patch{Title: &title, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, []string{"read"}, got.Tags)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateBookmarkErrors(t *testing.T) {
	c, _, _ := newClient(t)
	ctx := context.Background()
	created, err := c.InsertBookmark(ctx, "alice", domain.NewBookmark{Title: "Ex", URL: "https://example.com"})
	require.NoError(t, err)

	bad := "nope"
	title := "x"

	_, err = c.UpdateBookmark(ctx, "alice", "missing", domain.Patch{Title: &title})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)

	_, err = c.UpdateBookmark(ctx, "bob", created.ID, domain.Patch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound, "other users' rows are invisible")

	_, err = c.UpdateBookmark(ctx, "alice", "", domain.Patch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.UpdateBookmark(ctx, "alice", created.ID, domain.Patch{URL: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteBookmark(t *testing.T) {
	c, table, _ := newClient(t)
	ctx := context.Background()
	created, err := c.InsertBookmark(ctx, "alice", domain.NewBookmark{Title: "Ex", URL: "https://example.com"})
	require.NoError(t, err)

	require.NoError(t, c.DeleteBookmark(ctx, "alice", created.ID))
	assert.Zero(t, table.Count())

	err = c.DeleteBookmark(ctx, "alice", created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToggleFavorite(t *testing.T) {
	c, _, _ := newClient(t)
	ctx := context.Background()
	created, err := c.InsertBookmark(ctx, "alice", domain.NewBookmark{Title: "Ex", URL: "https://example.com"})
	require.NoError(t, err)

	// The clock has not moved, updatedAt must still advance.
	toggled, err := c.ToggleFavorite(ctx, "alice", created)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)
	assert.True(t, toggled.UpdatedAt.After(created.UpdatedAt))

	back, err := c.ToggleFavorite(ctx, "alice", toggled)
	require.NoError(t, err)
	assert.False(t, back.IsFavorite)
	assert.True(t, back.UpdatedAt.After(toggled.UpdatedAt))
}

func TestToggleFavoriteUsesCallerState(t *testing.T) {
	c, _, _ := newClient(t)
	ctx := context.Background()
	created, err := c.InsertBookmark(ctx, "alice", domain.NewBookmark{Title: "Ex", URL: "https://example.com"})
	require.NoError(t, err)

	// Two toggles computed from the same stale snapshot write the same value.
	first, err := c.ToggleFavorite(ctx, "alice", created)
	require.NoError(t, err)
	second, err := c.ToggleFavorite(ctx, "alice", created)
	require.NoError(t, err)
	assert.True(t, first.IsFavorite)
	assert.True(t, second.IsFavorite)
}

func TestStoreErrorsAreClassified(t *testing.T) {
	cause := errors.New("connection refused")
	c := store.NewClient(failingTable{err: cause}, logger.Nop())
	ctx := context.Background()

	_, err := c.ListBookmarks(ctx, "alice")
	var serr *domain.StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "list", serr.Op)
	assert.ErrorIs(t, err, cause)

	_, err = c.InsertBookmark(ctx, "alice", domain.NewBookmark{Title: "Ex", URL: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrStore)

	err = c.DeleteBookmark(ctx, "alice", "x")
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, c.Ping(ctx), cause)
}

func TestMutationsRequireUser(t *testing.T) {
	c, _, _ := newClient(t)
	ctx := context.Background()
	title := "x"

	_, err := c.UpdateBookmark(ctx, "", "id", domain.Patch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	err = c.DeleteBookmark(ctx, "", "id")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = c.ToggleFavorite(ctx, "", domain.Bookmark{ID: "id"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
