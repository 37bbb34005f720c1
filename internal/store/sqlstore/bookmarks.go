package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

const tableBookmarks = "bookmarks"

var bookmarkColumns = []string{
	"id", "user_id", "title", "url", "memo", "tags", "favicon_url",
	"preview_image", "is_favorite", "created_at", "updated_at", "last_visited",
}

type bookmarkRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	Title        string         `db:"title"`
	URL          string         `db:"url"`
	Memo         sql.NullString `db:"memo"`
	Tags         string         `db:"tags"`
	FaviconURL   sql.NullString `db:"favicon_url"`
	PreviewImage sql.NullString `db:"preview_image"`
	IsFavorite   bool           `db:"is_favorite"`
	CreatedAt    nullTime       `db:"created_at"`
	UpdatedAt    nullTime       `db:"updated_at"`
	LastVisited  nullTime       `db:"last_visited"`
}

func (r bookmarkRow) toDomain() (domain.Bookmark, error) {
	tags := []string{}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
			return domain.Bookmark{}, fmt.Errorf("decode tags of %s: %w", r.ID, err)
		}
	}
	b := domain.Bookmark{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		URL:          r.URL,
		Memo:         nullable(r.Memo),
		Tags:         tags,
		FaviconURL:   nullable(r.FaviconURL),
		PreviewImage: nullable(r.PreviewImage),
		IsFavorite:   r.IsFavorite,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
	if r.LastVisited.Valid {
		t := r.LastVisited.Time
		b.LastVisited = &t
	}
	return b, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func optionalString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

// timeArg binds t the way the driver stores it: native timestamps for
// PostgreSQL, fixed-width UTC text for SQLite and libSQL so that text
// ordering matches time ordering.
func (db *DB) timeArg(t time.Time) any {
	if db.driver == DriverPostgres {
		return t.UTC()
	}
	return t.UTC().Format(textTimeLayout)
}

func (db *DB) optionalTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return db.timeArg(*t)
}

// Select implements store.Table.
func (db *DB) Select(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	query, args, err := db.sb.Select(bookmarkColumns...).
		From(tableBookmarks).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []bookmarkRow
	if err := db.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select bookmarks: %w", err)
	}

	out := make([]domain.Bookmark, 0, len(rows))
	for _, r := range rows {
		b, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Get implements store.Table.
func (db *DB) Get(ctx context.Context, userID, id string) (domain.Bookmark, error) {
	query, args, err := db.sb.Select(bookmarkColumns...).
		From(tableBookmarks).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("build get: %w", err)
	}

	var r bookmarkRow
	if err := db.db.GetContext(ctx, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
		}
		return domain.Bookmark{}, fmt.Errorf("get bookmark: %w", err)
	}
	return r.toDomain()
}

// Insert implements store.Table.
func (db *DB) Insert(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	tags, err := encodeTags(b.Tags)
	if err != nil {
		return domain.Bookmark{}, err
	}

	query, args, err := db.sb.Insert(tableBookmarks).
		Columns(bookmarkColumns...).
		Values(
			b.ID, b.UserID, b.Title, b.URL, optionalString(b.Memo), tags, optionalString(b.FaviconURL),
			optionalString(b.PreviewImage), b.IsFavorite, db.timeArg(b.CreatedAt), db.timeArg(b.UpdatedAt),
			db.optionalTimeArg(b.LastVisited),
		).
		ToSql()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}
	return db.Get(ctx, b.UserID, b.ID)
}

// Update implements store.Table.
func (db *DB) Update(ctx context.Context, userID, id string, patch domain.Patch, updatedAt time.Time) (domain.Bookmark, error) {
	ub := db.sb.Update(tableBookmarks).
		Set("updated_at", db.timeArg(updatedAt)).
		Where(sq.Eq{"id": id, "user_id": userID})

	if patch.Title != nil {
		ub = ub.Set("title", *patch.Title)
	}
	if patch.URL != nil {
		ub = ub.Set("url", *patch.URL)
	}
	if patch.Memo != nil {
		ub = ub.Set("memo", *patch.Memo)
	}
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return domain.Bookmark{}, err
		}
		ub = ub.Set("tags", tags)
	}
	if patch.FaviconURL != nil {
		ub = ub.Set("favicon_url", *patch.FaviconURL)
	}
	if patch.PreviewImage != nil {
		ub = ub.Set("preview_image", *patch.PreviewImage)
	}
	if patch.IsFavorite != nil {
		ub = ub.Set("is_favorite", *patch.IsFavorite)
	}

	query, args, err := ub.ToSql()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("build update: %w", err)
	}

	res, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("update bookmark: %w", err)
	}
	if err := expectRow(res, id); err != nil {
		return domain.Bookmark{}, err
	}
	return db.Get(ctx, userID, id)
}

// Delete implements store.Table.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	query, args, err := db.sb.Delete(tableBookmarks).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return expectRow(res, id)
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
