package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// Table keeps bookmark rows in process memory. Rows are copied on the way
// in and out so callers never share tag slices with the table.
type Table struct {
	mu        sync.RWMutex
	rows      map[string]domain.Bookmark // ID -> row
	lastWrite time.Time
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{rows: make(map[string]domain.Bookmark)}
}

// Select returns the rows owned by userID ordered by createdAt, then id.
func (t *Table) Select(_ context.Context, userID string) ([]domain.Bookmark, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Bookmark, 0)
	for _, b := range t.rows {
		if b.UserID == userID {
			out = append(out, clone(b))
		}
	}
	slices.SortFunc(out, func(a, b domain.Bookmark) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Get returns one owned row.
func (t *Table) Get(_ context.Context, userID, id string) (domain.Bookmark, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.owned(userID, id)
	if !ok {
		return domain.Bookmark{}, notFound(id)
	}
	return clone(b), nil
}

// Insert adds a row. Reusing an id is an error.
func (t *Table) Insert(_ context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.rows[b.ID]; exists {
		return domain.Bookmark{}, fmt.Errorf("bookmark %s: duplicate id", b.ID)
	}
	t.rows[b.ID] = clone(b)
	t.lastWrite = time.Now()
	return clone(b), nil
}

// Update applies patch to an owned row.
func (t *Table) Update(_ context.Context, userID, id string, patch domain.Patch, updatedAt time.Time) (domain.Bookmark, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.owned(userID, id)
	if !ok {
		return domain.Bookmark{}, notFound(id)
	}
	b = patch.Apply(b)
	b.UpdatedAt = updatedAt
	t.rows[id] = b
	t.lastWrite = time.Now()
	return clone(b), nil
}

// Delete removes an owned row.
func (t *Table) Delete(_ context.Context, userID, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.owned(userID, id); !ok {
		return notFound(id)
	}
	delete(t.rows, id)
	t.lastWrite = time.Now()
	return nil
}

// Ping always succeeds.
func (t *Table) Ping(context.Context) error { return nil }

// Count returns the number of rows across all owners.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.rows)
}

// LastWrite returns when the table was last mutated.
func (t *Table) LastWrite() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lastWrite
}

// owned must be called with t.mu held.
func (t *Table) owned(userID, id string) (domain.Bookmark, bool) {
	b, ok := t.rows[id]
	if !ok || b.UserID != userID {
		return domain.Bookmark{}, false
	}
	return b, true
}

func notFound(id string) error {
	return fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
}

func clone(b domain.Bookmark) domain.Bookmark {
	b.Tags = append(make([]string, 0, len(b.Tags)), b.Tags...)
	return b
}
