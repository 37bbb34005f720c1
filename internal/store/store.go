package store

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// Table is the row-level access API behind the Client. Every call is
// scoped to a single owner. Implementations report a missing or foreign
// row with an error matching domain.ErrNotFound and leave classification
// of everything else to the Client.
type Table interface {
	// Select returns every row owned by userID, oldest first.
	Select(ctx context.Context, userID string) ([]domain.Bookmark, error)
	// Get returns one owned row.
	Get(ctx context.Context, userID, id string) (domain.Bookmark, error)
	// Insert stores a fully stamped row and returns it as persisted.
	Insert(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error)
	// Update writes only the patch fields plus updatedAt.
	Update(ctx context.Context, userID, id string, patch domain.Patch, updatedAt time.Time) (domain.Bookmark, error)
	// Delete removes one owned row.
	Delete(ctx context.Context, userID, id string) error
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}
