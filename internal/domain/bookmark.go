package domain

import "time"

// Bookmark is a saved link owned by exactly one user.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the store at insert.
	ID string `json:"id"`

	// UserID is the owner. Never empty for a persisted bookmark.
	UserID string `json:"userId"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title string  `json:"title"`
	URL   string  `json:"url"`
	Memo  *string `json:"memo,omitempty"`

	// Tags are lower-cased and unique. Never nil once normalized.
	Tags []string `json:"tags"`

	FaviconURL   *string `json:"faviconUrl,omitempty"`
	PreviewImage *string `json:"previewImage,omitempty"`

	IsFavorite bool `json:"isFavorite"`

	// ─────────────────────────────
	// Timestamps
	// ─────────────────────────────

	// CreatedAt is fixed at insert.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is refreshed on every mutation, favorite toggles included.
	UpdatedAt time.Time `json:"updatedAt"`

	// LastVisited is reserved. Nothing writes it yet.
	LastVisited *time.Time `json:"lastVisited,omitempty"`
}

// NewBookmark is the caller-supplied part of an insert.
type NewBookmark struct {
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Memo         *string  `json:"memo,omitempty"`
	Tags         []string `json:"tags"`
	FaviconURL   *string  `json:"faviconUrl,omitempty"`
	PreviewImage *string  `json:"previewImage,omitempty"`
	IsFavorite   *bool    `json:"isFavorite,omitempty"`
}

// Patch lists the fields an update writes. Nil means untouched.
type Patch struct {
	Title        *string   `json:"title,omitempty"`
	URL          *string   `json:"url,omitempty"`
	Memo         *string   `json:"memo,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	FaviconURL   *string   `json:"faviconUrl,omitempty"`
	PreviewImage *string   `json:"previewImage,omitempty"`
	IsFavorite   *bool     `json:"isFavorite,omitempty"`
}

// IsEmpty reports whether the patch writes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.URL == nil && p.Memo == nil && p.Tags == nil &&
		p.FaviconURL == nil && p.PreviewImage == nil && p.IsFavorite == nil
}

// Apply returns b with the patch fields written over it.
func (p Patch) Apply(b Bookmark) Bookmark {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Memo != nil {
		b.Memo = p.Memo
	}
	if p.Tags != nil {
		b.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.FaviconURL != nil {
		b.FaviconURL = p.FaviconURL
	}
	if p.PreviewImage != nil {
		b.PreviewImage = p.PreviewImage
	}
	if p.IsFavorite != nil {
		b.IsFavorite = *p.IsFavorite
	}
	return b
}

// HasTag reports whether b carries tag (exact, already normalized).
func (b Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
