package metadata

import (
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// DraftState is a snapshot of the add/edit form.
type DraftState struct {
	BookmarkID  string   `json:"bookmarkId,omitempty"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Memo        string   `json:"memo"`
	Tags        []string `json:"tags"`
	FaviconURL  string   `json:"faviconUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Fetching    bool     `json:"fetching"`
}

// Draft holds the form being filled in for a new or edited bookmark and
// fills in title and favicon from the typed URL once typing settles.
type Draft struct {
	mu          sync.Mutex
	state       DraftState
	editing     *domain.Bookmark
	manualTitle bool
	deb         *Debouncer
}

// NewDraft starts a draft. editing is the bookmark being edited, or nil
// for a new one.
func NewDraft(f Fetcher, window time.Duration, editing *domain.Bookmark) *Draft {
	d := &Draft{state: DraftState{Tags: []string{}}}
	if editing != nil {
		e := *editing
		d.editing = &e
		d.state.BookmarkID = e.ID
		d.state.URL = e.URL
		d.state.Title = e.Title
		d.state.Tags = append([]string{}, e.Tags...)
		if e.Memo != nil {
			d.state.Memo = *e.Memo
		}
		if e.FaviconURL != nil {
			d.state.FaviconURL = *e.FaviconURL
		}
	}
	d.deb = NewDebouncer(f, window, d.apply)
	return d
}

// SetURL records the typed URL. A fetch is scheduled only for http(s)
// input that differs from the edited bookmark's URL.
func (d *Draft) SetURL(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.URL = u
	if !strings.HasPrefix(u, "http") || (d.editing != nil && u == d.editing.URL) {
		d.deb.Cancel()
		return
	}
	d.deb.Submit(u)
}

// SetTitle records a title typed by the user.
func (d *Draft) SetTitle(t string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.Title = t
	d.manualTitle = true
}

func (d *Draft) SetMemo(m string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.Memo = m
}

func (d *Draft) SetTags(tags []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.Tags = domain.NormalizeTags(tags)
}

// EditingID returns the id of the edited bookmark, or "".
func (d *Draft) EditingID() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state.BookmarkID
}

func (d *Draft) Snapshot() DraftState {
	d.mu.Lock()
	s := d.state
	d.mu.Unlock()

	s.Tags = append([]string{}, s.Tags...)
	s.Fetching = d.deb.Pending()
	return s
}

// Close stops any pending fetch.
func (d *Draft) Close() { d.deb.Close() }

// NewBookmark converts the draft into an insert.
func (d *Draft) NewBookmark() domain.NewBookmark {
	s := d.Snapshot()
	return domain.NewBookmark{
		Title:        s.Title,
		URL:          s.URL,
		Memo:         optional(s.Memo),
		Tags:         s.Tags,
		FaviconURL:   optional(s.FaviconURL),
		PreviewImage: optional(s.ImageURL),
	}
}

// Patch converts the draft into an update of the edited bookmark. A
// blank memo is left untouched unless it clears the edited one.
func (d *Draft) Patch() domain.Patch {
	s := d.Snapshot()
	tags := s.Tags
	p := domain.Patch{
		Title:        &s.Title,
		URL:          &s.URL,
		Memo:         optional(s.Memo),
		Tags:         &tags,
		FaviconURL:   optional(s.FaviconURL),
		PreviewImage: optional(s.ImageURL),
	}
	if p.Memo == nil && d.editing != nil && d.editing.Memo != nil && *d.editing.Memo != "" {
		p.Memo = &s.Memo
	}
	return p
}

func (d *Draft) apply(url string, md Metadata) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if url != d.state.URL {
		return
	}
	editingTitle := ""
	if d.editing != nil {
		editingTitle = d.editing.Title
	}
	if ShouldApplyTitle(d.state.Title, editingTitle, url) && !(d.manualTitle && d.state.Title != "" && d.state.Title != url) {
		d.state.Title = md.Title
	}
	d.state.FaviconURL = md.FaviconURL
	d.state.Description = md.Description
	d.state.ImageURL = md.ImageURL
}

// ShouldApplyTitle reports whether a fetched title may replace current:
// only when current is empty, is still the edited bookmark's title, or is
// just the URL pasted into the title field.
func ShouldApplyTitle(current, editingTitle, url string) bool {
	return current == "" || (editingTitle != "" && current == editingTitle) || current == url
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
