package domain

import "strings"

// Filter keeps the bookmarks whose title, url, memo or any tag contains
// query, case-insensitively. A blank query keeps everything. Input order
// is preserved, the input slice is never modified and the result is
// never nil.
func Filter(bookmarks []Bookmark, query string) []Bookmark {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append(make([]Bookmark, 0, len(bookmarks)), bookmarks...)
	}

	out := make([]Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if matches(b, q) {
			out = append(out, b)
		}
	}
	return out
}

// Matches reports whether b matches query under the same rules as Filter.
func Matches(b Bookmark, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return matches(b, q)
}

// matches expects q already trimmed and lower-cased.
func matches(b Bookmark, q string) bool {
	if strings.Contains(strings.ToLower(b.Title), q) ||
		strings.Contains(strings.ToLower(b.URL), q) {
		return true
	}
	if b.Memo != nil && strings.Contains(strings.ToLower(*b.Memo), q) {
		return true
	}
	for _, t := range b.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// FilterByTags keeps the bookmarks that carry every selected tag.
// An empty selection keeps everything.
func FilterByTags(bookmarks []Bookmark, selected []string) []Bookmark {
	want := NormalizeTags(selected)
	if len(want) == 0 {
		return append(make([]Bookmark, 0, len(bookmarks)), bookmarks...)
	}

	out := make([]Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		ok := true
		for _, t := range want {
			if !b.HasTag(t) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, b)
		}
	}
	return out
}

// ViewOptions drives ApplyView.
type ViewOptions struct {
	Query string
	Tags  []string
	Sort  SortMode
}

// ApplyView runs the query filter, then the tag filter, then the sort.
func ApplyView(bookmarks []Bookmark, opts ViewOptions) []Bookmark {
	out := Filter(bookmarks, opts.Query)
	if len(opts.Tags) > 0 {
		out = FilterByTags(out, opts.Tags)
	}
	Sort(out, opts.Sort)
	return out
}
