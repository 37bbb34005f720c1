package domain

import (
	"fmt"
	"slices"
	"strings"
)

// SortMode orders a bookmark view. The zero value keeps store order.
type SortMode string

const (
	SortNone         SortMode = ""
	SortRecent       SortMode = "recent"
	SortAlphabetical SortMode = "alphabetical"
	SortLastVisited  SortMode = "last_visited"
)

// ParseSortMode accepts the wire names of the sort modes.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortNone, SortRecent, SortAlphabetical, SortLastVisited:
		return m, nil
	default:
		return SortNone, NewValidationError("sort", fmt.Sprintf("unknown sort mode %q", s))
	}
}

// Sort orders bookmarks in place. The sort is stable.
func Sort(bookmarks []Bookmark, mode SortMode) {
	switch mode {
	case SortRecent:
		slices.SortStableFunc(bookmarks, func(a, b Bookmark) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case SortAlphabetical:
		slices.SortStableFunc(bookmarks, func(a, b Bookmark) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	case SortLastVisited:
		slices.SortStableFunc(bookmarks, func(a, b Bookmark) int {
			switch {
			case a.LastVisited == nil && b.LastVisited == nil:
				return 0
			case a.LastVisited == nil:
				return 1
			case b.LastVisited == nil:
				return -1
			}
			return b.LastVisited.Compare(*a.LastVisited)
		})
	}
}
