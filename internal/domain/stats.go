package domain

import (
	"slices"
	"strings"
	"time"
)

// RecentWindow is how far back a bookmark still counts as recent.
const RecentWindow = 7 * 24 * time.Hour

// Stats summarizes a user's full collection.
type Stats struct {
	Total     int `json:"total"`
	Favorites int `json:"favorites"`
	Tags      int `json:"tags"`
	Recent    int `json:"recent"`
}

// ComputeStats summarizes bookmarks against the current wall clock.
func ComputeStats(bookmarks []Bookmark) Stats {
	return ComputeStatsAt(bookmarks, time.Now())
}

// ComputeStatsAt summarizes bookmarks as of now. Recent counts bookmarks
// created strictly after now minus RecentWindow.
func ComputeStatsAt(bookmarks []Bookmark, now time.Time) Stats {
	cutoff := now.Add(-RecentWindow)
	tags := make(map[string]struct{})

	var s Stats
	s.Total = len(bookmarks)
	for _, b := range bookmarks {
		if b.IsFavorite {
			s.Favorites++
		}
		if b.CreatedAt.After(cutoff) {
			s.Recent++
		}
		for _, t := range b.Tags {
			tags[t] = struct{}{}
		}
	}
	s.Tags = len(tags)
	return s
}

// TagCount is one entry of the tag sidebar.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TagCounts counts how many bookmarks carry each tag, most used first,
// ties broken by name.
func TagCounts(bookmarks []Bookmark) []TagCount {
	counts := make(map[string]int)
	for _, b := range bookmarks {
		for _, t := range b.Tags {
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, TagCount{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
