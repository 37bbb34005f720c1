package homepage

import (
	"errors"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// ErrNoEntries is returned when a file holds nothing importable
var ErrNoEntries = errors.New("no valid entries found in homepage config")

// MapBookmarks converts bookmarks.yaml into new bookmarks. The category
// becomes the tag, abbr and description go to the memo.
func MapBookmarks(config BookmarksConfig) ([]domain.NewBookmark, error) {
	var out []domain.NewBookmark

	for _, category := range config {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, name := range sortedKeys(bookmarkMap) {
					entries := bookmarkMap[name]
					// Each bookmark has a list with a single entry
					if len(entries) == 0 {
						continue
					}
					entry := entries[0]
					if !domain.IsWellFormedURL(entry.Href) {
						continue
					}

					out = append(out, newBookmark(
						name,
						entry.Href,
						memo(entry.Abbr, entry.Description),
						categoryName,
						entry.Icon,
					))
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

// MapServices converts services.yaml into new bookmarks. The group becomes
// the tag and the description the memo.
func MapServices(config ServicesConfig) ([]domain.NewBookmark, error) {
	var out []domain.NewBookmark

	for _, groupMap := range config {
		for _, groupName := range sortedKeys(groupMap) {
			for _, serviceMap := range groupMap[groupName] {
				for _, name := range sortedKeys(serviceMap) {
					props := serviceMap[name]
					if !domain.IsWellFormedURL(props.Href) {
						continue
					}

					out = append(out, newBookmark(
						name,
						props.Href,
						strings.TrimSpace(props.Description),
						groupName,
						props.Icon,
					))
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

func newBookmark(title, href, memoText, tag, icon string) domain.NewBookmark {
	nb := domain.NewBookmark{
		Title: strings.TrimSpace(title),
		URL:   href,
		Tags:  domain.NormalizeTags([]string{tag}),
	}
	if nb.Title == "" {
		nb.Title = href
	}
	if memoText != "" {
		nb.Memo = &memoText
	}
	// Homepage icons are usually names from its own icon set; only
	// absolute URLs are usable as favicons.
	if domain.IsWellFormedURL(icon) && strings.HasPrefix(icon, "http") {
		nb.FaviconURL = &icon
	}
	return nb
}

func memo(abbr, description string) string {
	abbr, description = strings.TrimSpace(abbr), strings.TrimSpace(description)
	switch {
	case abbr != "" && description != "":
		return abbr + " - " + description
	case abbr != "":
		return abbr
	default:
		return description
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
