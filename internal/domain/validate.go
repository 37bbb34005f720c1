package domain

import (
	"net/url"
	"strings"
)

// IsWellFormedURL reports whether raw parses as an absolute URL with a host.
func IsWellFormedURL(raw string) bool {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// NormalizeTags trims and lower-cases tags, dropping empties and duplicates.
// First occurrence wins the position. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Validate checks the fields an insert requires.
func (nb NewBookmark) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(nb.Title) == "" {
		verr.Add("title", "title is required")
	}
	switch {
	case nb.URL == "":
		verr.Add("url", "url is required")
	case !IsWellFormedURL(nb.URL):
		verr.Add("url", "url must be an absolute URL")
	}
	return verr.OrNil()
}

// Validate checks only the fields the patch provides.
func (p Patch) Validate() error {
	verr := &ValidationError{}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		verr.Add("title", "title must not be empty")
	}
	if p.URL != nil && !IsWellFormedURL(*p.URL) {
		verr.Add("url", "url must be an absolute URL")
	}
	return verr.OrNil()
}
