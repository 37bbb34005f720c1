package homepage

import (
	"errors"
	"testing"
)

func TestMapServices(t *testing.T) {
	config := ServicesConfig{
		{
			"Infrastructure": []map[string]ServiceProps{
				{
					"AdGuard Home": {
						Icon:        "adguard-home.svg",
						Href:        "https://adguard.domain.ext",
						Description: "Network-wide ads blocking",
					},
				},
				{
					"Traefik": {
						Icon:        "https://traefik.domain.ext/icon.png",
						Href:        "https://traefik.domain.ext",
						Description: "Cloud Native Application Proxy",
					},
				},
			},
		},
	}

	got, err := MapServices(config)
	if err != nil {
		t.Fatalf("MapServices() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("MapServices() returned %v bookmarks, want 2", len(got))
	}

	adguard := got[0]
	if adguard.Title != "AdGuard Home" {
		t.Errorf("Title = %q, want AdGuard Home", adguard.Title)
	}
	if adguard.Memo == nil || *adguard.Memo != "Network-wide ads blocking" {
		t.Errorf("Memo = %v, want description", adguard.Memo)
	}
	if adguard.FaviconURL != nil {
		t.Errorf("FaviconURL = %v, want nil for an icon-set name", *adguard.FaviconURL)
	}
	if len(adguard.Tags) != 1 || adguard.Tags[0] != "infrastructure" {
		t.Errorf("Tags = %v, want [infrastructure]", adguard.Tags)
	}
	if got[1].FaviconURL == nil || *got[1].FaviconURL != "https://traefik.domain.ext/icon.png" {
		t.Errorf("FaviconURL = %v, want icon URL", got[1].FaviconURL)
	}
}

func TestMapServicesEmptyConfig(t *testing.T) {
	got, err := MapServices(ServicesConfig{})
	if !errors.Is(err, ErrNoEntries) {
		t.Errorf("MapServices() error = %v, want ErrNoEntries", err)
	}
	if got != nil {
		t.Errorf("MapServices() with empty config should return nil, got %v", len(got))
	}
}

func TestMapServicesInvalidURL(t *testing.T) {
	config := ServicesConfig{
		{
			"Test": []map[string]ServiceProps{
				{
					"Invalid Service": {
						Icon:        "test.svg",
						Href:        "not-a-valid-url",
						Description: "Invalid URL",
					},
				},
			},
		},
	}

	got, err := MapServices(config)
	if err == nil {
		t.Error("MapServices() should return error when no valid services found")
	}
	if got != nil {
		t.Errorf("MapServices() should return nil when no valid services, got %v", len(got))
	}
}

func TestMapBookmarksOrderIsStable(t *testing.T) {
	config := BookmarksConfig{
		{
			"Zeta": []map[string][]BookmarkEntry{
				{"b": {{Href: "https://b.example.com"}}, "a": {{Href: "https://a.example.com"}}},
			},
			"Alpha": []map[string][]BookmarkEntry{
				{"c": {{Href: "https://c.example.com"}}},
				{"empty": {}},
			},
		},
	}

	for range 5 {
		got, err := MapBookmarks(config)
		if err != nil {
			t.Fatalf("MapBookmarks() error = %v", err)
		}
		var titles []string
		for _, nb := range got {
			titles = append(titles, nb.Title)
		}
		if len(titles) != 3 || titles[0] != "c" || titles[1] != "a" || titles[2] != "b" {
			t.Fatalf("MapBookmarks() titles = %v, want [c a b]", titles)
		}
	}
}
