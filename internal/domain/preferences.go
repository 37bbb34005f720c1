package domain

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// UserPreferences mirrors the per-user settings row. Nothing in the core
// reads it yet.
type UserPreferences struct {
	UserID       string   `json:"userId"`
	Theme        Theme    `json:"theme"`
	ViewMode     ViewMode `json:"viewMode"`
	DefaultSort  SortMode `json:"defaultSort"`
	TagsExpanded bool     `json:"tagsExpanded"`
}

// DefaultPreferences returns the settings a new user starts with.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:       userID,
		Theme:        ThemeSystem,
		ViewMode:     ViewGrid,
		DefaultSort:  SortRecent,
		TagsExpanded: true,
	}
}
