package homepage

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// Format selects which Homepage file is being imported
type Format string

const (
	FormatBookmarks Format = "bookmarks"
	FormatServices  Format = "services"
)

// ParseFormat accepts "bookmarks" (the default when empty) or "services"
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatBookmarks:
		return FormatBookmarks, nil
	case FormatServices:
		return FormatServices, nil
	default:
		return "", domain.NewValidationError("format", fmt.Sprintf("unknown homepage format %q", s))
	}
}

// templateVar matches Homepage template variables ({{HOMEPAGE_VAR_...}})
var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Parse turns a Homepage yaml document into bookmarks to insert
func Parse(data []byte, format Format) ([]domain.NewBookmark, error) {
	data = stripTemplateVariables(data)

	switch format {
	case FormatServices:
		var config ServicesConfig
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse services yaml: %w", err)
		}
		return MapServices(config)
	default:
		var config BookmarksConfig
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
		}
		return MapBookmarks(config)
	}
}

// Loader reads a Homepage file from disk
type Loader struct {
	filePath string
	format   Format
}

// NewLoader creates a new Homepage loader
func NewLoader(filePath string, format Format) *Loader {
	return &Loader{
		filePath: filePath,
		format:   format,
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the file
func (l *Loader) Load() ([]domain.NewBookmark, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", l.format, err)
	}
	return Parse(data, l.format)
}

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
