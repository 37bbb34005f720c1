package metadata

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

const untitled = "Untitled"

// Metadata is what can be learned about a page from its URL or content.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	FaviconURL  string `json:"faviconUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Fetcher resolves metadata for a URL. Fetch never fails: anything it
// cannot learn is left empty.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) Metadata
}

// BaseURL returns scheme://hostname for an absolute URL. The port is
// dropped.
func BaseURL(u *url.URL) string {
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return u.Scheme + "://" + host
}

// Derive computes metadata from the URL alone. ok is false when raw is not
// an absolute URL, in which case the zero Metadata is returned.
func Derive(raw string) (Metadata, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return Metadata{}, false
	}
	base := BaseURL(u)
	return Metadata{
		Title:       titleFromPath(u.Path),
		Description: "Content from " + base,
		FaviconURL:  base + "/favicon.ico",
	}, true
}

func titleFromPath(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return untitled
	}
	return p
}

// Stub derives metadata without any network access.
type Stub struct {
	log logger.Logger
}

func NewStub(log logger.Logger) *Stub {
	if log == nil {
		log = logger.Nop()
	}
	return &Stub{log: log}
}

func (s *Stub) Fetch(_ context.Context, rawURL string) Metadata {
	md, ok := Derive(rawURL)
	if !ok {
		s.log.Debug("cannot derive metadata", logger.String("url", rawURL))
	}
	return md
}

// isPublicHost reports whether host is neither a localhost name nor a
// loopback, private or link-local literal. Names are checked again on
// their resolved address at dial time.
func isPublicHost(host string) bool {
	h := strings.ToLower(strings.TrimSuffix(host, "."))
	if h == "" || h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return false
	}
	ip := net.ParseIP(h)
	if ip == nil {
		return true
	}
	return isPublicIP(ip)
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast())
}
