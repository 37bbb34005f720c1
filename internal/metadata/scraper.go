package metadata

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

const (
	maxBodyBytes = 2 << 20
	maxRedirects = 5
)

var errPrivateAddress = errors.New("private address")

var descriptionSelectors = []string{
	"meta[name='description']",
	"meta[name='Description']",
	"meta[property='og:description']",
	"meta[name='og:description']",
	"meta[name='twitter:description']",
}

var iconSelectors = []string{
	"link[rel='icon']",
	"link[rel='shortcut icon']",
	"link[rel='apple-touch-icon']",
	"link[rel~='icon']",
}

type ScraperOption func(*Scraper)

// WithHTTPClient replaces the default client. The scraper installs its
// own redirect policy on a copy of c.
func WithHTTPClient(c *http.Client) ScraperOption {
	return func(s *Scraper) { s.client = c }
}

// WithPrivateHosts lets the scraper reach loopback and private addresses.
func WithPrivateHosts() ScraperOption {
	return func(s *Scraper) { s.allowPrivate = true }
}

// Scraper fetches the page server-side and reads its head. Anything the
// page does not provide falls back to the derived values.
type Scraper struct {
	client       *http.Client
	policy       *bluemonday.Policy
	log          logger.Logger
	allowPrivate bool
}

func NewScraper(timeout time.Duration, log logger.Logger, opts ...ScraperOption) *Scraper {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &Scraper{
		policy: bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		dialer := &net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
			Control:   s.dialControl,
		}
		s.client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	client := *s.client
	client.CheckRedirect = s.checkRedirect
	s.client = &client
	return s
}

// dialControl refuses a connection whose resolved address is not public,
// whatever name led to it.
func (s *Scraper) dialControl(_, address string, _ syscall.RawConn) error {
	if s.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", errPrivateAddress, host)
	}
	return nil
}

// checkRedirect applies the scheme and host rules to every hop.
func (s *Scraper) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
	}
	if !s.allowPrivate && !isPublicHost(req.URL.Hostname()) {
		return fmt.Errorf("%w: redirect to %s", errPrivateAddress, req.URL.Host)
	}
	return nil
}

func (s *Scraper) Fetch(ctx context.Context, rawURL string) Metadata {
	derived, ok := Derive(rawURL)
	if !ok {
		return derived
	}

	doc, final := s.fetchDocument(ctx, rawURL)
	if doc == nil {
		return derived
	}

	md := Metadata{
		Title:       s.clean(firstNonEmpty(attr(doc, "meta[property='og:title']", "content"), doc.Find("title").First().Text())),
		Description: s.clean(firstAttr(doc, descriptionSelectors, "content")),
		FaviconURL:  resolve(final, firstAttr(doc, iconSelectors, "href")),
		ImageURL:    resolve(final, attr(doc, "meta[property='og:image']", "content")),
	}
	return merge(md, derived)
}

func (s *Scraper) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, *url.URL) {
	log := s.log.With(logger.String("url", rawURL))

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		log.Debug("unsupported scheme")
		return nil, nil
	}
	if !s.allowPrivate && !isPublicHost(u.Hostname()) {
		log.Warn("refusing to scrape private host")
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		log.Warn("failed to create request", logger.Error(err))
		return nil, nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	res, err := s.client.Do(req)
	if err != nil {
		log.Warn("metadata request failed", logger.Duration("elapsed", time.Since(start)), logger.Error(err))
		return nil, nil
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.Warn("metadata request rejected", logger.Int("status", res.StatusCode))
		return nil, nil
	}
	if ct := res.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "html") {
		log.Debug("not an html page", logger.String("content_type", ct))
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		log.Warn("failed to parse html", logger.Error(err))
		return nil, nil
	}
	log.Debug("scraped page", logger.Duration("elapsed", time.Since(start)))
	return doc, res.Request.URL
}

// clean strips any markup from scraped text and collapses whitespace.
func (s *Scraper) clean(text string) string {
	text = html.UnescapeString(s.policy.Sanitize(text))
	return strings.Join(strings.Fields(text), " ")
}

func attr(doc *goquery.Document, selector, name string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr(name, ""))
}

func firstAttr(doc *goquery.Document, selectors []string, name string) string {
	for _, sel := range selectors {
		if v := attr(doc, sel, name); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// resolve makes ref absolute against base. Non-http results are dropped.
func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(r)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func merge(md, fallback Metadata) Metadata {
	if md.Title == "" {
		md.Title = fallback.Title
	}
	if md.Description == "" {
		md.Description = fallback.Description
	}
	if md.FaviconURL == "" {
		md.FaviconURL = fallback.FaviconURL
	}
	if md.ImageURL == "" {
		md.ImageURL = fallback.ImageURL
	}
	return md
}
