package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/cache"
	"github.com/MrSnakeDoc/linkshelf/internal/dashboard"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/metadata"
	"github.com/MrSnakeDoc/linkshelf/internal/session"
	"github.com/MrSnakeDoc/linkshelf/internal/store"
	"github.com/MrSnakeDoc/linkshelf/internal/store/memory"
	"github.com/MrSnakeDoc/linkshelf/internal/version"
)

type testServer struct {
	t        *testing.T
	srv      *httptest.Server
	jwt      *auth.JWTManager
	sessions *session.Registry
}

func newTestServer(t *testing.T, mutate ...func(*deps.Deps)) *testServer {
	t.Helper()

	log := logger.Nop()
	client := store.NewClient(memory.NewTable(), log)
	reg := session.NewRegistry(session.NewCacheFactory(cache.Options[[]domain.Bookmark]{}), log)
	jwt := auth.NewJWTManager("test-secret", "linkshelf", time.Hour)

	d := deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Build:          version.Get(),
		Dashboard:      dashboard.New(client, log, dashboard.WithSessions(reg)),
		Sessions:       reg,
		JWT:            jwt,
		Fetcher:        metadata.NewStub(log),
		DebounceWindow: 10 * time.Millisecond,
		ImportMaxBytes: 1 << 16,
		Store:          client,
		DatabaseDriver: "memory",
	}
	for _, m := range mutate {
		m(&d)
	}

	srv := httptest.NewServer(NewRouter(d, 5*time.Second))
	t.Cleanup(func() {
		srv.Close()
		reg.CloseAll()
	})
	return &testServer{t: t, srv: srv, jwt: jwt, sessions: reg}
}

func (ts *testServer) token(userID string) string {
	ts.t.Helper()
	tok, err := ts.jwt.Issue(userID)
	require.NoError(ts.t, err)
	return tok
}

// do sends a request as userID ("" for anonymous) and decodes a JSON
// response into out when out is non-nil.
func (ts *testServer) do(method, path, userID string, body any, out any) int {
	ts.t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(ts.t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(userID))
	}

	res, err := ts.srv.Client().Do(req)
	require.NoError(ts.t, err)
	defer func() { _ = res.Body.Close() }()

	if out != nil {
		require.NoError(ts.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestAnonymousReadsAreEmpty(t *testing.T) {
	ts := newTestServer(t)

	var view dashboard.View
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks", "", nil, &view))
	assert.NotNil(t, view.Bookmarks, "bookmarks must encode as [] not null")
	assert.Empty(t, view.Bookmarks)
	assert.Equal(t, 0, view.Total)

	var stats domain.Stats
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/stats", "", nil, &stats))
	assert.Equal(t, domain.Stats{}, stats)

	assert.Equal(t, 0, ts.sessions.Count(), "anonymous requests must not open sessions")
}

func TestAnonymousWritesAreRejected(t *testing.T) {
	ts := newTestServer(t)

	status := ts.do(http.MethodPost, "/api/bookmarks", "", map[string]any{"title": "Go", "url": "https://go.dev"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = ts.do(http.MethodPost, "/api/draft", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestInvalidTokenIsRejected(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/bookmarks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	res, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	_ = res.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestBookmarkLifecycle(t *testing.T) {
	ts := newTestServer(t)
	const user = "user-1"

	var created domain.Bookmark
	status := ts.do(http.MethodPost, "/api/bookmarks", user, map[string]any{
		"title": "Go Docs",
		"url":   "https://go.dev/doc/",
		"tags":  []string{"Go", "docs"},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"go", "docs"}, created.Tags)

	status = ts.do(http.MethodPost, "/api/bookmarks", user, map[string]any{
		"title": "Reddit",
		"url":   "https://reddit.com/",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var view dashboard.View
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks?q=doc", user, nil, &view))
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, 1, view.Matched)

	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks?tags=GO", user, nil, &view))
	require.Len(t, view.Bookmarks, 1)
	assert.Equal(t, created.ID, view.Bookmarks[0].ID)

	var updated domain.Bookmark
	status = ts.do(http.MethodPatch, "/api/bookmarks/"+created.ID, user, map[string]any{"title": "The Go Docs"}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "The Go Docs", updated.Title)

	var fav domain.Bookmark
	status = ts.do(http.MethodPost, "/api/bookmarks/"+created.ID+"/favorite", user, nil, &fav)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, fav.IsFavorite)

	var stats domain.Stats
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/stats", user, nil, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Favorites)
	assert.Equal(t, 2, stats.Tags)

	var tags struct {
		Tags []domain.TagCount `json:"tags"`
	}
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/tags", user, nil, &tags))
	assert.Len(t, tags.Tags, 2)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/bookmarks/"+created.ID, user, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/bookmarks/"+created.ID, user, nil, nil))

	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks", user, nil, &view))
	assert.Equal(t, 1, view.Total)
}

func TestUsersAreIsolated(t *testing.T) {
	ts := newTestServer(t)

	var created domain.Bookmark
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/bookmarks", "alice",
		map[string]any{"title": "Mine", "url": "https://example.com"}, &created))

	var view dashboard.View
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks", "bob", nil, &view))
	assert.NotNil(t, view.Bookmarks)
	assert.Empty(t, view.Bookmarks)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/bookmarks/"+created.ID, "bob", nil, nil))
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Error  string              `json:"error"`
		Fields []domain.FieldError `json:"fields"`
	}
	status := ts.do(http.MethodPost, "/api/bookmarks", "user-1", map[string]any{"title": "", "url": "nope"}, &body)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Len(t, body.Fields, 2)

	status = ts.do(http.MethodGet, "/api/bookmarks?sort=random", "user-1", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestMetadataNeverFails(t *testing.T) {
	ts := newTestServer(t)

	var md metadata.Metadata
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/metadata?url=https://example.com/blog/post-1", "", nil, &md))
	assert.Equal(t, "post-1", md.Title)
	assert.Equal(t, "https://example.com/favicon.ico", md.FaviconURL)

	md = metadata.Metadata{}
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/metadata?url=not%20a%20url", "", nil, &md))
	assert.Equal(t, metadata.Metadata{}, md)
}

func TestMetadataScrapeRequiresUser(t *testing.T) {
	var hits atomic.Int32
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><head><title>Scraped Page</title></head></html>")
	}))
	defer page.Close()

	ts := newTestServer(t, func(d *deps.Deps) {
		d.Fetcher = metadata.NewScraper(time.Second, d.Logger, metadata.WithPrivateHosts())
	})
	path := "/api/metadata?url=" + url.QueryEscape(page.URL+"/doc")

	var md metadata.Metadata
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, path, "", nil, &md))
	assert.Equal(t, metadata.Metadata{}, md)
	assert.Equal(t, int32(0), hits.Load(), "anonymous callers must not trigger a fetch")

	md = metadata.Metadata{}
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, path, "user-1", nil, &md))
	assert.Equal(t, "Scraped Page", md.Title)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDraftFlow(t *testing.T) {
	ts := newTestServer(t)
	const user = "user-1"

	var state metadata.DraftState
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/draft", user, nil, &state))
	assert.Empty(t, state.URL)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPatch, "/api/draft", user,
		map[string]any{"url": "https://example.com/docs/getting-started", "tags": []string{"Docs"}}, nil))

	require.Eventually(t, func() bool {
		var s metadata.DraftState
		ts.do(http.MethodGet, "/api/draft", user, nil, &s)
		return !s.Fetching && s.Title == "getting-started"
	}, 2*time.Second, 10*time.Millisecond)

	var saved domain.Bookmark
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/draft/save", user, nil, &saved))
	assert.Equal(t, "getting-started", saved.Title)
	require.NotNil(t, saved.FaviconURL)
	assert.Equal(t, "https://example.com/favicon.ico", *saved.FaviconURL)
	assert.Equal(t, []string{"docs"}, saved.Tags)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/draft", user, nil, nil))

	// Editing keeps a custom title.
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/draft", user, map[string]any{"bookmarkId": saved.ID}, &state))
	assert.Equal(t, saved.ID, state.BookmarkID)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPatch, "/api/draft", user,
		map[string]any{"title": "My Guide", "url": "https://example.com/docs/v2"}, nil))

	require.Eventually(t, func() bool {
		var s metadata.DraftState
		ts.do(http.MethodGet, "/api/draft", user, nil, &s)
		return !s.Fetching
	}, 2*time.Second, 10*time.Millisecond)

	var edited domain.Bookmark
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/draft/save", user, nil, &edited))
	assert.Equal(t, saved.ID, edited.ID)
	assert.Equal(t, "My Guide", edited.Title)
	assert.Equal(t, "https://example.com/docs/v2", edited.URL)
}

func TestImportHomepage(t *testing.T) {
	ts := newTestServer(t)
	const user = "user-1"
	const body = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go Docs:
        - href: https://go.dev/doc/
`

	var res dashboard.ImportResult
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/import/homepage", user, body, &res))
	assert.Equal(t, dashboard.ImportResult{Imported: 2}, res)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/import/homepage?format=bookmarks", user, body, &res))
	assert.Equal(t, dashboard.ImportResult{Skipped: 2}, res)

	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(http.MethodPost, "/api/import/homepage?format=widgets", user, body, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(http.MethodPost, "/api/import/homepage", user, "- [unclosed", nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/import/homepage", "", body, nil))
}

func TestImportHomepage_TooLarge(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) { d.ImportMaxBytes = 16 })

	status := ts.do(http.MethodPost, "/api/import/homepage", "user-1", strings.Repeat("x", 64), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks", "user-1", nil, &dashboard.View{}))
	require.Equal(t, 1, ts.sessions.Count())

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodPost, "/api/logout", "user-1", nil, nil))
	assert.Equal(t, 0, ts.sessions.Count())
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t)

	var health map[string]any
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var ready map[string]any
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/readyz", "", nil, &ready))
	assert.Equal(t, true, ready["ready"])
	assert.NotContains(t, ready, "redis")

	var infra struct {
		Mode string `json:"mode"`
	}
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/infra", "", nil, &infra))
	assert.Equal(t, "optimal", infra.Mode)
}

func TestReload(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/reload", "", nil, nil))

	trigger := make(chan struct{}, 1)
	ts = newTestServer(t, func(d *deps.Deps) { d.ImportTrigger = trigger })
	assert.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/reload", "", nil, nil))
	assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodPost, "/reload", "", nil, nil))
	assert.Len(t, trigger, 1)
}

func TestRateLimitedAPI(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) { d.RateLimit = 2 })

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks", "user-1", nil, nil))
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/bookmarks", "user-1", nil, nil))
	assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodGet, "/api/bookmarks", "user-1", nil, nil))
	// Probes are outside the API group.
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", nil, nil))
}
