package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// echoUser writes the authenticated user id, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id := auth.UserIDFromContext(r.Context())
	if id == "" {
		id = "anonymous"
	}
	_, _ = w.Write([]byte(id))
})

func TestAuthenticate(t *testing.T) {
	jwt := auth.NewJWTManager("test-secret", "linkshelf", time.Hour)
	token, err := jwt.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{name: "no token", setup: func(*http.Request) {}, wantStatus: http.StatusOK, wantBody: "anonymous"},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, wantStatus: http.StatusOK, wantBody: "user-42"},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token}) }, wantStatus: http.StatusOK, wantBody: "user-42"},
		{name: "garbage", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, wantStatus: http.StatusUnauthorized},
	}

	h := Authenticate(jwt, logger.Nop())(echoUser)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRateLimit_PerCaller(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:           2,
		RefillPerMinute: 60,
		Now:             func() time.Time { return now },
	})(echoUser)

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		if user != "" {
			req = req.WithContext(auth.WithUserID(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("alice"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
	rec := do("alice")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}

	// Another user from the same IP has their own bucket.
	if rec := do("bob"); rec.Code != http.StatusOK {
		t.Errorf("other user status = %d, want 200", rec.Code)
	}
	// Anonymous callers are keyed by IP.
	if rec := do(""); rec.Code != http.StatusOK {
		t.Errorf("anonymous status = %d, want 200", rec.Code)
	}

	now = now.Add(time.Second)
	if rec := do("alice"); rec.Code != http.StatusOK {
		t.Errorf("after refill status = %d, want 200", rec.Code)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"shelf.example.com", "*.lan"}, logger.Nop())(echoUser)

	tests := map[string]int{
		"shelf.example.com":      http.StatusOK,
		"shelf.example.com:8080": http.StatusOK,
		"SHELF.example.com":      http.StatusOK,
		"nas.lan":                http.StatusOK,
		"evil.example.com":       http.StatusForbidden,
	}
	for host, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("Host %q status = %d, want %d", host, rec.Code, want)
		}
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.Nop())(echoUser)

	tests := map[string]int{
		"10.1.2.3:5000":    http.StatusOK,
		"192.168.1.1:5000": http.StatusForbidden,
	}
	for addr, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("RemoteAddr %q status = %d, want %d", addr, rec.Code, want)
		}
	}

	open := AllowOnlyCIDRS(nil, false, logger.Nop())(echoUser)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.RemoteAddr = "192.168.1.1:5000"
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("empty list status = %d, want 200", rec.Code)
	}
}
