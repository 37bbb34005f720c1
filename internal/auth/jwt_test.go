package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, "linkshelf", time.Hour)

	token, err := m.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != "user-123" {
		t.Errorf("Verify() = %q, want %q", got, "user-123")
	}
}

func TestVerifyRejects(t *testing.T) {
	m := NewJWTManager(testSecret, "linkshelf", time.Hour)

	expired := NewJWTManager(testSecret, "linkshelf", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Issue("u")

	foreignIssuer, _ := NewJWTManager(testSecret, "someone-else", time.Hour).Issue("u")
	wrongSecret, _ := NewJWTManager("another-secret-that-is-long-enough!", "linkshelf", time.Hour).Issue("u")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "u", Issuer: "linkshelf",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":        "not.a.jwt",
		"expired":        expiredToken,
		"issuer":         foreignIssuer,
		"secret":         wrongSecret,
		"none algorithm": none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Verify(token); err == nil {
				t.Error("Verify() expected error")
			}
		})
	}

	if _, err := m.Verify(""); !errors.Is(err, ErrNoToken) {
		t.Errorf("Verify(\"\") error = %v, want ErrNoToken", err)
	}
	if _, err := m.Issue(""); err == nil {
		t.Error("Issue(\"\") expected error")
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "cookie", cookie: "xyz", want: "xyz"},
		{name: "header wins", header: "Bearer abc", cookie: "xyz", want: "abc"},
		{name: "basic ignored", header: "Basic Zm9vOmJhcg==", want: ""},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserIDContext(t *testing.T) {
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("UserIDFromContext() = %q, want empty", got)
	}
	ctx := WithUserID(context.Background(), "alice")
	if got := UserIDFromContext(ctx); got != "alice" {
		t.Errorf("UserIDFromContext() = %q, want alice", got)
	}
}
