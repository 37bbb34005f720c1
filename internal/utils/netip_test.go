package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

func TestParseHostNoPort(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"10.0.0.1":        "10.0.0.1",
		"10.0.0.1:8080":   "10.0.0.1",
		"[::1]:443":       "::1",
		"[2001:db8::1]":   "2001:db8::1",
		"  192.0.2.7  ":   "192.0.2.7",
		"example.com:80":  "example.com",
	}
	for in, want := range tests {
		if got := ParseHostNoPort(in); got != want {
			t.Errorf("ParseHostNoPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", want: "203.0.113.9"},
		{name: "proxy headers ignored", headers: map[string]string{"X-Forwarded-For": "1.1.1.1"}, want: "203.0.113.9"},
		{name: "cloudflare first", trustProxy: true, headers: map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, want: "1.1.1.1"},
		{name: "left-most forwarded", trustProxy: true, headers: map[string]string{"X-Forwarded-For": " 2.2.2.2 , 3.3.3.3"}, want: "2.2.2.2"},
		{name: "real ip", trustProxy: true, headers: map[string]string{"X-Real-IP": "4.4.4.4"}, want: "4.4.4.4"},
		{name: "no headers", trustProxy: true, want: "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = "203.0.113.9:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.10 ", "::1", "garbage", ""})
	if m.IsEmpty() {
		t.Fatal("IsEmpty() = true, want false")
	}

	tests := map[string]bool{
		"10.200.3.4":         true,
		"192.168.1.10":       true,
		"192.168.1.11":       false,
		"::1":                true,
		"::ffff:10.1.1.1":    true,
		"not-an-ip":          false,
		"2001:db8::1":        false,
	}
	for ip, want := range tests {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("NewIPMatcher(nil).IsEmpty() = false, want true")
	}
}

type failingCloser struct{ closed bool }

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("already closed")
}

func TestCloseLogged(t *testing.T) {
	c := &failingCloser{}
	CloseLogged(c, "test", logger.Nop())
	if !c.closed {
		t.Error("CloseLogged() did not close")
	}
	CloseLogged(nil, "nil", logger.Nop())
}
