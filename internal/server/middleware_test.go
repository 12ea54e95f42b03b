package server

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterIsolatesClients(t *testing.T) {
	t.Parallel()

	limiter := newIPRateLimiter(0.001, 1)
	if !limiter.allow("10.0.0.1") {
		t.Fatal("expected first request to pass")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatal("expected second request from the same client to be limited")
	}
	if !limiter.allow("10.0.0.2") {
		t.Fatal("expected another client to have its own bucket")
	}
}

func TestIPRateLimiterSweepsIdleVisitors(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := newIPRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.allow("10.0.0.1")
	now = now.Add(5 * time.Minute)
	limiter.allow("10.0.0.2")
	now = now.Add(6 * time.Minute)

	if removed := limiter.sweep(10 * time.Minute); removed != 1 {
		t.Fatalf("expected one idle visitor to be removed, got %d", removed)
	}
	if limiter.size() != 1 {
		t.Fatalf("expected one visitor to remain, got %d", limiter.size())
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		remote    string
		forwarded string
		trusted   bool
		want      string
	}{
		{"remote addr", "192.0.2.1:1234", "", false, "192.0.2.1"},
		{"forwarded first hop", "192.0.2.1:1234", "198.51.100.9, 10.0.0.1", true, "198.51.100.9"},
		{"untrusted forwarded header", "192.0.2.1:1234", "198.51.100.9", false, "192.0.2.1"},
		{"no port", "192.0.2.5", "", true, "192.0.2.5"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
