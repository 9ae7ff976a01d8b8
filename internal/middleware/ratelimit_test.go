package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter()
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		if !rl.Allow("key", 5, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if rl.Allow("key", 5, time.Minute) {
		t.Error("6th request should be denied")
	}
	if !rl.Allow("other", 5, time.Minute) {
		t.Error("keys should be limited independently")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("key", 3, 10*time.Second)
	}

	if rl.Allow("key", 3, 10*time.Second) {
		t.Error("should be blocked within window")
	}

	clock.advance(11 * time.Second)

	if !rl.Allow("key", 3, 10*time.Second) {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, clock := newTestLimiter()

	rl.Allow("expired", 5, 10*time.Second)
	clock.advance(15 * time.Second)
	rl.Allow("active", 5, time.Minute)

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["expired"]; ok {
		t.Error("expired entry should have been cleaned up")
	}
	if _, ok := rl.entries["active"]; !ok {
		t.Error("active entry should still exist")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter()
	keyFunc := func(r *http.Request) string { return "test" }

	handler := RateLimit(rl, keyFunc, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First 2 requests should pass
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	// 3rd request should be rate limited
	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
}

func TestRealIPIgnoresForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	if got := RealIP(req); got != "10.0.0.5" {
		t.Errorf("RealIP = %q, want %q", got, "10.0.0.5")
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("CF-Connecting-IP", "198.51.100.9")
	if got := RealIP(req); got != "10.0.0.5" {
		t.Errorf("RealIP = %q, want peer %q", got, "10.0.0.5")
	}
}

func TestIPResolverClientIP(t *testing.T) {
	resolver := NewIPResolver([]netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
	})

	tests := []struct {
		name   string
		remote string
		xff    string
		cf     string
		want   string
	}{
		{"untrusted peer ignores headers", "192.0.2.1:1234", "203.0.113.7", "198.51.100.9", "192.0.2.1"},
		{"trusted peer without headers", "10.0.0.5:1234", "", "", "10.0.0.5"},
		{"trusted peer prefers cloudflare", "10.0.0.5:1234", "203.0.113.7", "198.51.100.9", "198.51.100.9"},
		{"rightmost untrusted hop wins", "10.0.0.5:1234", "6.6.6.6, 203.0.113.7, 10.0.0.2", "", "203.0.113.7"},
		{"all hops trusted", "10.0.0.5:1234", "10.1.1.1, 10.0.0.2", "", "10.1.1.1"},
		{"garbage hop stops the walk", "10.0.0.5:1234", "203.0.113.7, not-an-ip", "", "10.0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.cf != "" {
				req.Header.Set("CF-Connecting-IP", tt.cf)
			}
			if got := resolver.ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitNotBypassedByForwardedFor(t *testing.T) {
	rl, _ := newTestLimiter()
	resolver := NewIPResolver(nil)
	handler := RateLimit(rl, resolver.ClientIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest("POST", "/api/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want third request limited", codes)
	}
}
