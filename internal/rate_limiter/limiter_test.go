package ratelimiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllow(t *testing.T) {
	rl := NewLimiter[string](2, time.Minute, CleanupOpts{})
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "keys are independent")
}

func TestLimiterDisabled(t *testing.T) {
	rl := NewLimiter[int](0, time.Minute, CleanupOpts{})
	defer rl.Stop()

	for range 100 {
		assert.True(t, rl.Allow(1))
	}
}

func TestLimiterEvict(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewLimiter[string](1, time.Minute, CleanupOpts{TTL: time.Minute})
	defer rl.Stop()
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(30 * time.Second)
	rl.Allow("b")
	now = now.Add(45 * time.Second)
	rl.evict()

	assert.Equal(t, 1, rl.Len())
	assert.True(t, rl.Allow("a"), "evicted key starts with a fresh bucket")
}

func TestIPRateLimiterMiddleware(t *testing.T) {
	rl := NewIPRateLimiter(1, time.Minute, CleanupOpts{})
	defer rl.Stop()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := rl.Middleware(next)

	tests := []struct {
		name   string
		addr   string
		xff    string
		htmx   bool
		status int
	}{
		{"first_request", "10.0.0.1:5000", "", false, http.StatusNoContent},
		{"second_request_limited", "10.0.0.1:5001", "", false, http.StatusTooManyRequests},
		{"forwarded_client", "10.0.0.1:5002", "203.0.113.9", false, http.StatusNoContent},
		{"forwarded_client_limited_htmx", "10.0.0.2:5000", "198.51.100.1, 203.0.113.9", true, http.StatusTooManyRequests},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
			req.RemoteAddr = tc.addr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.htmx {
				assert.Contains(t, rec.Body.String(), "Too many requests")
			}
		})
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name string
		addr string
		xff  string
		want string
	}{
		{"remote_addr", "192.0.2.7:4242", "", "192.0.2.7"},
		{"last_forwarded_hop", "10.0.0.1:80", "198.51.100.1, 203.0.113.9", "203.0.113.9"},
		{"trailing_empty_hop", "192.0.2.7:4242", "198.51.100.1, ", "192.0.2.7"},
		{"no_port", "192.0.2.7", "", "192.0.2.7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.addr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			assert.Equal(t, tc.want, ClientAddr(req))
		})
	}
}
