package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCORSPermissiveMode(t *testing.T) {
	cfg := &corsConfig{permissive: true}
	handler := withCORSConfig(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), cfg)

	req := httptest.NewRequest(http.MethodGet, "/keywords", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedMode(t *testing.T) {
	cfg := &corsConfig{permissive: false, allowedOrigins: []string{"https://dash.example.com", "*.example.org"}}
	handler := withCORSConfig(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), cfg)

	cases := []struct {
		origin  string
		allowed bool
	}{
		{"https://dash.example.com", true},
		{"https://app.example.org", true},
		{"https://evil.example.net", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/keywords", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if tc.allowed {
			assert.Equal(t, tc.origin, rec.Header().Get("Access-Control-Allow-Origin"), tc.origin)
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), tc.origin)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &corsConfig{permissive: true}
	handler := withCORSConfig(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the next handler")
	}), cfg)

	req := httptest.NewRequest(http.MethodOptions, "/keywords", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := newIPRateLimiter(ctx, &rateLimiterConfig{enabled: true, requestsPerIP: 3, window: time.Minute})

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, limiter.allow("10.0.0.1"))
	// Other IPs are unaffected
	assert.True(t, limiter.allow("10.0.0.2"))
}

func TestRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := newIPRateLimiter(ctx, &rateLimiterConfig{enabled: true, requestsPerIP: 1, window: time.Minute})
	handler := rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), limiter)

	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
	req.RemoteAddr = "10.1.1.1:4321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
