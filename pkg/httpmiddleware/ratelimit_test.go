package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limited(from string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = from
	return req
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 3, Window: time.Minute})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		remaining, _, allowed := l.take("k", now)
		require.True(t, allowed, "burst request %d", i+1)
		assert.Equal(t, 2-i, remaining)
	}

	remaining, wait, allowed := l.take("k", now)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Greater(t, wait, time.Duration(0))
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.take("k", now)
	l.take("k", now)
	_, _, allowed := l.take("k", now)
	require.False(t, allowed)

	// One token refills every 30s at 2 per minute.
	_, _, allowed = l.take("k", now.Add(30*time.Second))
	assert.True(t, allowed)

	_, _, allowed = l.take("k", now.Add(31*time.Second))
	assert.False(t, allowed, "only one token had refilled")
}

func TestLimiter_WaitMatchesRefillRate(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.take("k", now)
	_, wait, allowed := l.take("k", now)
	require.False(t, allowed)
	assert.InDelta(t, time.Minute.Seconds(), wait.Seconds(), 0.1)
}

func TestLimiter_SweepDropsIdleBuckets(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.take("idle", now)
	l.take("busy", now)
	l.take("busy", now.Add(59*time.Second))

	l.sweep(now.Add(time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "idle")
	assert.Contains(t, l.buckets, "busy")
}

func TestRateLimit_OverLimitResponse(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, limited("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, limited("10.0.0.1:9999"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, limited("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, limited("10.0.0.2:1234"))
	assert.Equal(t, http.StatusOK, w.Code)

	// The port is not part of the key.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, limited("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_Headers(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 10, Window: time.Minute})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, limited("192.168.1.1:4444"))

	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	})(okHandler())

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", key)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("key-a"))
	assert.Equal(t, http.StatusTooManyRequests, send("key-a"))
	assert.Equal(t, http.StatusOK, send("key-b"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:4444"
	assert.Equal(t, "192.168.1.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	// X-Forwarded-For wins; only the first hop counts.
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, "203.0.113.50", clientIP(req))
}
