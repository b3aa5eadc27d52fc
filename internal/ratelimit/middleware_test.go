package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"infragen/internal/auth"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AllowsUnderLimit(t *testing.T) {
	anon := NewMemoryLimiter(60, 10, 5*time.Minute)
	authed := NewMemoryLimiter(120, 20, 5*time.Minute)
	defer anon.Close()
	defer authed.Close()

	handler := Middleware(anon, authed)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestMiddleware_DeniesOverBurst(t *testing.T) {
	anon := NewMemoryLimiter(60, 2, 5*time.Minute)
	authed := NewMemoryLimiter(120, 20, 5*time.Minute)
	defer anon.Close()
	defer authed.Close()

	handler := Middleware(anon, authed)(okHandler())

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code

		if i == 2 {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestMiddleware_AuthenticatedUsesIdentityLimiter(t *testing.T) {
	// Anonymous limiter admits nothing; only the authenticated limiter can
	// let a request through.
	anon := NewMemoryLimiter(1, 1, 5*time.Minute)
	authed := NewMemoryLimiter(120, 20, 5*time.Minute)
	defer anon.Close()
	defer authed.Close()

	// Exhaust the anonymous bucket for this IP.
	anon.Allow("10.0.0.1:1234")
	anon.Allow("10.0.0.1:1234")

	handler := Middleware(anon, authed)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req = req.WithContext(auth.WithIdentity(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("X-RateLimit-Limit"))
}

func TestResolveKeyAndLimiter(t *testing.T) {
	anon := NewMemoryLimiter(60, 10, 5*time.Minute)
	authed := NewMemoryLimiter(120, 20, 5*time.Minute)
	defer anon.Close()
	defer authed.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	key, limiter := resolveKeyAndLimiter(req, anon, authed)
	assert.Equal(t, "10.0.0.1:1234", key)
	assert.Same(t, Limiter(anon), limiter)

	req = req.WithContext(auth.WithIdentity(req.Context(), "alice"))
	key, limiter = resolveKeyAndLimiter(req, anon, authed)
	assert.Equal(t, "auth:alice", key)
	assert.Same(t, Limiter(authed), limiter)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1:1234",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain uses first hop",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 198.51.100.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
