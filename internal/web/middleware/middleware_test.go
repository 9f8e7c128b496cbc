package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"no trusted proxies ignores header", nil, "1.2.3.4:5000", map[string]string{"X-Real-IP": "9.9.9.9"}, "1.2.3.4"},
		{"trusted cidr uses x-real-ip", []string{"10.0.0.0/8"}, "10.1.1.1:80", map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
		{"trusted single ip uses first forwarded", []string{"10.1.1.1"}, "10.1.1.1:80", map[string]string{"X-Forwarded-For": "8.8.8.8, 10.1.1.1"}, "8.8.8.8"},
		{"untrusted source", []string{"10.0.0.0/8"}, "11.0.0.1:80", map[string]string{"X-Real-IP": "9.9.9.9"}, "11.0.0.1"},
		{"invalid header keeps remote", []string{"10.0.0.0/8"}, "10.1.1.1:80", map[string]string{"X-Real-IP": "nope"}, "10.1.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	rejected := 0
	h := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		rejected++
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do("1.1.1.1:1").Code)
	assert.Equal(t, http.StatusNoContent, do("1.1.1.1:2").Code)

	rec := do("1.1.1.1:3")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, rejected)

	assert.Equal(t, http.StatusNoContent, do("2.2.2.2:1").Code, "buckets are per client")
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Nanosecond})
	rl.get("1.1.1.1")
	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, rl.Prune())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("gone"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "bytes=4")
	assert.Contains(t, out, "path=/sessions/x")
}

func TestAPIKeyAuth(t *testing.T) {
	var gotErr error
	reject := func(w http.ResponseWriter, r *http.Request, err error, status int) {
		gotErr = err
		w.WriteHeader(status)
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		keys    []string
		header  string
		want    int
		wantErr error
	}{
		{"no keys configured", nil, "", http.StatusNoContent, nil},
		{"missing key", []string{"0123456789abcdef"}, "", http.StatusUnauthorized, ErrMissingAPIKey},
		{"wrong key", []string{"0123456789abcdef"}, "fedcba9876543210", http.StatusForbidden, ErrInvalidAPIKey},
		{"second key matches", []string{"aaaaaaaaaaaaaaaa", "0123456789abcdef"}, "0123456789abcdef", http.StatusNoContent, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotErr = nil
			req := httptest.NewRequest(http.MethodPost, "/api/inspect", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.keys, reject)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantErr, gotErr)
		})
	}
}
