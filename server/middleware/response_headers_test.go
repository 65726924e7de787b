package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"codeberg.org/galaxy/console/config"
)

func TestCacheControl(t *testing.T) {
	old := config.Global.HTTPCache
	t.Cleanup(func() { config.Global.HTTPCache = old })

	config.Global.HTTPCache.MaxAge = 30 * time.Second
	config.Global.HTTPCache.StaleWhileRevalidate = time.Minute

	tests := []struct {
		path     string
		expected string
	}{
		{"/", "no-store"},
		{"/service/web/", "no-store"},
		{"/css/console.css", "max-age=604800"},
		{"/img/logo.svg", "public, max-age=30, stale-while-revalidate=60"},
		{"/robots.txt", "public, max-age=30, stale-while-revalidate=60"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, cacheControl(tt.path))
		})
	}
}

func TestSetResponseHeaders(t *testing.T) {
	t.Parallel()

	handler := Wrap(SetResponseHeaders, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := newTestRequest(t, http.MethodGet, "/conf/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	headers := rec.Header()
	assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	assert.Contains(t, headers.Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Equal(t, "no-store", headers.Get("Cache-Control"))
	assert.Equal(t, testToken, headers.Get(CSRFHeader))
	assert.NotEmpty(t, headers.Get("Galaxy-Console-Version"))
	assert.Empty(t, headers.Get("Strict-Transport-Security"), "plain HTTP")
}

func TestSetResponseHeadersBehindTLSProxy(t *testing.T) {
	t.Parallel()

	handler := Wrap(SetResponseHeaders, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{"local proxy", "10.0.0.2:4000", "max-age=31536000"},
		{"public client", "203.0.113.9:4000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := newTestRequest(t, http.MethodGet, "/conf/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("X-Forwarded-Proto", "https")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Header().Get("Strict-Transport-Security"))
		})
	}
}
