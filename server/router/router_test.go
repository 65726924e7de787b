// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo answers with its name and the id path value.
func echo(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(name + ":" + r.PathValue("id")))
	})
}

func newTestRouter() *Router {
	router := NewRouter(Table{
		Handle(`^$`, echo("index"), get),
		Include(`^conf/`, Table{
			Handle(`^$`, echo("conf-list"), get),
			Handle(`^`+confID+`/$`, echo("conf-detail"), get),
		}),
		Include(`^service/`, Table{
			Handle(`^$`, echo("service-list"), get),
			Handle(`^`+pathID+`/kill$`, echo("service-kill"), post),
		}),
	})
	router.RegisterMiddleware()

	return router
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	tests := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodGet, "/", "index:"},
		{http.MethodGet, "/conf/", "conf-list:"},
		{http.MethodGet, "/conf/0b6c7e2a-3f7d-4b8e-9a51-2c7d9e4f1a00/", "conf-detail:0b6c7e2a-3f7d-4b8e-9a51-2c7d9e4f1a00"},
		{http.MethodPost, "/service/web-1/kill", "service-kill:web-1"},
		{http.MethodHead, "/service/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, http.StatusOK, rec.Code)

			if tt.method != http.MethodHead {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRouterNotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	for _, target := range []string{"/nope", "/conf/not-a-uuid/", "/service/web/", "/service/web/kill/"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service/web/kill", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conf/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestRouterAppendSlash(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conf", nil))

	require.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/conf/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service?state=running", nil))

	require.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/service/?state=running", rec.Header().Get("Location"))
}

func TestRouterResponseHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
