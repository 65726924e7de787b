// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/authenticated"
	"codeberg.org/galaxy/console/server/middleware/limiter"
)

// sameClient is the fingerprint of every request built by newTestRequest.
func sameClient() string {
	return limiter.ClientFingerprint(httptest.NewRequest(http.MethodPost, "/", nil))
}

// setupCSRFTest turns the check on with a fresh key. It mutates package
// globals, so tests using it must not run in parallel.
func setupCSRFTest(t *testing.T) string {
	t.Helper()

	oldSigner := config.Signer
	oldCSRF := config.Global.Security.CSRF

	config.Signer = authenticated.NewEphemeralSigner()
	config.Global.Security.CSRF = true

	t.Cleanup(func() {
		config.Signer = oldSigner
		config.Global.Security.CSRF = oldCSRF
	})

	token, err := config.Signer.Sign(time.Now(), sameClient())
	require.NoError(t, err)

	return token
}

func serveCSRF(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	called := false
	handler := Wrap(CheckCSRF, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true

		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec, called
}

func TestCheckCSRFFormField(t *testing.T) {
	token := setupCSRFTest(t)

	form := url.Values{"csrf_token": {token}, "replica": {"3"}}
	req := newTestRequest(t, http.MethodPost, "/service/web/update", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, called := serveCSRF(t, req)
	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "3", req.PostFormValue("replica"), "the form stays readable")
}

func TestCheckCSRFHeader(t *testing.T) {
	token := setupCSRFTest(t)

	req := newTestRequest(t, http.MethodPost, "/service/submit", strings.NewReader(`{"name":"web"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CSRFHeader, token)

	_, called := serveCSRF(t, req)
	assert.True(t, called)
}

func TestCheckCSRFMultipart(t *testing.T) {
	token := setupCSRFTest(t)

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("csrf_token", token))
	require.NoError(t, mw.WriteField("document", "name: web\n"))
	require.NoError(t, mw.Close())

	req := newTestRequest(t, http.MethodPost, "/conf/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, called := serveCSRF(t, req)
	assert.True(t, called)
	assert.Equal(t, "name: web\n", req.PostFormValue("document"))
}

func TestCheckCSRFRejects(t *testing.T) {
	setupCSRFTest(t)

	other := authenticated.NewEphemeralSigner()
	foreign, err := other.Sign(time.Now(), sameClient())
	require.NoError(t, err)

	expired, err := config.Signer.Sign(time.Now().Add(-3*authenticated.TokenLifetime), sameClient())
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing": "",
		"garbage": "v4.public.garbage",
		"foreign": foreign,
		"expired": expired,
	} {
		req := newTestRequest(t, http.MethodPost, "/service/web/kill", nil)
		if token != "" {
			req.Header.Set(CSRFHeader, token)
		}

		rec, called := serveCSRF(t, req)
		assert.False(t, called, name)
		assert.Equal(t, http.StatusForbidden, rec.Code, name)
	}
}

func TestCheckCSRFRejectsTokensOfOtherClients(t *testing.T) {
	token := setupCSRFTest(t)

	tests := []struct {
		name       string
		remoteAddr string
		userAgent  string
	}{
		{"other network", "203.0.113.9:4000", ""},
		{"other user agent", "192.0.2.1:1234", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"csrf_token": {token}, "conf_name": {"web"}}
			req := newTestRequest(t, http.MethodPost, "/conf/create", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", tt.userAgent)

			rec, called := serveCSRF(t, req)
			assert.False(t, called)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestCheckCSRFSafeMethodsAndDisabled(t *testing.T) {
	setupCSRFTest(t)

	_, called := serveCSRF(t, newTestRequest(t, http.MethodGet, "/service/", nil))
	assert.True(t, called, "GET needs no token")

	config.Global.Security.CSRF = false

	_, called = serveCSRF(t, newTestRequest(t, http.MethodPost, "/service/web/kill", nil))
	assert.True(t, called, "check is off")
}
