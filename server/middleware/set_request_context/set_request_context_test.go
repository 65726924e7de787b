// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/authenticated"
	"codeberg.org/galaxy/console/server/middleware"
	"codeberg.org/galaxy/console/server/middleware/limiter"
	"codeberg.org/galaxy/console/server/request_context"
)

func capture(t *testing.T, req *http.Request) *request_context.RequestContext {
	t.Helper()

	var rc *request_context.RequestContext

	handler := middleware.Wrap(WithRequestContext, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc = request_context.FromRequest(r)

		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, rc)

	return rc
}

func TestWithRequestContextAttachesContext(t *testing.T) {
	oldSigner := config.Signer
	config.Signer = authenticated.NewEphemeralSigner()

	t.Cleanup(func() { config.Signer = oldSigner })

	req := httptest.NewRequest(http.MethodGet, "/service/?state=running", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")

	rc := capture(t, req)

	assert.NotEmpty(t, rc.RequestID)
	assert.Equal(t, http.StatusOK, rc.StatusCode)
	assert.NoError(t, rc.RequestError)
	assert.Equal(t, "/service/", rc.CommonData.CurrentPath)
	assert.Equal(t, "running", rc.CommonData.Queries["state"])
	assert.Equal(t, "de", rc.Lang.String())

	require.NotEmpty(t, rc.CommonData.CSRFToken)
	assert.NoError(t, config.Signer.Verify(rc.CommonData.CSRFToken, limiter.ClientFingerprint(req)))

	req.Header.Set("User-Agent", "another browser")
	assert.Error(t, config.Signer.Verify(rc.CommonData.CSRFToken, limiter.ClientFingerprint(req)),
		"the token belongs to the client it was rendered for")
}

func TestWithRequestContextWithoutKey(t *testing.T) {
	oldSigner := config.Signer
	config.Signer = authenticated.Signer{}

	t.Cleanup(func() { config.Signer = oldSigner })

	rc := capture(t, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rc.CommonData.CSRFToken)
	assert.NotEmpty(t, rc.RequestID)
}

func TestWithRequestContextUniqueRequestIDs(t *testing.T) {
	seen := make(map[string]bool)

	for range 3 {
		rc := capture(t, httptest.NewRequest(http.MethodGet, "/conf/", nil))

		assert.False(t, seen[rc.RequestID], "duplicate request ID %s", rc.RequestID)

		seen[rc.RequestID] = true
	}
}
