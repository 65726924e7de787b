// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/server/utils"
)

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		expected string
	}{
		{"Valid URL", "http://master:8101", false, "http://master:8101"},
		{"Valid URL with path", "https://gw.example.com/galaxy", false, "https://gw.example.com/galaxy"},
		{"Missing scheme", "master:8101/x", true, ""},
		{"Missing host", "http://", true, ""},
		{"Trailing slash", "http://master:8101/", false, "http://master:8101"},
		{"Empty URL", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := utils.ParseURL(tt.urlStr, "master")
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestWantsJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"*/*", false},
		{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", false},
		{"application/json", true},
		{"application/json, text/plain, */*", true},
		{"text/plain, application/json", true},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/service/", nil)
			r.Header.Set("Accept", tt.accept)

			assert.Equal(t, tt.want, utils.WantsJSON(r))
		})
	}
}

func TestLocalRedirectTarget(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/service/web/", utils.LocalRedirectTarget("/service/web/", "/"))
	assert.Equal(t, "/", utils.LocalRedirectTarget("https://evil.example/", "/"))
	assert.Equal(t, "/", utils.LocalRedirectTarget("//evil.example/", "/"))
	assert.Equal(t, "/", utils.LocalRedirectTarget(`/\evil.example`, "/"))
	assert.Equal(t, "/conf/", utils.LocalRedirectTarget("", "/conf/"))
}

func TestFormAndQueryHelpers(t *testing.T) {
	t.Parallel()

	form := url.Values{"replica": {"4"}}
	r := httptest.NewRequest(http.MethodPost, "/service/web/update?next=/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	assert.Equal(t, "4", utils.GetFormValue(r, "replica"))
	assert.Equal(t, "1", utils.GetFormValue(r, "deploy_step", "1"))
	assert.Equal(t, "/", utils.GetQueryParam(r, "next"))
	assert.Equal(t, "x", utils.GetQueryParam(r, "missing", "x"))
}

func TestGetOriginFromRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "http://console.local/", nil)
	assert.Equal(t, "http://console.local", utils.GetOriginFromRequest(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://console.local", utils.GetOriginFromRequest(r))
}
