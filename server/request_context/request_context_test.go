// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package request_context

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestMatchLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.English},
		{"de-DE,de;q=0.9,en;q=0.8", language.German},
		{"ja", language.Japanese},
		{"zh-CN", language.SimplifiedChinese},
		{"xx-invalid;;", language.English},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()

			got := MatchLocale(tt.header)
			base, _ := got.Base()
			wantBase, _ := tt.want.Base()

			assert.Equal(t, wantBase, base)
		})
	}
}

func TestWithRequestContext(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/service/?state=Running", nil)
	r.Header.Set("Accept-Language", "de")

	ctx := WithRequestContext(context.Background(), r, func() (string, error) { return "tok", nil })
	rc := FromContext(ctx)

	assert.NotEmpty(t, rc.RequestID)
	assert.Equal(t, http.StatusOK, rc.StatusCode)
	assert.Equal(t, "/service/", rc.CommonData.CurrentPath)
	assert.Equal(t, "Running", rc.CommonData.Queries["state"])
	assert.Equal(t, "tok", rc.CommonData.CSRFToken)
	assert.Equal(t, "1.234,5", rc.Printer.Sprintf("%.1f", 1234.5))
}

func TestWithRequestContextSignerFailure(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)

	ctx := WithRequestContext(context.Background(), r, func() (string, error) { return "", errors.New("no key") })

	assert.Empty(t, FromContext(ctx).CommonData.CSRFToken)
}

func TestFromContextWithoutValue(t *testing.T) {
	t.Parallel()

	rc := FromContext(context.Background())
	require.NotNil(t, rc)
	assert.Equal(t, http.StatusOK, rc.StatusCode)
	assert.Equal(t, "1,234", rc.Printer.Sprintf("%d", 1234))
}
