// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/core/confstore"
	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/core/requests"
	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/routes"
)

const testToken = "test-token"

// newTestRequest creates a request that already went through WithRequestContext.
func newTestRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	ctx := request_context.WithRequestContext(req.Context(), req, func() (string, error) { return testToken, nil })

	return req.WithContext(ctx)
}

func TestCatchErrorSuccess(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"web"}`))

		return nil
	})

	req := newTestRequest(t, http.MethodPost, "/service/submit", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"web"}`, rec.Body.String())

	ctx := request_context.FromRequest(req)
	assert.NoError(t, ctx.RequestError)
	assert.Equal(t, http.StatusCreated, ctx.StatusCode)
}

func TestCatchErrorDefaultsToOK(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		_, _ = w.Write([]byte("ok"))

		return nil
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newTestRequest(t, http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCatchErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"unexpected error", errors.New("boom"), http.StatusInternalServerError},
		{"unknown conf", fmt.Errorf("get conf: %w", confstore.ErrNotFound), http.StatusNotFound},
		{"duplicate conf", fmt.Errorf("create conf: %w", confstore.ErrDuplicateName), http.StatusConflict},
		{"invalid desc", &galaxy.ValidationError{Problems: []galaxy.FieldError{{Field: "name", Reason: "required"}}}, http.StatusBadRequest},
		{"master 404", &requests.APIError{StatusCode: http.StatusNotFound, Err: errors.New("missing")}, http.StatusNotFound},
		{"master 500", &requests.APIError{StatusCode: http.StatusInternalServerError, Err: errors.New("crash")}, http.StatusBadGateway},
		{"master down", fmt.Errorf("%w after 3 attempts", requests.ErrMasterUnavailable), http.StatusBadGateway},
		{"unknown page", routes.ErrPageNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := CatchError(func(w http.ResponseWriter, _ *http.Request) error {
				// discarded along with the buffer
				_, _ = w.Write([]byte("partial"))

				return tt.err
			})

			req := newTestRequest(t, http.MethodGet, "/conf/", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
			assert.NotContains(t, rec.Body.String(), "partial")
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

			ctx := request_context.FromRequest(req)
			assert.Equal(t, tt.err, ctx.RequestError)
			assert.Equal(t, tt.expected, ctx.StatusCode)
		})
	}
}

func TestCatchErrorJSON(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(_ http.ResponseWriter, _ *http.Request) error {
		return &galaxy.ValidationError{Problems: []galaxy.FieldError{{Field: "replica", Reason: "must be at most 10000"}}}
	})

	req := newTestRequest(t, http.MethodPost, "/service/web/update", nil)
	req.Header.Set("Accept", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body struct {
		Status   int                 `json:"status"`
		Problems []galaxy.FieldError `json:"problems"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	require.Len(t, body.Problems, 1)
	assert.Equal(t, "replica", body.Problems[0].Field)
}

func TestCatchErrorMethodNotAllowed(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Allow", "POST")

		return routes.ErrMethodNotAllowed
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newTestRequest(t, http.MethodGet, "/service/web/kill", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
}
