// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"maps"
	"net/http"
	"net/http/httptest"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/audit"
	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/routes"
)

// FallibleHandler is a view that reports failure by returning an error.
type FallibleHandler = func(w http.ResponseWriter, r *http.Request) error

// CatchError wraps a FallibleHandler, providing centralized error handling,
// response buffering, and request logging.
//
// The handler writes into a buffer. When it returns an error, the buffer is
// discarded and the error page is rendered with the status routes.StatusOf
// maps the error to: 404 for unknown confs and master 404s, 400 and 409 for
// rejected input, 502 when the master failed, 500 otherwise. When it returns
// nil, the buffered response is written to the client as is.
//
// Every request is logged through an audit span unless the path is excluded
// by config.ShouldSkipServerLogging.
func CatchError(handler FallibleHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		span := audit.Span{
			Destination: audit.ToUser,
			RequestID:   ctx.RequestID,
			Method:      r.Method,
			URL:         r.URL.String(),
		}

		_ = span.Begin(r.Context())
		defer span.End()

		recorder := httptest.NewRecorder()

		ctx.RequestError = handler(recorder, r)

		if ctx.RequestError != nil {
			ctx.StatusCode = routes.StatusOf(ctx.RequestError)

			if ctx.StatusCode == http.StatusMethodNotAllowed {
				w.Header().Set("Allow", recorder.Header().Get("Allow"))
			}

			routes.ErrorPage(w, r)
		} else {
			if recorder.Code == 0 {
				recorder.Code = http.StatusOK
			}

			ctx.StatusCode = recorder.Code
			maps.Copy(w.Header(), recorder.Header())
			w.WriteHeader(recorder.Code)

			if _, err := recorder.Body.WriteTo(w); err != nil {
				log.Err(err).Msg("Failed to write response body")
			}
		}

		span.End()
		span.StatusCode = ctx.StatusCode
		span.Error = ctx.RequestError

		if !config.Global.ShouldSkipServerLogging(r.URL.Path) {
			span.Log()
		}
	}
}
