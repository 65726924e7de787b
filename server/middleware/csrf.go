// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/authenticated"
	"codeberg.org/galaxy/console/server/middleware/limiter"
	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/routes"
)

const (
	CSRFFormField = "csrf_token"
	CSRFHeader    = "X-CSRF-Token"
)

// CheckCSRF refuses state changing requests that carry no valid action token.
//
// The token is read from the X-CSRF-Token header, then from the csrf_token
// form field, and must have been issued to the same client network and user
// agent. Safe methods pass untouched. Nothing is checked when
// security.csrf is off.
func CheckCSRF(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if !config.Global.Security.CSRF || isSafeMethod(r.Method) {
		next.ServeHTTP(w, r)

		return
	}

	token := r.Header.Get(CSRFHeader)
	if token == "" {
		// Routes read the form cached on r afterwards.
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

		if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			log.Debug().Err(err).Msg("Could not parse form for CSRF token")
		}

		token = r.FormValue(CSRFFormField)
	}

	if err := config.Signer.Verify(token, limiter.ClientFingerprint(r)); err != nil {
		log.Warn().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Rejected request without a valid action token")

		ctx := request_context.FromRequest(r)
		ctx.StatusCode = http.StatusForbidden
		ctx.RequestError = authenticated.ErrInvalidToken

		routes.ErrorPage(w, r)

		return
	}

	next.ServeHTTP(w, r)
}

// maxFormBytes bounds form bodies read while looking for the token.
const maxFormBytes = 1 << 20

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
