// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"
	"time"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/server/middleware/limiter"
	"codeberg.org/galaxy/console/server/request_context"
)

// formTokenSigner issues the csrf_token embedded in the forms of a page,
// bound to the client of r.
func formTokenSigner(r *http.Request) func() (string, error) {
	return func() (string, error) {
		return config.Signer.Sign(time.Now(), limiter.ClientFingerprint(r))
	}
}

// WithRequestContext is a middleware that attaches a RequestContext to each HTTP request.
func WithRequestContext(w http.ResponseWriter, r *http.Request, next http.Handler) {
	next.ServeHTTP(w, r.WithContext(request_context.WithRequestContext(r.Context(), r, formTokenSigner(r))))
}
