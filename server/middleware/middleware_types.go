// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import "net/http"

// Middleware sees every request before the view and decides whether to call next.
type Middleware func(w http.ResponseWriter, r *http.Request, next http.Handler)

// Wrap turns m into a handler that continues with next.
func Wrap(m Middleware, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m(w, r, next)
	}
}
