// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"strings"
)

// AppendSlash redirects GET and HEAD requests for a path that resolves nowhere
// to the same path with a trailing slash, when that one resolves.
//
// resolves reports whether the URL table has a view for a path.
// The query string is kept and the redirect is a 308.
func AppendSlash(resolves func(path string) bool) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		if !needsSlash(r, resolves) {
			next.ServeHTTP(w, r)

			return
		}

		target := *r.URL
		target.Path += "/"
		target.RawPath = ""

		// Only the path changes, so the target stays on this host.
		http.Redirect(w, r, target.RequestURI(), http.StatusPermanentRedirect)
	}
}

func needsSlash(r *http.Request, resolves func(string) bool) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	path := r.URL.Path
	if path == "" || strings.HasSuffix(path, "/") {
		return false
	}

	return !resolves(path) && resolves(path+"/")
}
