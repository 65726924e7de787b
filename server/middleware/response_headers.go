// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
	"sync/atomic"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/utils"
)

var (
	// baseHeaders are set on every response.
	//
	// Galaxy-Console-Version and Galaxy-Console-Revision are added in SetResponseHeaders.
	baseHeaders = http.Header{
		"Referrer-Policy":         {"same-origin"},
		"X-Frame-Options":         {"DENY"},
		"X-Content-Type-Options":  {"nosniff"},
		"Permissions-Policy":      {strings.Join(permissionsPolicy, ", ")},
		"Content-Security-Policy": {strings.Join(csp, "; ") + ";"},
	}

	// The console ships no scripts and only talks to itself.
	csp = []string{
		"base-uri 'self'",
		"default-src 'self'",
		"script-src 'none'",
		"style-src 'self'",
		"img-src 'self' data:",
		"connect-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}

	permissionsPolicy = []string{
		"camera=()",
		"display-capture=()",
		"geolocation=()",
		"microphone=()",
		"payment=()",
		"usb=()",
	}
)

// firstDevResponse is cleared after the first response in development.
var firstDevResponse atomic.Bool

func init() {
	firstDevResponse.Store(true)
}

// SetResponseHeaders adds the security and caching headers shared by every response.
//
// The action token of the request is echoed in X-CSRF-Token so that scripts
// can pick it up from any GET and send it back on their POSTs.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	if config.Global.Development.InDevelopment && firstDevResponse.CompareAndSwap(true, false) {
		headers.Set("Clear-Site-Data", `"cache"`)
	}

	if utils.IsConnectionSecure(r) {
		headers.Set("Strict-Transport-Security", "max-age=31536000")
	}

	headers.Set("Cache-Control", cacheControl(r.URL.Path))
	headers.Set("Galaxy-Console-Version", config.BuildVersion)
	headers.Set("Galaxy-Console-Revision", config.Global.Build.Revision())

	if token := request_context.FromRequest(r).CommonData.CSRFToken; token != "" {
		headers.Set(CSRFHeader, token)
	}

	next.ServeHTTP(w, r)
}

// cacheControl picks the Cache-Control policy for a path.
// Cluster pages change with every master poll and are never stored.
// Images and text files follow the configured httpCache policy.
func cacheControl(path string) string {
	switch {
	case strings.HasPrefix(path, "/css/"):
		// a week, busted by ?v=FileServerCacheID
		return "max-age=604800"
	case strings.HasPrefix(path, "/img/"), strings.HasSuffix(path, ".txt"):
		return fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
			int(config.Global.HTTPCache.MaxAge.Seconds()),
			int(config.Global.HTTPCache.StaleWhileRevalidate.Seconds()))
	default:
		return "no-store"
	}
}
