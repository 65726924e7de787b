// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
This file provides utilities for manipulating URL paths and query parameters.
*/
package template

import (
	"net/url"
	"strings"
)

// WithQuery returns urlStr with key set to value, keeping its other query
// parameters. An empty value removes key.
func WithQuery(urlStr, key, value string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		// If parsing fails, treat the entire string as a path
		u = &url.URL{Path: urlStr}
	}

	query := u.Query()
	if value == "" {
		query.Del(key)
	} else {
		query.Set(key, value)
	}

	u.RawQuery = query.Encode()

	return u.String()
}

// PathEscape escapes an identifier for use as one URL path segment.
func PathEscape(segment string) string {
	return url.PathEscape(strings.TrimSpace(segment))
}
