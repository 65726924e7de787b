// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ParseURL parses an absolute URL and drops a trailing slash from its path.
func ParseURL(urlStr, urlType string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s URL: %w", urlType, err)
	}

	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf(
			"%s URL is invalid: %s. Please specify a complete URL with scheme and host, e.g. http://galaxy-master:8101",
			urlType,
			urlStr)
	}

	parsedURL.Path = strings.TrimSuffix(parsedURL.Path, "/")

	return parsedURL, nil
}

// GetQueryParam retrieves the value of a query parameter by name.
//
// If the parameter is not present, it returns the provided default value or an empty string.
func GetQueryParam(r *http.Request, name string, defaultValue ...string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// GetFormValue reads a form field, falling back to defaultValue.
func GetFormValue(r *http.Request, name string, defaultValue ...string) string {
	if err := r.ParseForm(); err == nil {
		if v := r.PostFormValue(name); v != "" {
			return v
		}
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// GetOriginFromRequest returns "scheme://host" for the request, preferring X-Forwarded-Proto.
func GetOriginFromRequest(r *http.Request) string {
	scheme := "http"

	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

// LocalRedirectTarget returns target when it is a path on this console,
// otherwise fallback. Absolute and scheme-relative URLs are refused.
func LocalRedirectTarget(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host != "" || parsed.Scheme != "" {
		return fallback
	}

	return target
}

func splitAccept(accept string) []string {
	parts := strings.Split(accept, ",")
	types := make([]string, 0, len(parts))

	for _, part := range parts {
		mediaType, _, _ := strings.Cut(part, ";")
		if mediaType = strings.ToLower(strings.TrimSpace(mediaType)); mediaType != "" {
			types = append(types, mediaType)
		}
	}

	return types
}
