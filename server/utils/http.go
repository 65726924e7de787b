// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"net"
	"net/http"
	"time"
)

const (
	// maxIdleConnsPerHost bounds idle keep-alive connections to each master.
	maxIdleConnsPerHost = 16

	dialTimeout = 3 * time.Second

	// bufferSize defines the read and write buffer size in bytes (32KB).
	bufferSize = 32 * 1024
)

// HTTPClient is the client used for master gateway calls.
//
// Per-call deadlines come from the request context.
var HTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		WriteBufferSize:     bufferSize,
		ReadBufferSize:      bufferSize,
	},
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// IsConnectionSecure returns whether a connection is secure.
//
// X-Forwarded-Proto is only trusted from private and loopback peers, which
// covers a console behind a reverse proxy on the same network.
func IsConnectionSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}

	parsedIP := net.ParseIP(host)
	if parsedIP == nil {
		return false
	}

	return (parsedIP.IsPrivate() || parsedIP.IsLoopback()) && r.Header.Get("X-Forwarded-Proto") == "https"
}

// WantsJSON reports whether the client prefers a JSON answer over HTML.
//
// The first media type listed in Accept decides. */* and an empty header mean HTML.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}

	for _, part := range splitAccept(accept) {
		switch part {
		case "application/json", "application/*+json":
			return true
		case "text/html", "application/xhtml+xml", "*/*":
			return false
		}
	}

	return false
}
