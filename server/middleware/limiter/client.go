// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net"
	"net/http"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/authenticated"
)

// ClientNetwork is the network r is rate limited with, or "" when the
// client address cannot be read.
func ClientNetwork(r *http.Request) string {
	ip := net.ParseIP(getClientIP(r))
	if ip == nil {
		return ""
	}

	return getNetwork(ip, config.Global.Limiter.IPv4Prefix, config.Global.Limiter.IPv6Prefix).String()
}

// ClientFingerprint identifies the client of r for action tokens. Clients
// sharing a network and a user agent share a fingerprint.
func ClientFingerprint(r *http.Request) string {
	return authenticated.ClientFingerprint(ClientNetwork(r), r.UserAgent())
}
