// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// IPv4 and IPv6 address lengths as measured in bits.
const (
	ipv4BitLength = 32
	ipv6BitLength = 128
)

// getClientIP returns the client address of r.
//
// X-Real-IP and X-Forwarded-For are honoured only when the peer is on a
// private or loopback network, i.e. a reverse proxy in front of the console.
func getClientIP(r *http.Request) string {
	// Extract IP from RemoteAddr by removing the port component.
	remoteIP := r.RemoteAddr
	if ip, _, err := net.SplitHostPort(remoteIP); err == nil {
		remoteIP = ip
	}

	// Only trust proxy headers if request comes from a trusted network.
	fromTrustedSource := false
	if ip := net.ParseIP(remoteIP); ip != nil {
		fromTrustedSource = ip.IsPrivate() || ip.IsLoopback()
	}

	if fromTrustedSource {
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}

		// the last hop was appended by our proxy
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			parts := strings.Split(xff, ",")

			return strings.TrimSpace(parts[len(parts)-1])
		}
	}

	if remoteIP != "" {
		return remoteIP
	}

	log.Error().
		Msg("Could not determine client IP")

	return ""
}

// ipMatchesList reports whether rawIP equals an entry of list or lies in one of its CIDRs.
func ipMatchesList(rawIP net.IP, list []string) bool {
	for _, entry := range list {
		entry = strings.TrimSpace(entry)

		if ip := net.ParseIP(entry); ip != nil {
			if ip.Equal(rawIP) {
				return true
			}

			continue
		}

		if _, subnet, err := net.ParseCIDR(entry); err == nil && subnet.Contains(rawIP) {
			return true
		}
	}

	return false
}

// getNetwork masks rawIP down to the network it is rate limited with.
func getNetwork(rawIP net.IP, ipv4Prefix, ipv6Prefix int) *net.IPNet {
	var mask net.IPMask
	if ip4 := rawIP.To4(); ip4 != nil {
		rawIP = ip4
		mask = net.CIDRMask(ipv4Prefix, ipv4BitLength)
	} else {
		mask = net.CIDRMask(ipv6Prefix, ipv6BitLength)
	}

	return &net.IPNet{
		IP:   rawIP.Mask(mask),
		Mask: mask,
	}
}
