// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/routes"
)

// Rate limiting header names.
//
// ref: https://www.ietf.org/archive/id/draft-polli-ratelimit-headers-02.html
const (
	HeaderRateLimitLimit     string = "RateLimit-Limit"
	HeaderRateLimitRemaining string = "RateLimit-Remaining"
	HeaderRateLimitReset     string = "RateLimit-Reset"
)

var (
	errBlocked     = errors.New("your address is on the block list")
	errRateLimited = errors.New("too many requests, slow down")
	errUnknownIP   = errors.New("could not determine client address")
)

// excludedPaths won't have traffic filtered by the limiter middleware.
var excludedPaths = []string{
	"/css/",
	"/img/",
	"/robots.txt",
	"/healthz",
}

func isExcludedPath(path string) bool {
	for _, prefix := range excludedPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// Evaluate is the entrypoint to the limiter middleware.
//
// Pass-listed addresses skip the limiter and block-listed ones get a 403.
// Everyone else draws from the bucket of their network and gets a 429 once
// it is empty.
func Evaluate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if isExcludedPath(r.URL.Path) {
		next.ServeHTTP(w, r)

		return
	}

	ip := net.ParseIP(getClientIP(r))
	if ip == nil {
		reject(w, r, http.StatusBadRequest, errUnknownIP)

		return
	}

	cfg := config.Global.Limiter

	if ipMatchesList(ip, cfg.PassIPs) {
		next.ServeHTTP(w, r)

		return
	}

	network := getNetwork(ip, cfg.IPv4Prefix, cfg.IPv6Prefix).String()

	if ipMatchesList(ip, cfg.BlockIPs) {
		log.Warn().
			Str("ip", ip.String()).
			Str("network", network).
			Msg("Request blocked, IP in block-list")

		reject(w, r, http.StatusForbidden, errBlocked)

		return
	}

	lw := getOrCreateLimiter(network)
	allowed := lw.allow()

	addRateLimitHeaders(w, lw)

	if !allowed {
		log.Warn().
			Str("ip", ip.String()).
			Str("network", network).
			Msg("Request blocked, exceeded rate limit")

		reject(w, r, http.StatusTooManyRequests, errRateLimited)

		return
	}

	next.ServeHTTP(w, r)
}

func reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	ctx := request_context.FromRequest(r)
	ctx.StatusCode = status
	ctx.RequestError = err

	routes.ErrorPage(w, r)
}

// addRateLimitHeaders adds rate limiting information to the response headers.
func addRateLimitHeaders(w http.ResponseWriter, lw *limiterWrapper) {
	burst, remaining, reset := lw.state()
	resetStr := strconv.FormatInt(int64(math.Ceil(reset.Seconds())), 10)

	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(burst))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
	w.Header().Set(HeaderRateLimitReset, resetStr)

	if remaining <= 0 {
		w.Header().Set("Retry-After", resetStr)
	}
}
