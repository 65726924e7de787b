// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/requests/lrucache"
)

var cache *lrucache.Cache

// cachePolicy is the caching decision for one GET.
type cachePolicy struct {
	// store the response if it comes back 200
	store bool

	// fresh cached body, if any
	cached []byte
}

// Setup initializes the master response cache from config.Global.
func Setup() error {
	if !config.Global.Cache.Enabled {
		cache = nil

		log.Info().
			Msg("Cache is disabled, skipping cache initialization")

		return nil
	}

	c, err := lrucache.New(config.Global.Cache.Size, config.Global.Cache.TTL, config.Global.Cache.Compress)
	if err != nil {
		return err
	}

	cache = c

	log.Info().
		Int("size", config.Global.Cache.Size).
		Dur("ttl", config.Global.Cache.TTL).
		Bool("compress", config.Global.Cache.Compress).
		Msg("Initialized master response cache")

	return nil
}

// determineCachePolicy honours the browser's Cache-Control: "no-cache"
// drops the cached copy and skips the cache, "no-store" only skips writing.
func determineCachePolicy(path string, headers http.Header) cachePolicy {
	if cache == nil {
		return cachePolicy{}
	}

	var cacheControl string
	if values := headers.Values("Cache-Control"); len(values) > 0 {
		cacheControl = strings.ToLower(strings.Join(values, ","))
	}

	if strings.Contains(cacheControl, "no-cache") {
		cache.Remove(path)

		return cachePolicy{}
	}

	if body, ok := cache.Get(path); ok {
		return cachePolicy{store: true, cached: body}
	}

	return cachePolicy{store: !strings.Contains(cacheControl, "no-store")}
}

func storeResponse(path string, body []byte) {
	if cache == nil {
		return
	}

	cache.Put(path, path, body)
}

// InvalidatePaths drops cached responses whose request path starts with
// any of prefixes and returns the dropped paths. Safe to call with the
// cache disabled.
func InvalidatePaths(prefixes ...string) []string {
	if cache == nil || len(prefixes) == 0 {
		return nil
	}

	removed := cache.RemovePathPrefixes(prefixes...)

	log.Debug().
		Int("count", len(removed)).
		Int("remaining", cache.Len()).
		Strs("paths", removed).
		Msg("Invalidated cached master responses")

	return removed
}
