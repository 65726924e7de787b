// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "time"

const (
	// Default cache TTL in seconds. Master state changes quickly.
	defaultCacheTTLSeconds = 10
	// Default HTTP cache max age in seconds.
	defaultHTTPCacheMaxAgeSeconds = 30
	// Default HTTP cache stale while revalidate in seconds.
	defaultHTTPCacheStaleWhileRevalidateSeconds = 60

	// Default master base timeout in milliseconds.
	defaultMasterBaseTimeoutMs = 1000
	// Default master max backoff time in milliseconds.
	defaultMasterMaxBackoffTimeMs = 32000
	// Default per request timeout in seconds.
	defaultMasterRequestTimeoutSeconds = 10
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Basic.Host = "localhost"
	cfg.Basic.Port = "8080"

	cfg.Master.Endpoints = []string{"http://localhost:8101"}
	cfg.Master.LoadBalancing = RoundRobin
	cfg.Master.MaxRetries = 3
	cfg.Master.BaseTimeout = defaultMasterBaseTimeoutMs * time.Millisecond
	cfg.Master.MaxBackoffTime = defaultMasterMaxBackoffTimeMs * time.Millisecond
	cfg.Master.RequestTimeout = defaultMasterRequestTimeoutSeconds * time.Second

	cfg.Cache.Enabled = true
	cfg.Cache.Size = 256
	cfg.Cache.TTL = defaultCacheTTLSeconds * time.Second
	cfg.Cache.Compress = true

	cfg.HTTPCache.MaxAge = defaultHTTPCacheMaxAgeSeconds * time.Second
	cfg.HTTPCache.StaleWhileRevalidate = defaultHTTPCacheStaleWhileRevalidateSeconds * time.Second

	cfg.Store.Path = "./data/console.db"

	cfg.Security.CSRF = true

	cfg.Instance.Name = "Galaxy"

	cfg.Development.SaveResponses = false
	cfg.Development.ResponseSaveLocation = "/tmp/galaxy-console/responses"

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"

	cfg.Limiter.Enabled = false
	cfg.Limiter.Rate = 5
	cfg.Limiter.Burst = 60
	cfg.Limiter.IPv4Prefix = 24
	cfg.Limiter.IPv6Prefix = 48
}
