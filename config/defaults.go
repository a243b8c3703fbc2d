// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "time"

const (
	defaultCacheTTL = 10 * time.Minute

	defaultHTTPCacheMaxAge               = 60 * time.Second
	defaultHTTPCacheStaleWhileRevalidate = 5 * time.Minute

	defaultRequestTimeout = 15 * time.Second

	defaultWikiLookupLimit = 100
	defaultMaxMarkupBytes  = 256 * 1024

	defaultLimiterIdleTimeout = 10 * time.Minute
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Basic.Host = "localhost"
	cfg.Basic.Port = "8383"

	cfg.Booru.BaseURL = "https://danbooru.donmai.us"
	cfg.Booru.Variant = "danbooru"

	cfg.Cache.Enabled = true
	cfg.Cache.Size = 500
	cfg.Cache.TTL = defaultCacheTTL
	cfg.Cache.Compress = true

	cfg.HTTPCache.MaxAge = defaultHTTPCacheMaxAge
	cfg.HTTPCache.StaleWhileRevalidate = defaultHTTPCacheStaleWhileRevalidate

	cfg.Request.AcceptLanguage = "en-US,en;q=0.5"
	cfg.Request.Timeout = defaultRequestTimeout

	cfg.Render.RawLineSeparator = `\n`
	cfg.Render.WikiLookupLimit = defaultWikiLookupLimit
	cfg.Render.Sanitize = true
	cfg.Render.MaxMarkupBytes = defaultMaxMarkupBytes

	cfg.Instance.RepoURL = "https://codeberg.org/dtextview/dtextview"

	cfg.Development.SaveResponses = false
	cfg.Development.ResponseSaveLocation = "/tmp/dtextview/responses"

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"

	cfg.Limiter.Enabled = false
	cfg.Limiter.IPv4Prefix = 24
	cfg.Limiter.IPv6Prefix = 48
	cfg.Limiter.RequestsPerMinute = 60
	cfg.Limiter.Burst = 20
	cfg.Limiter.IdleTimeout = defaultLimiterIdleTimeout
}
