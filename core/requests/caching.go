// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/core/requests/lrucache"
)

var cache *lrucache.Cache

// cachedItem is a cached response. Expiry is handled by the cache itself.
type cachedItem struct {
	StatusCode  int
	ContentType string
	Body        []byte
	URL         string
}

// cachePolicy decides what Do does with the cache for one request.
type cachePolicy struct {
	// shouldUseCache reports whether an OK response may be stored.
	shouldUseCache bool

	// cachedItem is the fresh cached response, if any.
	cachedItem *cachedItem
}

// Setup initializes the API response cache from config.Global.
//
// Nothing is cached when caching is disabled.
func Setup() error {
	if !config.Global.Cache.Enabled {
		cache = nil

		log.Info().
			Msg("Cache is disabled, skipping cache initialization")

		return nil
	}

	c, err := lrucache.New(config.Global.Cache.Size, config.Global.Cache.TTL, config.Global.Cache.Compress)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	cache = c

	log.Info().
		Int("size", config.Global.Cache.Size).
		Dur("ttl", config.Global.Cache.TTL).
		Bool("compress", config.Global.Cache.Compress).
		Msg("Initialized API response cache")

	return nil
}

// generateCacheKey binds a cached response to the URL and the account that
// requested it, so that responses only visible to one account are never
// served to another.
func generateCacheKey(url, login string) string {
	hasher := fnv.New64a()

	_, _ = hasher.Write([]byte(url + "\x00" + login))

	return strconv.FormatUint(hasher.Sum64(), 16)
}

// determineCachePolicy looks up a cached response for url and honors the
// no-cache and no-store directives of the incoming request.
func determineCachePolicy(url, login string, headers http.Header) cachePolicy {
	if cache == nil {
		return cachePolicy{}
	}

	cacheControl := strings.ToLower(headers.Get("Cache-Control"))
	if strings.Contains(cacheControl, "no-cache") {
		return cachePolicy{}
	}

	key := generateCacheKey(url, login)

	if cached, ok := cache.Get(key); ok {
		var item cachedItem
		if err := gob.NewDecoder(bytes.NewReader(cached)).Decode(&item); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached item; removing")
			cache.Remove(key)
		} else {
			return cachePolicy{shouldUseCache: true, cachedItem: &item}
		}
	}

	return cachePolicy{
		shouldUseCache: !strings.Contains(cacheControl, "no-store"),
	}
}

// InvalidateURLs removes every cached response whose URL starts with one of
// urlPrefixes and returns the removed URLs.
func InvalidateURLs(urlPrefixes []string) []string {
	var invalidated []string

	if cache == nil || len(urlPrefixes) == 0 {
		return invalidated
	}

	for _, key := range cache.Keys() {
		cached, ok := cache.Peek(key)
		if !ok {
			continue
		}

		var item cachedItem
		if err := gob.NewDecoder(bytes.NewReader(cached)).Decode(&item); err != nil {
			continue
		}

		for _, prefix := range urlPrefixes {
			if strings.HasPrefix(item.URL, prefix) {
				cache.Remove(key)

				invalidated = append(invalidated, item.URL)

				break
			}
		}
	}

	log.Info().
		Int("count", len(invalidated)).
		Strs("urls", invalidated).
		Msg("Invalidated URLs")

	return invalidated
}
