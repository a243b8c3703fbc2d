// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/server/routes"
)

// Rate limiting header names.
//
// ref: https://www.ietf.org/archive/id/draft-polli-ratelimit-headers-02.html
const (
	HeaderRateLimitLimit     string = "RateLimit-Limit"
	HeaderRateLimitRemaining string = "RateLimit-Remaining"
	HeaderRateLimitReset     string = "RateLimit-Reset"
)

// excludedPaths won't have traffic filtered by the limiter middleware.
var excludedPaths = []string{
	"/healthz",
	"/favicon.ico",
	"/robots.txt",
}

// Evaluate is the entrypoint to the limiter middleware.
func Evaluate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if isExcludedPath(r.URL.Path) {
		next.ServeHTTP(w, r)

		return
	}

	addr, ok := getClientIP(r)
	if !ok {
		routes.BlockPage(w, routes.BlockData{Reason: "Unknown client address"}, http.StatusBadRequest)

		return
	}

	cfg := config.Global.Limiter

	if ipMatchesList(addr, cfg.PassIPs) {
		next.ServeHTTP(w, r)

		return
	}

	network := getNetwork(addr, cfg.IPv4Prefix, cfg.IPv6Prefix).String()

	if ipMatchesList(addr, cfg.BlockIPs) {
		log.Warn().
			Str("ip", addr.String()).
			Str("network", network).
			Msg("Request blocked, IP in block-list")

		routes.BlockPage(w, routes.BlockData{Reason: "IP in block-list"}, http.StatusForbidden)

		return
	}

	limWrapper := getOrCreateLimiter(network)

	if !limWrapper.allow() {
		log.Warn().
			Str("ip", addr.String()).
			Str("network", network).
			Msg("Request blocked, exceeded rate limit")

		retryAfter := addRateLimitHeaders(w, limWrapper)
		routes.BlockPage(w, routes.BlockData{
			Reason:     "Rate limit exceeded",
			RetryAfter: retryAfter,
		}, http.StatusTooManyRequests)

		return
	}

	addRateLimitHeaders(w, limWrapper)
	next.ServeHTTP(w, r)
}

func isExcludedPath(path string) bool {
	for _, excluded := range excludedPaths {
		if strings.HasPrefix(path, excluded) {
			return true
		}
	}

	return false
}

// addRateLimitHeaders adds rate limiting information to the response headers
// and returns the number of seconds until the bucket is full again.
func addRateLimitHeaders(w http.ResponseWriter, limWrapper *limiterWrapper) int64 {
	burst, tokens, limit := limWrapper.state()

	remaining := max(int(math.Min(float64(burst), tokens)), 0)

	var resetTime int64

	if tokens < float64(burst) && limit > 0 {
		resetTime = int64(math.Ceil((float64(burst) - tokens) / float64(limit)))
	}

	resetStr := strconv.FormatInt(resetTime, 10)

	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(burst))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
	w.Header().Set(HeaderRateLimitReset, resetStr)

	if remaining == 0 {
		w.Header().Set("Retry-After", resetStr)
	}

	return resetTime
}
