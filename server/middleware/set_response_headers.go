// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"maps"
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/dtextview/dtextview/config"
)

var (
	// baseHeaders defines the default headers to be set in responses.
	//
	// Dtextview-Version and Dtextview-Revision are added dynamically in SetResponseHeaders.
	baseHeaders = http.Header{
		"Referrer-Policy":        {"no-referrer"},
		"X-Frame-Options":        {"DENY"},
		"X-Content-Type-Options": {"nosniff"},
		"Permissions-Policy":     {strings.Join(defaultPermissionsPolicy, ", ")},
	}

	// baseCSP defines static CSP directives that don't change.
	baseCSP = []string{
		"base-uri 'self'",
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"script-src 'none'",
		"connect-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}

	defaultPermissionsPolicy = []string{
		"camera=()",
		"display-capture=()",
		"geolocation=()",
		"microphone=()",
		"payment=()",
		"usb=()",
	}
)

// SetResponseHeaders adds default headers to HTTP responses.
//
// Handlers override Cache-Control where their responses may be cached.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	headers.Set("Cache-Control", "private, no-cache")

	if config.Global.Development.InDevelopment {
		headers.Set("Cache-Control", "no-store")
	}

	headers.Set("Dtextview-Version", config.BuildVersion)
	headers.Set("Dtextview-Revision", config.Global.Build.Revision())
	headers.Set("Content-Security-Policy", buildCSP(config.Global.Booru.BaseURL))

	next.ServeHTTP(w, r)
}

// buildCSP allows gallery thumbnails from the booru and its CDN subdomains.
func buildCSP(booruBaseURL string) string {
	imgSrc := "img-src 'self' data:"

	if u, err := url.Parse(booruBaseURL); err == nil && u.Host != "" {
		origin := u.Scheme + "://" + u.Host
		imgSrc += " " + origin + " " + u.Scheme + "://*." + u.Hostname()
	}

	directives := append(append(make([]string, 0, len(baseCSP)+1), baseCSP...), imgSrc)

	return strings.Join(directives, "; ") + ";"
}
