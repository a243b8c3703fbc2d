// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// sitePathPrefix is the booru's own wiki path. Requests using it are
// redirected to /wiki/ so that a site URL works after swapping the host.
const sitePathPrefix = "/wiki_pages/"

// NormalizeURL is a middleware that handles URL normalization by:
// 1. Rewriting booru wiki paths (/wiki_pages/x, /wiki_pages/show_or_new?title=x) to /wiki/x.
// 2. Removing trailing slashes from URLs (except root).
func NormalizeURL(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if target, ok := siteWikiTarget(r.URL); ok {
		http.Redirect(w, r, target, http.StatusMovedPermanently)

		return
	}

	if hasTrailingSlash(r) {
		removeTrailingSlash(w, r)

		return
	}

	next.ServeHTTP(w, r)
}

// hasTrailingSlash checks if a request path has a trailing slash (except root).
func hasTrailingSlash(r *http.Request) bool {
	return r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/")
}

// removeTrailingSlash removes trailing slashes and redirects.
func removeTrailingSlash(w http.ResponseWriter, r *http.Request) {
	target := *r.URL

	target.Path = strings.TrimRight(target.Path, "/")
	if target.Path == "" {
		target.Path = "/"
	}

	target.RawPath = ""

	http.Redirect(w, r, target.String(), http.StatusPermanentRedirect)
}

// siteWikiTarget returns the /wiki/ URL for a booru wiki path.
func siteWikiTarget(u *url.URL) (string, bool) {
	rest, ok := strings.CutPrefix(u.Path, sitePathPrefix)
	if !ok {
		return "", false
	}

	title := strings.Trim(rest, "/")
	if title == "show_or_new" {
		title = strings.TrimSpace(u.Query().Get("title"))
	}

	if title == "" || strings.Contains(title, "/") {
		return "", false
	}

	return "/wiki/" + url.PathEscape(title), true
}
