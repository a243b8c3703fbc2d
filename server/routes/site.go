// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package routes contains the HTTP handlers.

Handlers return an error instead of writing failure responses themselves;
middleware.CatchError maps it to a status code and calls ErrorPage.
*/
package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/core/booru"
	"codeberg.org/dtextview/dtextview/core/dtext"
)

// Site is the booru the server renders against. *booru.Client satisfies it.
type Site interface {
	dtext.API

	GetWikiPage(ctx context.Context, title string) (*booru.WikiPage, error)
	InvalidateWikiPage(title string) int
}

// HTTPError is a failure caused by the request itself.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func newHTTPError(statusCode int, format string, args ...any) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

// renderMarkup converts markup with the configured options, sanitizing the
// result when enabled.
func renderMarkup(ctx context.Context, site Site, markup, lineSeparator string) (string, error) {
	if lineSeparator == "" {
		lineSeparator = config.Global.Render.LineSeparator
	}

	html, err := dtext.RenderMarkup(ctx, markup, dtext.Options{
		LineSeparator:   lineSeparator,
		WikiLookupLimit: config.Global.Render.WikiLookupLimit,
	}, site)
	if err != nil {
		return "", err
	}

	if config.Global.Render.Sanitize {
		html = Sanitize(html)
	}

	return html, nil
}

// isAPIPath reports whether the response for path is JSON.
func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func setPublicCacheControl(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
		int(config.Global.HTTPCache.MaxAge.Seconds()),
		int(config.Global.HTTPCache.StaleWhileRevalidate.Seconds())))
}
