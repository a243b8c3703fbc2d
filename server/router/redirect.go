// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/dtextview/dtextview/server/utils"
)

// redirectWithQueryParam is a helper function to redirect requests to
// a target path built from the specified query parameter.
//
// Example:   /wiki?title=<title>   ->   /wiki/<title>
//
// Without the parameter the request is answered with 404.
func redirectWithQueryParam(targetPath, preservedParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := strings.TrimSpace(utils.GetQueryParam(r, preservedParam))
		if value == "" {
			http.NotFound(w, r)

			return
		}

		http.Redirect(w, r, targetPath+url.PathEscape(value), http.StatusPermanentRedirect)
	}
}
