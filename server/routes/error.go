// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/server/request_context"
	"codeberg.org/dtextview/dtextview/server/template"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ErrorPage writes the error stored in the request context with its status
// code, as JSON for API routes and as an HTML page otherwise.
func ErrorPage(w http.ResponseWriter, r *http.Request) {
	ctx := request_context.FromRequest(r)

	var message string
	if ctx.RequestError != nil {
		message = ctx.RequestError.Error()
	}

	w.Header().Set("Cache-Control", "no-store")

	if isAPIPath(r.URL.Path) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(ctx.StatusCode)

		_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Status: ctx.StatusCode})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(ctx.StatusCode)

	err := template.ErrorPage(template.ErrorData{
		Common: template.Common{
			Title:   http.StatusText(ctx.StatusCode),
			Version: config.BuildVersion,
			RepoURL: config.Global.Instance.RepoURL,
		},
		StatusCode: ctx.StatusCode,
		Error:      message,
	}).Render(r.Context(), w)
	if err != nil {
		log.Err(err).Str("original_error", message).Msg("Failed to render the error page")
	}
}
