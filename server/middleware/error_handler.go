// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"errors"
	"maps"
	"net/http"
	"net/http/httptest"

	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/core/audit"
	"codeberg.org/dtextview/dtextview/core/booru"
	"codeberg.org/dtextview/dtextview/core/dtext"
	"codeberg.org/dtextview/dtextview/core/requests"
	"codeberg.org/dtextview/dtextview/server/request_context"
	"codeberg.org/dtextview/dtextview/server/routes"
)

// CatchError wraps HTTP handlers that return an error, providing centralized error handling,
// response buffering, and request logging.
//
// The handler's output is buffered using an httptest.ResponseRecorder. If the
// handler returns an error, the buffered response is discarded, the error is
// mapped to a status code by StatusForError and routes.ErrorPage renders it.
// Otherwise the buffered response is written to the client.
//
// Finally, it logs the completed request via the audit package.
func CatchError(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		span := audit.Span{
			Destination: audit.ToUser,
			RequestID:   ctx.RequestID,
			Method:      r.Method,
			URL:         r.URL.String(),
		}

		_ = span.Begin(r.Context())
		defer span.End()

		recorder := httptest.NewRecorder()

		ctx.RequestError = handler(recorder, r)

		if ctx.RequestError != nil {
			ctx.StatusCode = StatusForError(ctx.RequestError)

			routes.ErrorPage(w, r)
		} else {
			ctx.StatusCode = recorder.Code

			maps.Copy(w.Header(), recorder.Header())
			w.WriteHeader(recorder.Code)

			if _, err := recorder.Body.WriteTo(w); err != nil {
				log.Err(err).Msg("Failed to write response body")
			}
		}

		span.StatusCode = ctx.StatusCode
		span.Error = ctx.RequestError

		if !config.Global.ShouldSkipServerLogging(r.URL.Path) {
			span.Log()
		}
	}
}

// StatusForError maps a handler error to the HTTP status code sent to the client.
func StatusForError(err error) int {
	var (
		httpErr *routes.HTTPError
		apiErr  *requests.APIError
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.StatusCode
	case errors.Is(err, dtext.ErrUnresolvedReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booru.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booru.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
