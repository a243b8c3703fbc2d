// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"codeberg.org/dtextview/dtextview/config"
)

// jsonEscapeOverhead bounds how much larger than the markup itself a JSON
// request body may be (\u00XX escapes).
const jsonEscapeOverhead = 6

type renderRequest struct {
	Markup        string `json:"markup"`
	LineSeparator string `json:"lineSeparator,omitempty"`
}

type renderResponse struct {
	HTML string `json:"html"`
}

// RenderAPI is the handler for POST /api/render.
//
// The body is either a JSON renderRequest or, with Content-Type text/plain,
// the markup itself. The response is always a JSON renderResponse.
func RenderAPI(site Site) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		maxMarkup := config.Global.Render.MaxMarkupBytes

		req, err := readRenderRequest(w, r, maxMarkup)
		if err != nil {
			return err
		}

		if len(req.Markup) > maxMarkup {
			return newHTTPError(http.StatusRequestEntityTooLarge, "markup exceeds %d bytes", maxMarkup)
		}

		html, err := renderMarkup(r.Context(), site, req.Markup, req.LineSeparator)
		if err != nil {
			return err
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		return json.NewEncoder(w).Encode(renderResponse{HTML: html})
	}
}

func readRenderRequest(w http.ResponseWriter, r *http.Request, maxMarkup int) (renderRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var req renderRequest

	switch mediaType {
	case "text/plain":
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(maxMarkup)+1))
		if err != nil {
			return req, bodyError(err, maxMarkup)
		}

		req.Markup = string(body)
	case "application/json", "":
		body := http.MaxBytesReader(w, r.Body, int64(maxMarkup)*jsonEscapeOverhead+1024)

		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()

		if err := dec.Decode(&req); err != nil {
			return req, bodyError(err, maxMarkup)
		}
	default:
		return req, newHTTPError(http.StatusUnsupportedMediaType, "unsupported content type %q", mediaType)
	}

	return req, nil
}

func bodyError(err error, maxMarkup int) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return newHTTPError(http.StatusRequestEntityTooLarge, "markup exceeds %d bytes", maxMarkup)
	}

	return newHTTPError(http.StatusBadRequest, "invalid request body: %v", err)
}
