// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package template

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
)

// ErrorData is the data for ErrorPage.
type ErrorData struct {
	Common

	StatusCode int
	Error      string
}

// ErrorPage renders the status code and, when set, the error message.
func ErrorPage(data ErrorData) templ.Component {
	return Layout(data.Common, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<section class="error"><h1>`)
		hw.text(strconv.Itoa(data.StatusCode) + " " + http.StatusText(data.StatusCode))
		hw.raw(`</h1>`)

		if data.Error != "" {
			hw.raw(`<p><code>`)
			hw.text(data.Error)
			hw.raw(`</code></p>`)
		}

		hw.raw(`</section>`)

		return hw.err
	}))
}
