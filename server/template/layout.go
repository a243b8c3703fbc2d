// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package template

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const pageStyle = `body{max-width:60rem;margin:0 auto;padding:1rem;font-family:sans-serif;line-height:1.5}
.dtext-gallery{display:flex;flex-wrap:wrap;gap:.5rem;margin:1rem 0}
.dtext-gallery-item{display:flex;flex-direction:column;max-width:180px}
.dtext-gallery-desc{font-size:.875rem}
.tag-type-1{color:#c00}.tag-type-3{color:#a0a}.tag-type-4{color:#0a0}.tag-type-5{color:#f80}
footer{margin-top:2rem;font-size:.875rem;color:#666}`

// Layout wraps content in the HTML document shared by every page.
func Layout(c Common, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<meta name="generator" content="dtextview `)
		hw.text(c.Version)
		hw.raw(`">`)

		if c.Description != "" {
			hw.raw(`<meta name="description" content="`)
			hw.text(c.Description)
			hw.raw(`">`)
		}

		hw.raw(`<title>`)
		hw.text(c.Title)
		hw.raw(` - dtextview</title><style>`)
		hw.raw(pageStyle)
		hw.raw(`</style></head><body><main>`)

		hw.component(ctx, content)

		hw.raw(`</main><footer>dtextview `)
		hw.text(c.Version)

		if c.RepoURL != "" {
			hw.raw(` &middot; <a href="`)
			hw.url(c.RepoURL)
			hw.raw(`">source</a>`)
		}

		hw.raw(`</footer></body></html>`)

		return hw.err
	})
}
