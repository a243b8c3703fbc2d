// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package template

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// WikiData is the data for WikiPage.
type WikiData struct {
	Common

	Page       string
	OtherNames []string
	Content    string // rendered markup, written unescaped
	SiteURL    string
	UpdatedAt  time.Time
}

// WikiPage renders a wiki page with its rendered body.
func WikiPage(data WikiData) templ.Component {
	return Layout(data.Common, wikiContent(data, time.Now()))
}

func wikiContent(data WikiData, now time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<article class="wiki-page" data-page="`)
		hw.text(data.Page)
		hw.raw(`"><header><h1>`)
		hw.text(data.Title)
		hw.raw(`</h1>`)

		if len(data.OtherNames) > 0 {
			hw.raw(`<p class="wiki-other-names">`)
			hw.text(strings.Join(data.OtherNames, ", "))
			hw.raw(`</p>`)
		}

		hw.raw(`</header><div class="dtext">`)
		hw.component(ctx, templ.Raw(data.Content))
		hw.raw(`</div><p class="wiki-meta">`)

		if !data.UpdatedAt.IsZero() {
			hw.raw(`Updated <time datetime="`)
			hw.text(data.UpdatedAt.UTC().Format(time.RFC3339))
			hw.raw(`" title="`)
			hw.text(NaturalTime(data.UpdatedAt))
			hw.raw(`">`)
			hw.text(RelativeTime(data.UpdatedAt, now))
			hw.raw(`</time> &middot; `)
		}

		hw.raw(`<a href="`)
		hw.url(data.SiteURL)
		hw.raw(`">View on site</a></p></article>`)

		return hw.err
	})
}
