// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultLineSeparator is used when Options.LineSeparator is empty.
const DefaultLineSeparator = "\n"

var errNilAPI = errors.New("dtext: nil API")

// Options controls a single conversion.
type Options struct {
	// LineSeparator separates lines in the markup. Defaults to "\n".
	LineSeparator string

	// WikiLookupLimit bounds the number of distinct wiki pages whose tag
	// metadata is looked up. Defaults to DefaultWikiLookupLimit; a negative
	// value disables the lookup.
	WikiLookupLimit int
}

func (o Options) withDefaults() Options {
	if o.LineSeparator == "" {
		o.LineSeparator = DefaultLineSeparator
	}

	if o.WikiLookupLimit == 0 {
		o.WikiLookupLimit = DefaultWikiLookupLimit
	}

	return o
}

// RenderMarkup converts markup into an HTML fragment.
//
// The markup is escaped first, then rewritten by the inline passes, the wiki
// link resolver and, when api supports them, the reference list resolver.
// Finally the text is structured into blocks. Each stage works on the string
// produced by the previous one.
//
// On error no HTML is returned.
func RenderMarkup(ctx context.Context, markup string, opts Options, api API) (string, error) {
	if api == nil {
		return "", errNilAPI
	}

	opts = opts.withDefaults()
	start := time.Now()

	text := Escape(markup)
	text = newInlineResolver(api, api.SupportsPools()).resolve(text)
	text = ResolveWikiLinks(ctx, text, api, opts.WikiLookupLimit)

	if api.SupportsReferenceLists() {
		var err error

		text, err = ResolveReferenceLists(ctx, text, opts.LineSeparator, api)
		if err != nil {
			return "", err
		}
	}

	html := StructureBlocks(text, opts.LineSeparator)

	log.Debug().
		Int("markup_len", len(markup)).
		Int("html_len", len(html)).
		Dur("dur", time.Since(start)).
		Msg("Rendered markup")

	return html, nil
}
