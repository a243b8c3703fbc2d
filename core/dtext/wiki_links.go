// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"codeberg.org/dtextview/dtextview/core/booru"
)

// DefaultWikiLookupLimit is the largest number of distinct wiki pages a
// document may reference before tag metadata lookup is skipped.
const DefaultWikiLookupLimit = 100

var (
	// wikiLinkRegexp matches [[target]] and [[target|display]]. A target
	// holding markup from an earlier pass is not a page name.
	wikiLinkRegexp = regexp.MustCompile(`\[\[([^\[\]|\n<>]+)(?:\|([^\[\]\n]*))?\]\]`)

	// qualifierRegexp matches a trailing qualifier such as " (copyright)".
	qualifierRegexp = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
)

// WikiLinkMatch is one [[...]] reference.
type WikiLinkMatch struct {
	RawTarget        string
	DisplayName      string
	NormalizedPageID string
	Start            int
	End              int
}

// ResolveWikiLinks replaces every [[...]] reference with an anchor to the
// referenced wiki page.
//
// Tag metadata for all distinct pages is requested in one batch, unless more
// than limit distinct pages are referenced. Lookup failures only cost the
// links their tag-type class.
func ResolveWikiLinks(ctx context.Context, text string, api API, limit int) string {
	return ApplyReplacements(text, wikiLinkReplacements(ctx, text, api, limit))
}

func wikiLinkReplacements(ctx context.Context, text string, api API, limit int) []Replacement {
	matches := findWikiLinks(text)
	if len(matches) == 0 {
		return nil
	}

	tags := lookupWikiTags(ctx, api, distinctPageIDs(matches), limit)

	repls := make([]Replacement, 0, len(matches))

	for _, m := range matches {
		classes := "dtext-link dtext-wiki-link"
		if tag, ok := tags[m.NormalizedPageID]; ok {
			classes += fmt.Sprintf(" tag-type-%d", tag.Category)
		}

		repls = append(repls, Replacement{
			Start: m.Start,
			End:   m.End,
			NewText: fmt.Sprintf(`<a class="%s" href="%s" data-page="%s">%s</a>`,
				classes, Escape(api.WikiURL(m.NormalizedPageID)), Escape(m.NormalizedPageID), m.DisplayName),
		})
	}

	return repls
}

func findWikiLinks(text string) []WikiLinkMatch {
	var matches []WikiLinkMatch

	for _, m := range wikiLinkRegexp.FindAllStringSubmatchIndex(text, -1) {
		target := text[m[2]:m[3]]

		pageID := normalizePageID(target)
		if pageID == "" {
			continue
		}

		var display string
		if m[4] >= 0 {
			display = strings.TrimSpace(text[m[4]:m[5]])
		}

		if display == "" {
			display = strings.TrimSpace(qualifierRegexp.ReplaceAllString(target, ""))
		}

		if display == "" {
			display = target
		}

		matches = append(matches, WikiLinkMatch{
			RawTarget:        target,
			DisplayName:      display,
			NormalizedPageID: pageID,
			Start:            m[0],
			End:              m[1],
		})
	}

	return matches
}

func distinctPageIDs(matches []WikiLinkMatch) []string {
	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))

	for _, m := range matches {
		if _, ok := seen[m.NormalizedPageID]; ok {
			continue
		}

		seen[m.NormalizedPageID] = struct{}{}
		ids = append(ids, m.NormalizedPageID)
	}

	return ids
}

func lookupWikiTags(ctx context.Context, api API, pageIDs []string, limit int) map[string]booru.Tag {
	if limit <= 0 || len(pageIDs) > limit {
		log.Debug().
			Int("pages", len(pageIDs)).
			Int("limit", limit).
			Msg("Skipping wiki tag lookup")

		return nil
	}

	tags, err := api.GetMultipleTagInfos(ctx, pageIDs, "name", "category")
	if err != nil {
		log.Warn().
			Err(err).
			Int("pages", len(pageIDs)).
			Msg("Wiki tag lookup failed, rendering untyped links")

		return nil
	}

	return tags
}

// normalizePageID turns an escaped wiki target into a page id: unescaped,
// lowercased, with spaces replaced by underscores.
func normalizePageID(target string) string {
	id := strings.TrimSpace(Unescape(target))

	// A Caser holds state, so one is made per call.
	id = cases.Lower(language.Und).String(id)

	return strings.ReplaceAll(id, " ", "_")
}
