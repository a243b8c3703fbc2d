// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/rs/zerolog/log"
)

// All patterns below run against escaped text, so a literal `"` in the
// markup shows up as &quot; and an apostrophe as &#39;.
//
// quotedText matches the display part of a quoted link. Every '&' in escaped
// text starts an entity, so excluding &quot; keeps the match inside one pair
// of quotes.
const quotedText = `((?:[^&\n]|&(?:amp|lt|gt|#39);)+?)`

var (
	// quotedLinkRegexp matches "text":[url], "text":http(s)://url and "text":/path.
	//
	// The bracketed form only accepts http(s) and site-relative targets.
	quotedLinkRegexp = regexp.MustCompile(
		`&quot;` + quotedText + `&quot;:(?:\[((?:https?://|/)[^\]\n]*)\]|(https?://[^\s<>\[\]]+|/[^\s<>\[\]]*))`)

	// bareURLRegexp matches URLs that are not already part of an anchor.
	// RE2 has no look-behind, hence regexp2.
	bareURLRegexp = regexp2.MustCompile(`(?<!href="|>|/)https?://[^\s<>\[\]]+`, regexp2.None)

	// localLinkRegexp matches "text":#refId.
	localLinkRegexp = regexp.MustCompile(`&quot;` + quotedText + `&quot;:#([\w-]+)`)

	// styleTagRegexp matches one tag pair. Alternation (instead of a
	// back-reference, which RE2 lacks) means the outermost pair wins and the
	// pass has to run twice for one level of nesting.
	styleTagRegexp = regexp.MustCompile(
		`(?i)\[(b)\](.*?)\[/b\]|\[(i)\](.*?)\[/i\]|\[(u)\](.*?)\[/u\]|\[(s)\](.*?)\[/s\]|\[(post)\](.*?)\[/post\]`)

	// mentionRegexp matches "post #123" and "pool #123" outside of anchor text
	// and outside of [[wiki links]]. A leading '!' belongs to a reference line
	// and is left for the reference list resolver.
	mentionRegexp = regexp2.MustCompile(
		`(?<![\w!])(post|pool) #(\d+)\b(?![^<]*</a>)(?![^\[\]\n]*\]\])`, regexp2.IgnoreCase)

	// queryRegexp matches {{tag1 tag2}}.
	queryRegexp = regexp.MustCompile(`\{\{([^{}\n]+?)\}\}`)

	// trailingPunctuation is left out of unbracketed URLs.
	trailingPunctuation = []string{"&quot;", "&#39;", ".", ",", ":", ";", "!", "?", ")"}
)

// styleTagPasses is how many times the style tag pass runs.
const styleTagPasses = 2

// inlineResolver runs the inline link passes.
type inlineResolver struct {
	urls  URLBuilder
	pools bool
}

func newInlineResolver(urls URLBuilder, pools bool) *inlineResolver {
	return &inlineResolver{urls: urls, pools: pools}
}

// inlinePass computes the replacements of one pass against text.
type inlinePass func(text string) []Replacement

// passes returns the inline passes in the order they run.
func (r *inlineResolver) passes() []inlinePass {
	passes := []inlinePass{r.quotedLinks, r.bareURLs, r.localLinks}
	for range styleTagPasses {
		passes = append(passes, r.styleTags)
	}

	return append(passes, r.mentions, r.queries)
}

// resolve applies every inline pass in order. Each pass computes offsets
// against the output of the previous one.
func (r *inlineResolver) resolve(text string) string {
	for _, pass := range r.passes() {
		text = ApplyReplacements(text, pass(text))
	}

	return text
}

func (r *inlineResolver) quotedLinks(text string) []Replacement {
	wikiPrefix := r.urls.SiteURL("/wiki_pages/")

	return collectSubmatches(quotedLinkRegexp, text, func(m []int) (Replacement, bool) {
		display := text[m[2]:m[3]]
		end := m[1]

		var target string

		switch {
		case m[4] >= 0:
			target = text[m[4]:m[5]]
		default:
			target, end = trimTrailingPunctuation(text[m[6]:m[7]], m[7])
		}

		if target == "" {
			return Replacement{}, false
		}

		href := Unescape(target)
		if strings.HasPrefix(href, "/") {
			href = r.urls.SiteURL(href)
		}

		classes := "dtext-link"

		var attrs string

		if pageID, ok := wikiPageFromURL(href, wikiPrefix); ok {
			classes += " dtext-wiki-link"
			attrs = ` data-page="` + Escape(pageID) + `"`
		}

		return Replacement{
			Start:   m[0],
			End:     end,
			NewText: fmt.Sprintf(`<a class="%s" href="%s"%s>%s</a>`, classes, Escape(href), attrs, display),
		}, true
	})
}

func (r *inlineResolver) bareURLs(text string) []Replacement {
	return collectRegexp2(bareURLRegexp, text, func(start, end int, _ []string) (Replacement, bool) {
		link, end := trimTrailingPunctuation(text[start:end], end)
		if !strings.Contains(link, "://") || strings.HasSuffix(link, "://") {
			return Replacement{}, false
		}

		// link is already escaped and safe to place in the attribute as is.
		return Replacement{
			Start:   start,
			End:     end,
			NewText: fmt.Sprintf(`<a class="dtext-link" href="%s">%s</a>`, link, link),
		}, true
	})
}

func (r *inlineResolver) localLinks(text string) []Replacement {
	return collectSubmatches(localLinkRegexp, text, func(m []int) (Replacement, bool) {
		refID := strings.TrimPrefix(text[m[4]:m[5]], "dtext-")
		if refID == "" {
			return Replacement{}, false
		}

		return Replacement{
			Start: m[0],
			End:   m[1],
			NewText: fmt.Sprintf(`<a class="dtext-link" href="#dtext-%s" data-linkto="%s">%s</a>`,
				refID, refID, text[m[2]:m[3]]),
		}, true
	})
}

func (r *inlineResolver) styleTags(text string) []Replacement {
	return collectSubmatches(styleTagRegexp, text, func(m []int) (Replacement, bool) {
		// Each alternative contributes two groups: tag name and content.
		for group := 1; 2*group+1 < len(m); group += 2 {
			if m[2*group] < 0 {
				continue
			}

			tag := strings.ToLower(text[m[2*group]:m[2*group+1]])
			content := text[m[2*group+2]:m[2*group+3]]

			if tag == "post" {
				id, err := strconv.Atoi(strings.TrimSpace(content))
				if err != nil || id <= 0 {
					return Replacement{}, false
				}

				return Replacement{Start: m[0], End: m[1], NewText: r.postLink(id, "post #"+strconv.Itoa(id))}, true
			}

			return Replacement{
				Start:   m[0],
				End:     m[1],
				NewText: "<" + tag + ">" + content + "</" + tag + ">",
			}, true
		}

		return Replacement{}, false
	})
}

func (r *inlineResolver) mentions(text string) []Replacement {
	return collectRegexp2(mentionRegexp, text, func(start, end int, groups []string) (Replacement, bool) {
		id, err := strconv.Atoi(groups[2])
		if err != nil || id <= 0 {
			return Replacement{}, false
		}

		switch strings.ToLower(groups[1]) {
		case "post":
			return Replacement{Start: start, End: end, NewText: r.postLink(id, groups[0])}, true
		case "pool":
			if !r.pools {
				return Replacement{}, false
			}

			return Replacement{
				Start: start,
				End:   end,
				NewText: fmt.Sprintf(`<a class="dtext-link dtext-pool-link" href="%s">%s</a>`,
					Escape(r.urls.PoolURL(id)), groups[0]),
			}, true
		}

		return Replacement{}, false
	})
}

func (r *inlineResolver) queries(text string) []Replacement {
	return collectSubmatches(queryRegexp, text, func(m []int) (Replacement, bool) {
		query := text[m[2]:m[3]]

		tags := strings.Fields(Unescape(query))
		if len(tags) == 0 {
			return Replacement{}, false
		}

		return Replacement{
			Start: m[0],
			End:   m[1],
			NewText: fmt.Sprintf(`<a class="dtext-link dtext-query-link" href="%s">%s</a>`,
				Escape(r.urls.QueryURL(tags)), strings.TrimSpace(query)),
		}, true
	})
}

func (r *inlineResolver) postLink(id int, text string) string {
	return fmt.Sprintf(`<a class="dtext-link dtext-post-link" href="%s">%s</a>`, Escape(r.urls.PostURL(id)), text)
}

// wikiPageFromURL extracts the page id from a link to the site's wiki.
func wikiPageFromURL(href, wikiPrefix string) (string, bool) {
	rest, ok := strings.CutPrefix(href, wikiPrefix)
	if !ok {
		return "", false
	}

	if i := strings.IndexAny(rest, "?#/"); i >= 0 {
		rest = rest[:i]
	}

	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}

	pageID := normalizePageID(Escape(rest))

	return pageID, pageID != ""
}

// trimTrailingPunctuation strips sentence punctuation that most likely is not
// part of a URL. end is the byte offset of the end of link in the full text;
// the adjusted offset is returned alongside.
func trimTrailingPunctuation(link string, end int) (string, int) {
	for {
		trimmed := false

		for _, suffix := range trailingPunctuation {
			if strings.HasSuffix(link, suffix) {
				// Keep balanced parentheses, e.g. .../Foo_(bar)
				if suffix == ")" && strings.Count(link, "(") >= strings.Count(link, ")") {
					continue
				}

				link = strings.TrimSuffix(link, suffix)
				end -= len(suffix)
				trimmed = true
			}
		}

		if !trimmed {
			return link, end
		}
	}
}

// collectSubmatches builds one Replacement per match of re.
func collectSubmatches(re *regexp.Regexp, text string, fn func(m []int) (Replacement, bool)) []Replacement {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	repls := make([]Replacement, 0, len(matches))

	for _, m := range matches {
		if repl, ok := fn(m); ok {
			repls = append(repls, repl)
		}
	}

	return repls
}

// collectRegexp2 is collectSubmatches for regexp2 patterns. A failing match
// yields no replacements at all.
//
// regexp2 reports rune offsets; they are translated to byte offsets before fn
// sees them.
func collectRegexp2(re *regexp2.Regexp, text string, fn func(start, end int, groups []string) (Replacement, bool)) []Replacement {
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		if err != nil {
			log.Warn().Err(err).Str("pattern", re.String()).Msg("Regexp match failed, leaving text as is")
		}

		return nil
	}

	offsets := runeByteOffsets(text)

	var repls []Replacement

	for m != nil {
		groups := make([]string, 0, m.GroupCount())
		for _, g := range m.Groups() {
			groups = append(groups, g.String())
		}

		start := offsets[m.Index]
		end := offsets[m.Index+m.Length]

		if repl, ok := fn(start, end, groups); ok {
			repls = append(repls, repl)
		}

		m, err = re.FindNextMatch(m)
		if err != nil {
			log.Warn().Err(err).Str("pattern", re.String()).Msg("Regexp match failed, leaving text as is")

			return nil
		}
	}

	return repls
}

// runeByteOffsets maps rune index i to its byte offset; the extra final
// entry is len(text).
func runeByteOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)

	for i := range text {
		offsets = append(offsets, i)
	}

	return append(offsets, len(text))
}
