// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// descriptionLength is the maximum length in runes of a page description.
const descriptionLength = 160

// pageDescription extracts a plain text summary of a rendered fragment for
// use in <meta name="description">.
func pageDescription(fragment string) string {
	var sb strings.Builder

	z := html.NewTokenizer(strings.NewReader(fragment))

	for {
		switch z.Next() {
		case html.ErrorToken:
			return truncateText(strings.Join(strings.Fields(sb.String()), " "), descriptionLength)
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if isBlockBoundary(atom.Lookup(name)) {
				sb.WriteByte(' ')
			}
		default:
		}
	}
}

func isBlockBoundary(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Br, atom.Li, atom.Ul, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	default:
		return false
	}
}

// truncateText cuts s to at most n runes, ending on a word boundary where
// possible.
func truncateText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:n-1])

	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}

	return cut + "…"
}
