// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import "strings"

var (
	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	// &amp; must be decoded last, otherwise "&amp;lt;" would collapse to "<".
	unescaper = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// Escape replaces the five HTML metacharacters with their entities.
//
// It runs exactly once per conversion, before any pass injects markup.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Unescape is the inverse of Escape.
//
// It is only used to pull raw identifiers (wiki page ids, tag names) back out
// of text that was escaped earlier.
func Unescape(text string) string {
	return strings.ReplaceAll(unescaper.Replace(text), "&amp;", "&")
}
