// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import "strings"

// Replacement substitutes the half-open byte range [Start, End) of one
// specific snapshot of the text with NewText.
type Replacement struct {
	Start   int
	End     int
	NewText string
}

// ApplyReplacements returns text with every range substituted.
//
// repls must be sorted by Start and pairwise disjoint, with all offsets
// inside [0, len(text)]. This is not checked: a pass handing in overlapping
// ranges is a bug in that pass.
func ApplyReplacements(text string, repls []Replacement) string {
	if len(repls) == 0 {
		return text
	}

	var sb strings.Builder

	sb.Grow(len(text))

	cursor := 0

	for _, r := range repls {
		sb.WriteString(text[cursor:r.Start])
		sb.WriteString(r.NewText)

		cursor = r.End
	}

	sb.WriteString(text[cursor:])

	return sb.String()
}
