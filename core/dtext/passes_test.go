// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireDisjoint checks what ApplyReplacements expects of its input.
func requireDisjoint(t *testing.T, text string, repls []Replacement) {
	t.Helper()

	for i, r := range repls {
		require.GreaterOrEqual(t, r.Start, 0, "replacement %d", i)
		require.LessOrEqual(t, r.Start, r.End, "replacement %d", i)
		require.LessOrEqual(t, r.End, len(text), "replacement %d", i)

		if i > 0 {
			require.LessOrEqual(t, repls[i-1].End, r.Start, "replacements %d and %d overlap in %q", i-1, i, text)
		}
	}
}

func TestPassReplacementsAreDisjoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
	}{
		{name: "adjacent quoted links", markup: `"a":/x"b":/y "c":[/z]"d":https://e.test`},
		{name: "adjacent bare urls", markup: "https://a.test https://b.test/c,https://d.test"},
		{name: "nested styles", markup: "[b][i]x[/i][/b][u][s]y[/s][/u][b]z[/b]"},
		{name: "unbalanced styles", markup: "[b][b]x[/b] [i]y[/b][/i]"},
		{name: "mention inside anchor", markup: `"post #5":/posts/5 post #6`},
		{name: "adjacent mentions", markup: "post #1 post #2 pool #3,post #4"},
		{name: "multibyte", markup: "東方 post #1 https://例.jp/ä 東方 [b]ä[/b] {{東方 tag}}"},
		{name: "local links", markup: `"a":#one"b":#dtext-two`},
		{name: "adjacent wiki links", markup: "[[a]][[b|B]] [[post #1]] [[東方|東]]"},
		{name: "wiki link around markup", markup: "[[ [post]1[/post] ]] [[ https://a.test ]]"},
		{name: "queries", markup: "{{a}}{{b c}} {{}}"},
		{name: "reference runs", markup: "!post #1\n!post #2: post #1\ntext\n* !asset #7\n!post #1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := newGalleryAPI()
			text := Escape(tt.markup)

			for _, pass := range newInlineResolver(api, true).passes() {
				repls := pass(text)
				requireDisjoint(t, text, repls)

				text = ApplyReplacements(text, repls)
			}

			repls := wikiLinkReplacements(t.Context(), text, api, DefaultWikiLookupLimit)
			requireDisjoint(t, text, repls)

			text = ApplyReplacements(text, repls)

			repls, err := referenceReplacements(t.Context(), text, "\n", api)
			require.NoError(t, err)
			requireDisjoint(t, text, repls)

			assert.NotEmpty(t, ApplyReplacements(text, repls))
		})
	}
}
