// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package dtext converts DText, the markup language of Danbooru-style image
boards, into an HTML fragment.

Conversion runs as a pipeline of string rewrites. The markup is HTML-escaped
once, then every pass finds its constructs with a regular expression,
collects a list of [Replacement] values against its input, and applies them
in one go with [ApplyReplacements]:

  - inline links and styles (quoted links, bare URLs, local links,
    [b]/[i]/[u]/[s], post and pool mentions, {{tag queries}})
  - [[wiki links]], with tag metadata fetched in one batch
  - reference lists (lines of "!post #1"), turned into galleries after one
    batched lookup per resource type
  - block structure: headings, expandable sections, lists and paragraphs

Passes that need remote data go through the [API] interface, which
*booru.Client implements.
*/
package dtext
