// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/dtextview/dtextview/core/booru"
)

const testSite = "https://booru.test"

var errUpstream = errors.New("upstream unavailable")

type lookupCall struct {
	Keys   []string
	Fields []string
}

// fakeAPI serves canned records and records every lookup it receives.
type fakeAPI struct {
	posts  map[int]booru.Post
	assets map[int]booru.MediaAsset
	tags   map[string]booru.Tag

	postsErr error
	tagsErr  error

	pools      bool
	references bool

	mu         sync.Mutex
	postCalls  []lookupCall
	assetCalls []lookupCall
	tagCalls   []lookupCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		posts:      map[int]booru.Post{},
		assets:     map[int]booru.MediaAsset{},
		tags:       map[string]booru.Tag{},
		pools:      true,
		references: true,
	}
}

func (f *fakeAPI) PostURL(id int) string       { return testSite + "/posts/" + strconv.Itoa(id) }
func (f *fakeAPI) PoolURL(id int) string       { return testSite + "/pools/" + strconv.Itoa(id) }
func (f *fakeAPI) MediaAssetURL(id int) string { return testSite + "/media_assets/" + strconv.Itoa(id) }
func (f *fakeAPI) WikiURL(pageID string) string {
	return testSite + "/wiki_pages/" + url.PathEscape(pageID)
}

func (f *fakeAPI) QueryURL(tags []string) string {
	return testSite + "/posts?tags=" + url.QueryEscape(strings.Join(tags, " "))
}

func (f *fakeAPI) SiteURL(path string) string    { return testSite + path }
func (f *fakeAPI) SupportsPools() bool          { return f.pools }
func (f *fakeAPI) SupportsReferenceLists() bool { return f.references }

func (f *fakeAPI) GetPosts(_ context.Context, ids []int, fields ...string) ([]booru.Post, error) {
	f.mu.Lock()
	f.postCalls = append(f.postCalls, lookupCall{Keys: itoaAll(ids), Fields: fields})
	f.mu.Unlock()

	if f.postsErr != nil {
		return nil, f.postsErr
	}

	var out []booru.Post

	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out = append(out, p)
		}
	}

	return out, nil
}

func (f *fakeAPI) GetMediaAssets(_ context.Context, ids []int, fields ...string) ([]booru.MediaAsset, error) {
	f.mu.Lock()
	f.assetCalls = append(f.assetCalls, lookupCall{Keys: itoaAll(ids), Fields: fields})
	f.mu.Unlock()

	var out []booru.MediaAsset

	for _, id := range ids {
		if a, ok := f.assets[id]; ok {
			out = append(out, a)
		}
	}

	return out, nil
}

func (f *fakeAPI) GetMultipleTagInfos(_ context.Context, names []string, fields ...string) (map[string]booru.Tag, error) {
	f.mu.Lock()
	f.tagCalls = append(f.tagCalls, lookupCall{Keys: slices.Clone(names), Fields: fields})
	f.mu.Unlock()

	if f.tagsErr != nil {
		return nil, f.tagsErr
	}

	out := make(map[string]booru.Tag)

	for _, name := range names {
		if tag, ok := f.tags[name]; ok {
			out[name] = tag
		}
	}

	return out, nil
}

func itoaAll(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}

	return out
}

func render(t *testing.T, api *fakeAPI, markup string) string {
	t.Helper()

	html, err := RenderMarkup(t.Context(), markup, Options{}, api)
	require.NoError(t, err)

	return html
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	return doc
}

func TestEscapeRoundTrip(t *testing.T) {
	t.Parallel()

	raw := `<a href="x">Tom & 'Jerry'</a>`
	escaped := Escape(raw)

	assert.Equal(t, `&lt;a href=&quot;x&quot;&gt;Tom &amp; &#39;Jerry&#39;&lt;/a&gt;`, escaped)
	assert.Equal(t, raw, Unescape(escaped))

	// An escaped entity survives one round of unescaping as an entity.
	assert.Equal(t, "&lt;", Unescape(Escape("&lt;")))
}

func TestApplyReplacements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		repls []Replacement
		want  string
	}{
		{name: "none", text: "abcdef", want: "abcdef"},
		{
			name:  "two ranges",
			text:  "abcdef",
			repls: []Replacement{{Start: 1, End: 2, NewText: "X"}, {Start: 4, End: 5, NewText: "Y"}},
			want:  "aXcdYf",
		},
		{
			name:  "insertion",
			text:  "abcdef",
			repls: []Replacement{{Start: 0, End: 0, NewText: "<"}, {Start: 6, End: 6, NewText: ">"}},
			want:  "<abcdef>",
		},
		{
			name:  "whole text",
			text:  "abc",
			repls: []Replacement{{Start: 0, End: 3, NewText: ""}},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ApplyReplacements(tt.text, tt.repls))
		})
	}
}

func TestStructureBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		sep  string
		want string
	}{
		{name: "paragraphs", text: "one\ntwo\n\nthree", want: "<p>one<br>two</p><p>three</p>"},
		{name: "blank lines only", text: "\n \n\n", want: ""},
		{name: "heading", text: "h2. Title\nbody", want: "<h1>Title</h1><p>body</p>"},
		{name: "h1 stays h1", text: "h1. Top", want: "<h1>Top</h1>"},
		{name: "heading with ref", text: "h4#intro. Hi", want: `<h3 data-ref="intro">Hi</h3>`},
		{name: "h1 with ref", text: "h1#intro. Title", want: `<h1 data-ref="intro">Title</h1>`},
		{name: "heading ref prefix", text: "h3#dtext-faq. FAQ", want: `<h2 data-ref="faq">FAQ</h2>`},
		{
			name: "nested list",
			text: "* a\n** b\n* c",
			want: "<ul><li>a</li><ul><li>b</li></ul><li>c</li></ul>",
		},
		{
			name: "list between paragraphs",
			text: "intro\n* a\noutro",
			want: "<p>intro</p><ul><li>a</li></ul><p>outro</p>",
		},
		{name: "dash bullet", text: "- a\n- b", want: "<ul><li>a</li><li>b</li></ul>"},
		{
			name: "expand",
			text: "[expand=Spoilers]\nhidden\n[/expand]",
			want: "<h5>Spoilers</h5><p>hidden</p>",
		},
		{
			name: "expand across blank lines",
			text: "[expand]\na\n\nb\n[/expand]",
			want: "<h5>Show</h5><p>a</p><p>b</p>",
		},
		{
			name: "text after expand",
			text: "[expand=Spoilers]\nhidden\n[/expand]\nafter",
			want: "<h5>Spoilers</h5><p>hidden</p><p>after</p>",
		},
		{
			name: "consecutive expands",
			text: "[expand]a[/expand]\n[expand=B]b[/expand]",
			want: "<h5>Show</h5><p>a</p><h5>B</h5><p>b</p>",
		},
		{name: "crlf input", text: "a\r\nb", want: "<p>a<br>b</p>"},
		{name: "custom separator", text: "a\r\n\r\nb", sep: "\r\n", want: "<p>a</p><p>b</p>"},
		{
			name: "gallery is block level",
			text: "text\n" + galleryOpen + "X</div>",
			want: "<p>text</p>" + galleryOpen + "X</div>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, StructureBlocks(tt.text, tt.sep))
		})
	}
}

func TestRenderMarkup_Inline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{name: "plain text", markup: "just some words", want: "<p>just some words</p>"},
		{name: "escaping", markup: `5 > 3 & "quoted"`, want: "<p>5 &gt; 3 &amp; &quot;quoted&quot;</p>"},
		{
			name:   "script",
			markup: "<script>alert(1)</script>",
			want:   "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>",
		},
		{name: "styles", markup: "[b]bold[/b] and [i]it[/i]", want: "<p><b>bold</b> and <i>it</i></p>"},
		{name: "nested styles", markup: "[b][i]x[/i][/b]", want: "<p><b><i>x</i></b></p>"},
		{
			name:   "post mention",
			markup: "see post #123",
			want:   `<p>see <a class="dtext-link dtext-post-link" href="https://booru.test/posts/123">post #123</a></p>`,
		},
		{
			name:   "post tag",
			markup: "[post]42[/post]",
			want:   `<p><a class="dtext-link dtext-post-link" href="https://booru.test/posts/42">post #42</a></p>`,
		},
		{
			name:   "pool mention",
			markup: "pool #5",
			want:   `<p><a class="dtext-link dtext-pool-link" href="https://booru.test/pools/5">pool #5</a></p>`,
		},
		{
			name:   "query",
			markup: "{{blue_sky cloud}}",
			want:   `<p><a class="dtext-link dtext-query-link" href="https://booru.test/posts?tags=blue_sky+cloud">blue_sky cloud</a></p>`,
		},
		{
			name:   "quoted link",
			markup: `"Example":https://example.com.`,
			want:   `<p><a class="dtext-link" href="https://example.com">Example</a>.</p>`,
		},
		{
			name:   "bracketed link",
			markup: `"Example":[https://example.com/a b]`,
			want:   `<p><a class="dtext-link" href="https://example.com/a b">Example</a></p>`,
		},
		{
			name:   "bare url",
			markup: "see https://example.com/a, ok",
			want:   `<p>see <a class="dtext-link" href="https://example.com/a">https://example.com/a</a>, ok</p>`,
		},
		{
			name:   "site wiki link",
			markup: `"help":/wiki_pages/help:dtext`,
			want:   `<p><a class="dtext-link dtext-wiki-link" href="https://booru.test/wiki_pages/help:dtext" data-page="help:dtext">help</a></p>`,
		},
		{
			name:   "local link",
			markup: `"see below":#dtext-notes`,
			want:   `<p><a class="dtext-link" href="#dtext-notes" data-linkto="notes">see below</a></p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, render(t, newFakeAPI(), tt.markup))
		})
	}
}

func TestRenderMarkup_PoolsUnsupported(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.pools = false

	assert.Equal(t, "<p>pool #5</p>", render(t, api, "pool #5"))
}

func TestRenderMarkup_MentionInsideLink(t *testing.T) {
	t.Parallel()

	html := render(t, newFakeAPI(), `"post #5":/posts/5`)

	doc := parse(t, html)
	require.Equal(t, 1, doc.Find("a").Length())
	assert.Equal(t, "post #5", doc.Find("a").Text())
	assert.Equal(t, "https://booru.test/posts/5", doc.Find("a").AttrOr("href", ""))
}

func TestRenderMarkup_MentionInsideWikiLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		markup   string
		wantPage string
		wantText string
	}{
		{name: "target", markup: "[[post #1]]", wantPage: "post_#1", wantText: "post #1"},
		{name: "display", markup: "[[touhou|see post #1]]", wantPage: "touhou", wantText: "see post #1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			html := render(t, newFakeAPI(), tt.markup)
			assert.Equal(t, 1, strings.Count(html, "<a "), html)
			assert.NotContains(t, html, "dtext-post-link")

			link := parse(t, html).Find("a.dtext-wiki-link")
			require.Equal(t, 1, link.Length())
			assert.Equal(t, tt.wantPage, link.AttrOr("data-page", ""))
			assert.Equal(t, tt.wantText, link.Text())
		})
	}
}

func TestRenderMarkup_WikiTargetWithMarkup(t *testing.T) {
	t.Parallel()

	html := render(t, newFakeAPI(), "[[ [post]1[/post] ]]")
	assert.Equal(t, 1, strings.Count(html, "<a "), html)

	doc := parse(t, html)
	assert.Equal(t, 0, doc.Find("a.dtext-wiki-link").Length())
	assert.Equal(t, "https://booru.test/posts/1", doc.Find("a.dtext-post-link").AttrOr("href", ""))
}

func TestRenderMarkup_LocalLinkToHeading(t *testing.T) {
	t.Parallel()

	html := render(t, newFakeAPI(), "h2#dtext-faq. FAQ\n\n\"jump\":#faq")

	doc := parse(t, html)
	heading := doc.Find("h1")
	require.Equal(t, 1, heading.Length())
	assert.Equal(t, "faq", heading.AttrOr("data-ref", ""))

	link := doc.Find("a")
	assert.Equal(t, "#dtext-faq", link.AttrOr("href", ""))
	assert.Equal(t, heading.AttrOr("data-ref", ""), link.AttrOr("data-linkto", ""))
}

func TestRenderMarkup_WikiLinks(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags["hatsune_miku"] = booru.Tag{Name: "hatsune_miku", Category: booru.CategoryCharacter}

	html := render(t, api, "[[Hatsune Miku]] and [[touhou|Touhou Project]] and [[cure peach (precure)]] and [[hatsune miku]]")

	doc := parse(t, html)
	links := doc.Find("a.dtext-wiki-link")
	require.Equal(t, 4, links.Length())

	first := links.Eq(0)
	assert.Equal(t, "Hatsune Miku", first.Text())
	assert.Equal(t, "hatsune_miku", first.AttrOr("data-page", ""))
	assert.True(t, first.HasClass("tag-type-4"))
	assert.Equal(t, "https://booru.test/wiki_pages/hatsune_miku", first.AttrOr("href", ""))

	assert.Equal(t, "Touhou Project", links.Eq(1).Text())
	assert.False(t, links.Eq(1).HasClass("tag-type-0"), "unknown tags carry no type")

	assert.Equal(t, "cure peach", links.Eq(2).Text())
	assert.Equal(t, "cure_peach_(precure)", links.Eq(2).AttrOr("data-page", ""))

	api.mu.Lock()
	defer api.mu.Unlock()

	require.Len(t, api.tagCalls, 1, "tag metadata is fetched in one batch")
	assert.Equal(t, []string{"hatsune_miku", "touhou", "cure_peach_(precure)"}, api.tagCalls[0].Keys)
	assert.Equal(t, []string{"name", "category"}, api.tagCalls[0].Fields)
}

func TestRenderMarkup_WikiLookupSkipped(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags["a"] = booru.Tag{Name: "a", Category: booru.CategoryArtist}

	html, err := RenderMarkup(t.Context(), "[[a]] [[b]]", Options{WikiLookupLimit: 1}, api)
	require.NoError(t, err)

	doc := parse(t, html)
	assert.Equal(t, 2, doc.Find("a.dtext-wiki-link").Length())
	assert.Equal(t, 0, doc.Find("a.tag-type-1").Length())

	api.mu.Lock()
	defer api.mu.Unlock()

	assert.Empty(t, api.tagCalls)
}

func TestRenderMarkup_WikiLookupFailure(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tagsErr = errUpstream

	html := render(t, api, "[[touhou]]")

	doc := parse(t, html)
	link := doc.Find("a.dtext-wiki-link")
	require.Equal(t, 1, link.Length())
	assert.Equal(t, "dtext-link dtext-wiki-link", link.AttrOr("class", ""))
}

func newGalleryAPI() *fakeAPI {
	api := newFakeAPI()
	api.posts[1] = booru.Post{ID: 1, PreviewFileURL: "https://cdn.test/1.jpg"}
	api.posts[2] = booru.Post{ID: 2}
	api.assets[7] = booru.MediaAsset{ID: 7, Variants: []booru.MediaVariant{
		{Type: "180x180", URL: "https://cdn.test/7_180.jpg"},
		{Type: "original", URL: "https://cdn.test/7.png"},
	}}

	return api
}

func TestRenderMarkup_ReferenceList(t *testing.T) {
	t.Parallel()

	api := newGalleryAPI()

	html := render(t, api, "h2. Gallery\n!post #1: first <one>\n!post #2\n* !asset #7")

	doc := parse(t, html)
	require.Equal(t, 1, doc.Find(".dtext-gallery").Length())

	items := doc.Find(".dtext-gallery-item")
	require.Equal(t, 3, items.Length())

	assert.Equal(t, "https://cdn.test/1.jpg", items.Eq(0).Find("img").AttrOr("src", ""))
	assert.Equal(t, "https://booru.test/posts/1", items.Eq(0).Find("a").AttrOr("href", ""))
	assert.Equal(t, "first <one>", items.Eq(0).Find(".dtext-gallery-desc").Text())

	assert.Equal(t, 0, items.Eq(1).Find("img").Length(), "missing thumbnail falls back to a text link")
	assert.Equal(t, "post #2", items.Eq(1).Find("a").Text())

	assert.Equal(t, "https://cdn.test/7_180.jpg", items.Eq(2).Find("img").AttrOr("src", ""))
	assert.Equal(t, "https://booru.test/media_assets/7", items.Eq(2).Find("a").AttrOr("href", ""))

	api.mu.Lock()
	defer api.mu.Unlock()

	require.Len(t, api.postCalls, 1)
	assert.Equal(t, []string{"1", "2"}, api.postCalls[0].Keys)
	assert.Equal(t, []string{"id", "preview_file_url"}, api.postCalls[0].Fields)

	require.Len(t, api.assetCalls, 1)
	assert.Equal(t, []string{"7"}, api.assetCalls[0].Keys)
}

func TestRenderMarkup_ReferenceRunsShareLookup(t *testing.T) {
	t.Parallel()

	api := newGalleryAPI()

	html := render(t, api, "!post #1\ntext\n!post #2\n!post #1")

	doc := parse(t, html)
	assert.Equal(t, 2, doc.Find(".dtext-gallery").Length())
	assert.Equal(t, "text", doc.Find("p").Text())

	api.mu.Lock()
	defer api.mu.Unlock()

	require.Len(t, api.postCalls, 1, "all runs share one lookup")
	assert.Equal(t, []string{"1", "2"}, api.postCalls[0].Keys)
	assert.Empty(t, api.assetCalls)
}

func TestRenderMarkup_ReferenceErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		html, err := RenderMarkup(t.Context(), "!post #9", Options{}, newGalleryAPI())
		require.ErrorIs(t, err, ErrUnresolvedReference)
		assert.Empty(t, html)
	})

	t.Run("lookup failure", func(t *testing.T) {
		t.Parallel()

		api := newGalleryAPI()
		api.postsErr = errUpstream

		html, err := RenderMarkup(t.Context(), "!post #1", Options{}, api)
		require.ErrorIs(t, err, errUpstream)
		assert.Empty(t, html)
	})

	t.Run("nil api", func(t *testing.T) {
		t.Parallel()

		_, err := RenderMarkup(t.Context(), "text", Options{}, nil)
		require.Error(t, err)
	})
}

func TestRenderMarkup_ReferenceListsUnsupported(t *testing.T) {
	t.Parallel()

	api := newGalleryAPI()
	api.references = false

	assert.Equal(t, "<p>!post #1</p>", render(t, api, "!post #1"))

	api.mu.Lock()
	defer api.mu.Unlock()

	assert.Empty(t, api.postCalls)
}

func TestFindReferenceRuns(t *testing.T) {
	t.Parallel()

	text := "a\n!post #1\n* !asset #2: x\nb\n!post #3"
	runs := findReferenceRuns(text, "\n")

	require.Len(t, runs, 2)

	assert.Equal(t, "!post #1\n* !asset #2: x", text[runs[0].Start:runs[0].End])
	require.Len(t, runs[0].Matches, 2)
	assert.Equal(t, ResourceAsset, runs[0].Matches[1].ResourceType)
	assert.Equal(t, 2, runs[0].Matches[1].ResourceID)
	assert.Equal(t, "x", runs[0].Matches[1].Description)

	assert.Equal(t, "!post #3", text[runs[1].Start:runs[1].End])
}

func TestNormalizePageID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Hatsune Miku":         "hatsune_miku",
		"  touhou  ":           "touhou",
		"Tom &amp; Jerry":      "tom_&_jerry",
		"ÉCOLE":                "école",
		"cure peach (precure)": "cure_peach_(precure)",
	}

	for in, want := range tests {
		assert.Equal(t, want, normalizePageID(in), in)
	}
}
