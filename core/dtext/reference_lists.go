// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Resource types that can appear in a reference run.
const (
	ResourcePost  = "post"
	ResourceAsset = "asset"
)

// galleryOpen starts every block emitted by ResolveReferenceLists.
// StructureBlocks relies on it to recognize galleries as block-level lines.
const galleryOpen = `<div class="dtext-gallery">`

// ErrUnresolvedReference is returned when a referenced post or media asset is
// missing from the lookup response.
var ErrUnresolvedReference = errors.New("unresolved reference")

// referenceLineRegexp matches a whole line of the form
// "[-*] !post #123[: description]" or "!asset #123[: description]".
var referenceLineRegexp = regexp.MustCompile(`^(?:[-*] )?!(post|asset) #(\d+)(?::(.*))?$`)

// ReferenceMatch is one matched line of a reference run.
type ReferenceMatch struct {
	ResourceType string
	ResourceID   int
	Description  string // empty when the line has none
	LineStart    int
	LineEnd      int
}

// ReferenceRun is a maximal sequence of consecutive reference lines.
// [Start, End) spans from the first line's start to the last line's end,
// excluding the trailing line separator.
type ReferenceRun struct {
	Matches []ReferenceMatch
	Start   int
	End     int
}

// ResourceInfo is what a gallery entry needs to know about a resource.
type ResourceInfo struct {
	URL          string
	ThumbnailURL string
}

// ResolveReferenceLists replaces each reference run with a gallery block.
//
// All post ids of the document are looked up in one request and all asset
// ids in another; both requests run concurrently. A failed lookup or an id
// missing from a response fails the whole conversion.
func ResolveReferenceLists(ctx context.Context, text, lineSeparator string, api API) (string, error) {
	repls, err := referenceReplacements(ctx, text, lineSeparator, api)
	if err != nil {
		return "", err
	}

	return ApplyReplacements(text, repls), nil
}

func referenceReplacements(ctx context.Context, text, lineSeparator string, api API) ([]Replacement, error) {
	runs := findReferenceRuns(text, lineSeparator)
	if len(runs) == 0 {
		return nil, nil
	}

	postIDs, assetIDs := collectReferenceIDs(runs)

	var (
		posts  map[int]ResourceInfo
		assets map[int]ResourceInfo
	)

	g, gctx := errgroup.WithContext(ctx)

	if len(postIDs) > 0 {
		g.Go(func() error {
			var err error

			posts, err = lookupPosts(gctx, api, postIDs)

			return err
		})
	}

	if len(assetIDs) > 0 {
		g.Go(func() error {
			var err error

			assets, err = lookupAssets(gctx, api, assetIDs)

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("runs", len(runs)).
		Int("posts", len(postIDs)).
		Int("assets", len(assetIDs)).
		Msg("Resolved reference lists")

	repls := make([]Replacement, 0, len(runs))

	for _, run := range runs {
		gallery, err := renderGallery(run, posts, assets)
		if err != nil {
			return nil, err
		}

		repls = append(repls, Replacement{Start: run.Start, End: run.End, NewText: gallery})
	}

	return repls, nil
}

// findReferenceRuns scans text line by line and groups consecutive
// reference lines. A description is assumed not to contain the separator.
func findReferenceRuns(text, lineSeparator string) []ReferenceRun {
	if lineSeparator == "" {
		lineSeparator = DefaultLineSeparator
	}

	var (
		runs    []ReferenceRun
		current *ReferenceRun
	)

	closeRun := func() {
		if current != nil {
			runs = append(runs, *current)
			current = nil
		}
	}

	for lineStart := 0; lineStart <= len(text); {
		lineEnd := len(text)
		next := len(text) + 1

		if i := strings.Index(text[lineStart:], lineSeparator); i >= 0 {
			lineEnd = lineStart + i
			next = lineEnd + len(lineSeparator)
		}

		// Tolerate CRLF input rendered with a "\n" separator.
		contentEnd := lineEnd
		if lineSeparator == "\n" && contentEnd > lineStart && text[contentEnd-1] == '\r' {
			contentEnd--
		}

		if m, ok := matchReferenceLine(text[lineStart:contentEnd]); ok {
			m.LineStart = lineStart
			m.LineEnd = contentEnd

			if current == nil {
				current = &ReferenceRun{Start: lineStart}
			}

			current.Matches = append(current.Matches, m)
			current.End = contentEnd
		} else {
			closeRun()
		}

		lineStart = next
	}

	closeRun()

	return runs
}

func matchReferenceLine(line string) (ReferenceMatch, bool) {
	sm := referenceLineRegexp.FindStringSubmatch(line)
	if sm == nil {
		return ReferenceMatch{}, false
	}

	id, err := strconv.Atoi(sm[2])
	if err != nil || id <= 0 {
		return ReferenceMatch{}, false
	}

	return ReferenceMatch{
		ResourceType: sm[1],
		ResourceID:   id,
		Description:  strings.TrimSpace(sm[3]),
	}, true
}

// collectReferenceIDs returns the distinct post and asset ids in order of
// first appearance.
func collectReferenceIDs(runs []ReferenceRun) ([]int, []int) {
	var postIDs, assetIDs []int

	seen := map[string]map[int]bool{ResourcePost: {}, ResourceAsset: {}}

	for _, run := range runs {
		for _, m := range run.Matches {
			if seen[m.ResourceType][m.ResourceID] {
				continue
			}

			seen[m.ResourceType][m.ResourceID] = true

			if m.ResourceType == ResourcePost {
				postIDs = append(postIDs, m.ResourceID)
			} else {
				assetIDs = append(assetIDs, m.ResourceID)
			}
		}
	}

	return postIDs, assetIDs
}

func lookupPosts(ctx context.Context, api API, ids []int) (map[int]ResourceInfo, error) {
	posts, err := api.GetPosts(ctx, ids, "id", "preview_file_url")
	if err != nil {
		return nil, fmt.Errorf("failed to look up posts: %w", err)
	}

	infos := make(map[int]ResourceInfo, len(posts))
	for _, post := range posts {
		infos[post.ID] = ResourceInfo{
			URL:          api.PostURL(post.ID),
			ThumbnailURL: post.PreviewFileURL,
		}
	}

	return infos, nil
}

func lookupAssets(ctx context.Context, api API, ids []int) (map[int]ResourceInfo, error) {
	assets, err := api.GetMediaAssets(ctx, ids, "id", "variants")
	if err != nil {
		return nil, fmt.Errorf("failed to look up media assets: %w", err)
	}

	infos := make(map[int]ResourceInfo, len(assets))
	for _, asset := range assets {
		infos[asset.ID] = ResourceInfo{
			URL:          api.MediaAssetURL(asset.ID),
			ThumbnailURL: asset.ThumbnailURL(),
		}
	}

	return infos, nil
}

func renderGallery(run ReferenceRun, posts, assets map[int]ResourceInfo) (string, error) {
	var sb strings.Builder

	sb.WriteString(galleryOpen)

	for _, m := range run.Matches {
		infos := posts
		if m.ResourceType == ResourceAsset {
			infos = assets
		}

		label := m.ResourceType + " #" + strconv.Itoa(m.ResourceID)

		info, ok := infos[m.ResourceID]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedReference, label)
		}

		sb.WriteString(`<div class="dtext-gallery-item">`)

		if info.ThumbnailURL != "" {
			fmt.Fprintf(&sb, `<a class="dtext-link" href="%s"><img src="%s" alt="%s"></a>`,
				Escape(info.URL), Escape(info.ThumbnailURL), label)
		} else {
			fmt.Fprintf(&sb, `<a class="dtext-link" href="%s">%s</a>`, Escape(info.URL), label)
		}

		if m.Description != "" {
			sb.WriteString(`<span class="dtext-gallery-desc">`)
			sb.WriteString(m.Description)
			sb.WriteString(`</span>`)
		}

		sb.WriteString(`</div>`)
	}

	sb.WriteString(`</div>`)

	return sb.String(), nil
}
