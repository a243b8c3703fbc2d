// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"context"

	"codeberg.org/dtextview/dtextview/core/booru"
)

// URLBuilder builds site URLs without performing any I/O.
type URLBuilder interface {
	PostURL(id int) string
	PoolURL(id int) string
	MediaAssetURL(id int) string
	WikiURL(pageID string) string
	QueryURL(tags []string) string

	// SiteURL resolves a site-relative path such as "/posts?tags=x".
	SiteURL(path string) string
}

// API is the data lookup contract the renderer consumes.
//
// *booru.Client satisfies it.
type API interface {
	URLBuilder

	GetPosts(ctx context.Context, ids []int, fields ...string) ([]booru.Post, error)
	GetMediaAssets(ctx context.Context, ids []int, fields ...string) ([]booru.MediaAsset, error)

	// GetMultipleTagInfos is best-effort: a missing entry means "unknown".
	GetMultipleTagInfos(ctx context.Context, names []string, fields ...string) (map[string]booru.Tag, error)

	SupportsPools() bool
	SupportsReferenceLists() bool
}
