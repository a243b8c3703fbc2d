// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package booru

import (
	"strconv"
	"time"
)

// Post is a post as returned by /posts.json. Only requested fields are set.
type Post struct {
	ID             int    `json:"id"`
	PreviewFileURL string `json:"preview_file_url"`
	LargeFileURL   string `json:"large_file_url,omitempty"`
	Rating         string `json:"rating,omitempty"`
}

// MediaAsset is an uploaded file as returned by /media_assets.json.
type MediaAsset struct {
	ID       int            `json:"id"`
	Variants []MediaVariant `json:"variants"`
}

// MediaVariant is one rendition of a media asset. Variants are ordered from
// smallest to largest, the original file last.
type MediaVariant struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	FileExt string `json:"file_ext"`
}

// ThumbnailURL picks the largest variant that is not the original file.
// An asset with a single variant uses it; an asset without variants has no
// thumbnail.
func (a MediaAsset) ThumbnailURL() string {
	switch n := len(a.Variants); n {
	case 0:
		return ""
	case 1:
		return a.Variants[0].URL
	default:
		return a.Variants[n-2].URL
	}
}

// TagCategory is the numeric tag type shared by Danbooru and Gelbooru.
type TagCategory int

const (
	CategoryGeneral   TagCategory = 0
	CategoryArtist    TagCategory = 1
	CategoryCopyright TagCategory = 3
	CategoryCharacter TagCategory = 4
	CategoryMeta      TagCategory = 5
	// CategoryDeprecated only exists on Gelbooru.
	CategoryDeprecated TagCategory = 6
)

func (c TagCategory) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryArtist:
		return "artist"
	case CategoryCopyright:
		return "copyright"
	case CategoryCharacter:
		return "character"
	case CategoryMeta:
		return "meta"
	case CategoryDeprecated:
		return "deprecated"
	default:
		return "category-" + strconv.Itoa(int(c))
	}
}

// Tag is tag metadata as returned by /tags.json.
type Tag struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Category  TagCategory `json:"category"`
	PostCount int         `json:"post_count"`
}

// WikiPage is a page as returned by /wiki_pages/{title}.json.
type WikiPage struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	OtherNames []string  `json:"other_names"`
	IsDeleted  bool      `json:"is_deleted"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// gelbooruTag is the tag representation of the Gelbooru DAPI.
type gelbooruTag struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Count int         `json:"count"`
	Type  TagCategory `json:"type"`
}
