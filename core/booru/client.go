// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package booru talks to the JSON API of a Danbooru-style image board.

Lookups are batched: one call fetches any number of ids, split into
concurrent requests of at most [PageLimit] ids each. URL builders never
perform I/O.
*/
package booru

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/core/requests"
	"codeberg.org/dtextview/dtextview/server/utils"
)

const (
	// PageLimit is the largest number of records requested at once.
	PageLimit = 100

	// maxConcurrentChunks bounds the requests one lookup runs in parallel.
	maxConcurrentChunks = 4
)

var (
	ErrUnsupported    = errors.New("operation not supported by this site")
	ErrNotFound       = errors.New("not found")
	ErrUnknownVariant = errors.New("unknown site variant")
)

// Variant selects the API dialect of a site.
type Variant string

const (
	Danbooru Variant = "danbooru"
	Gelbooru Variant = "gelbooru"
)

// ParseVariant accepts the names of the supported variants, case-insensitively.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case Danbooru, Gelbooru:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// Config describes one site.
type Config struct {
	BaseURL string
	Variant Variant
	Login   string
	APIKey  string // Gelbooru: the account's api_key; Login is then the user_id
}

// Client is a booru API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	variant Variant
	auth    requests.Auth
}

// NewClient validates cfg and returns a client for the site.
func NewClient(cfg Config) (*Client, error) {
	if _, err := ParseVariant(string(cfg.Variant)); err != nil {
		return nil, err
	}

	base, err := utils.ParseURL(cfg.BaseURL, "booru")
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: base.String(),
		variant: cfg.Variant,
		auth:    requests.Auth{Login: cfg.Login, APIKey: cfg.APIKey},
	}, nil
}

// NewClientFromConfig builds the client for the site in config.Global.
func NewClientFromConfig() (*Client, error) {
	b := config.Global.Booru

	return NewClient(Config{
		BaseURL: b.BaseURL,
		Variant: Variant(b.Variant),
		Login:   b.Login,
		APIKey:  b.APIKey,
	})
}

func (c *Client) Variant() Variant {
	return c.variant
}

// SupportsPools reports whether "pool #N" links make sense on the site.
func (c *Client) SupportsPools() bool {
	return c.variant == Danbooru
}

// SupportsReferenceLists reports whether posts and media assets can be looked
// up by id, which galleries need.
func (c *Client) SupportsReferenceLists() bool {
	return c.variant == Danbooru
}

// GetPosts fetches the posts with the given ids. Posts that do not exist or
// are hidden from the account are missing from the result.
//
// fields restricts the returned attributes; none means all.
func (c *Client) GetPosts(ctx context.Context, ids []int, fields ...string) ([]Post, error) {
	if !c.SupportsReferenceLists() {
		return nil, fmt.Errorf("%w: post lookup on %s", ErrUnsupported, c.variant)
	}

	return fetchChunked(ctx, ids, func(ctx context.Context, chunk []int) ([]Post, error) {
		var posts []Post

		err := c.getJSON(ctx, c.postsEndpoint(chunk, fields), &posts)

		return posts, err
	})
}

// GetMediaAssets fetches the media assets with the given ids.
func (c *Client) GetMediaAssets(ctx context.Context, ids []int, fields ...string) ([]MediaAsset, error) {
	if !c.SupportsReferenceLists() {
		return nil, fmt.Errorf("%w: media asset lookup on %s", ErrUnsupported, c.variant)
	}

	return fetchChunked(ctx, ids, func(ctx context.Context, chunk []int) ([]MediaAsset, error) {
		var assets []MediaAsset

		err := c.getJSON(ctx, c.mediaAssetsEndpoint(chunk, fields), &assets)

		return assets, err
	})
}

// GetMultipleTagInfos fetches tag metadata for names and returns it keyed by
// tag name. Unknown tags are absent from the map.
func (c *Client) GetMultipleTagInfos(ctx context.Context, names []string, fields ...string) (map[string]Tag, error) {
	names = slices.DeleteFunc(slices.Clone(names), func(name string) bool {
		// A comma cannot be expressed in a name_comma search.
		return name == "" || (c.variant == Danbooru && strings.Contains(name, ","))
	})

	tags, err := fetchChunked(ctx, names, func(ctx context.Context, chunk []string) ([]Tag, error) {
		if c.variant == Gelbooru {
			return c.gelbooruTags(ctx, chunk)
		}

		var tags []Tag

		err := c.getJSON(ctx, c.tagsEndpoint(chunk, fields), &tags)

		return tags, err
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Tag, len(tags))
	for _, tag := range tags {
		byName[tag.Name] = tag
	}

	return byName, nil
}

// GetWikiPage fetches the wiki page with the given title.
func (c *Client) GetWikiPage(ctx context.Context, title string) (*WikiPage, error) {
	if c.variant != Danbooru {
		return nil, fmt.Errorf("%w: wiki pages on %s", ErrUnsupported, c.variant)
	}

	var page WikiPage

	if err := c.getJSON(ctx, c.wikiPageEndpoint(title), &page); err != nil {
		var apiErr *requests.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: wiki page %q", ErrNotFound, title)
		}

		return nil, err
	}

	if page.IsDeleted {
		return nil, fmt.Errorf("%w: wiki page %q was deleted", ErrNotFound, title)
	}

	return &page, nil
}

// InvalidateWikiPage drops the cached API response for a wiki page.
func (c *Client) InvalidateWikiPage(title string) int {
	return len(requests.InvalidateURLs([]string{c.wikiPageEndpoint(title)}))
}

func (c *Client) gelbooruTags(ctx context.Context, names []string) ([]Tag, error) {
	body, err := requests.GetJSON(ctx, c.gelbooruTagsEndpoint(names), c.auth, false)
	if err != nil {
		return nil, err
	}

	// The DAPI wraps results as {"@attributes": {...}, "tag": [...]}; "tag"
	// is absent when nothing matched.
	var (
		tags      []Tag
		decodeErr error
	)

	gjson.GetBytes(body, "tag").ForEach(func(_, value gjson.Result) bool {
		var gt gelbooruTag
		if decodeErr = json.Unmarshal([]byte(value.Raw), &gt); decodeErr != nil {
			return false
		}

		tags = append(tags, Tag{
			ID:        gt.ID,
			Name:      html.UnescapeString(gt.Name),
			Category:  gt.Type,
			PostCount: gt.Count,
		})

		return true
	})

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode gelbooru tag: %w", decodeErr)
	}

	return tags, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	body, err := requests.GetJSON(ctx, url, c.auth, c.variant == Danbooru)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}

	return nil
}

// fetchChunked calls fetch for consecutive chunks of at most PageLimit keys,
// concurrently, and concatenates the results in chunk order.
func fetchChunked[K, V any](ctx context.Context, keys []K, fetch func(context.Context, []K) ([]V, error)) ([]V, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	chunks := slices.Collect(slices.Chunk(keys, PageLimit))
	results := make([][]V, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)

	for i, chunk := range chunks {
		g.Go(func() error {
			values, err := fetch(gctx, chunk)
			if err != nil {
				return err
			}

			results[i] = values

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(chunks) > 1 {
		log.Debug().
			Int("keys", len(keys)).
			Int("chunks", len(chunks)).
			Msg("Fetched batched lookup")
	}

	return slices.Concat(results...), nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	return strings.Join(parts, ",")
}
