// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package booru

import (
	"net/url"
	"strconv"
	"strings"
)

// API endpoints.

func (c *Client) postsEndpoint(ids []int, fields []string) string {
	q := url.Values{}
	q.Set("tags", "id:"+joinInts(ids)+" status:any")
	q.Set("limit", strconv.Itoa(len(ids)))
	setOnly(q, fields)

	return c.baseURL + "/posts.json?" + q.Encode()
}

func (c *Client) mediaAssetsEndpoint(ids []int, fields []string) string {
	q := url.Values{}
	q.Set("search[id]", joinInts(ids))
	q.Set("limit", strconv.Itoa(len(ids)))
	setOnly(q, fields)

	return c.baseURL + "/media_assets.json?" + q.Encode()
}

func (c *Client) tagsEndpoint(names []string, fields []string) string {
	q := url.Values{}
	q.Set("search[name_comma]", strings.Join(names, ","))
	q.Set("limit", strconv.Itoa(len(names)))
	setOnly(q, fields)

	return c.baseURL + "/tags.json?" + q.Encode()
}

func (c *Client) wikiPageEndpoint(title string) string {
	return c.baseURL + "/wiki_pages/" + url.PathEscape(title) + ".json"
}

func (c *Client) gelbooruTagsEndpoint(names []string) string {
	q := url.Values{}
	q.Set("page", "dapi")
	q.Set("s", "tag")
	q.Set("q", "index")
	q.Set("json", "1")
	q.Set("names", strings.Join(names, " "))
	q.Set("limit", strconv.Itoa(len(names)))

	if c.auth.APIKey != "" {
		q.Set("api_key", c.auth.APIKey)
		q.Set("user_id", c.auth.Login)
	}

	return c.baseURL + "/index.php?" + q.Encode()
}

func setOnly(q url.Values, fields []string) {
	if len(fields) > 0 {
		q.Set("only", strings.Join(fields, ","))
	}
}

// Site pages.

// SiteURL resolves a site-relative path such as "/posts?tags=x".
func (c *Client) SiteURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func (c *Client) PostURL(id int) string {
	if c.variant == Gelbooru {
		return c.SiteURL("/index.php?page=post&s=view&id=" + strconv.Itoa(id))
	}

	return c.SiteURL("/posts/" + strconv.Itoa(id))
}

func (c *Client) PoolURL(id int) string {
	if c.variant == Gelbooru {
		return c.SiteURL("/index.php?page=pool&s=show&id=" + strconv.Itoa(id))
	}

	return c.SiteURL("/pools/" + strconv.Itoa(id))
}

// MediaAssetURL has no Gelbooru equivalent; the post page is the closest.
func (c *Client) MediaAssetURL(id int) string {
	if c.variant == Gelbooru {
		return c.PostURL(id)
	}

	return c.SiteURL("/media_assets/" + strconv.Itoa(id))
}

func (c *Client) WikiURL(pageID string) string {
	if c.variant == Gelbooru {
		return c.SiteURL("/index.php?page=wiki&s=list&search=" + url.QueryEscape(pageID))
	}

	return c.SiteURL("/wiki_pages/" + url.PathEscape(pageID))
}

func (c *Client) QueryURL(tags []string) string {
	query := url.QueryEscape(strings.Join(tags, " "))

	if c.variant == Gelbooru {
		return c.SiteURL("/index.php?page=post&s=list&tags=" + query)
	}

	return c.SiteURL("/posts?tags=" + query)
}
