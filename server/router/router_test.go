// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/core/booru"
)

func TestMain(m *testing.M) {
	config.Global.SetDefaults()
	config.Global.Render.LineSeparator = "\n"
	config.Global.Limiter.Enabled = false

	os.Exit(m.Run())
}

// upstream imitates the parts of a Danbooru site the routes reach.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/wiki_pages/touhou.json":
			_, _ = w.Write([]byte(`{"id":7,"title":"touhou","body":"h4. Characters\r\n* [[Hakurei Reimu]]\r\n\r\n!post #5: cover","other_names":[],"is_deleted":false}`))
		case "/tags.json":
			_, _ = w.Write([]byte(`[{"id":2,"name":"hakurei_reimu","category":4}]`))
		case "/posts.json":
			_, _ = w.Write([]byte(`[{"id":5,"preview_file_url":"https://cdn.donmai.us/5.jpg"}]`))
		case "/wiki_pages/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"message":"database is down"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"That record was not found."}`))
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	client, err := booru.NewClient(booru.Config{BaseURL: upstream(t).URL, Variant: booru.Danbooru})
	require.NoError(t, err)

	router := NewRouter()
	router.RegisterMiddleware()
	router.DefineRoutes(client)

	return router
}

func serve(router http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	return rr
}

func TestRouter_WikiPage(t *testing.T) {
	t.Parallel()

	rr := serve(newTestRouter(t), http.MethodGet, "/wiki/touhou", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Contains(t, rr.Header().Get("Server-Timing"), "booru$GET$")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Cache-Control"), "public, "))

	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)

	assert.Equal(t, "Characters", doc.Find(".dtext h3").Text())
	assert.True(t, doc.Find(".dtext li a.dtext-wiki-link").HasClass("tag-type-4"))
	assert.Equal(t, "https://cdn.donmai.us/5.jpg", doc.Find(".dtext .dtext-gallery img").AttrOr("src", ""))
}

func TestRouter_Errors(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "missing wiki page", method: http.MethodGet, target: "/wiki/nope", wantStatus: http.StatusNotFound},
		{name: "upstream failure", method: http.MethodGet, target: "/wiki/broken", wantStatus: http.StatusBadGateway},
		{name: "unresolved reference", method: http.MethodPost, target: "/api/render", body: `{"markup":"!post #6"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "bad body", method: http.MethodPost, target: "/api/render", body: `[`, wantStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, target: "/api/render", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, target: "/nowhere", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := serve(router, tt.method, tt.target, "application/json", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestRouter_RenderAPI(t *testing.T) {
	t.Parallel()

	rr := serve(newTestRouter(t), http.MethodPost, "/api/render", "application/json",
		`{"markup":"see post #5 and {{touhou rating:g}}"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.HTML))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(doc.Find("a.dtext-post-link").AttrOr("href", ""), "/posts/5"))
	assert.Equal(t, "touhou rating:g", doc.Find("a.dtext-query-link").Text())
}

func TestRouter_Redirects(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rr := serve(router, http.MethodGet, "/wiki_pages/touhou", "", "")
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/wiki/touhou", rr.Header().Get("Location"))

	rr = serve(router, http.MethodGet, "/wiki?title=touhou", "", "")
	assert.Equal(t, http.StatusPermanentRedirect, rr.Code)
	assert.Equal(t, "/wiki/touhou", rr.Header().Get("Location"))
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	rr := serve(newTestRouter(t), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
}
