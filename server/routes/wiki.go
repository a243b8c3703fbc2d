// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/server/template"
	"codeberg.org/dtextview/dtextview/server/utils"
)

// WikiPage is the handler for /wiki/{page}.
//
// The ?refresh query parameter drops the cached upstream response first.
func WikiPage(site Site) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		title := strings.TrimSpace(utils.GetPathVar(r, "page"))
		if title == "" {
			return newHTTPError(http.StatusBadRequest, "missing wiki page title")
		}

		refresh := r.URL.Query().Has("refresh")
		if refresh {
			removed := site.InvalidateWikiPage(title)

			log.Info().
				Str("page", title).
				Int("removed", removed).
				Msg("Invalidated cached wiki page")
		}

		page, err := site.GetWikiPage(r.Context(), title)
		if err != nil {
			return err
		}

		content, err := renderMarkup(r.Context(), site, page.Body, "")
		if err != nil {
			return err
		}

		if refresh {
			w.Header().Set("Cache-Control", "no-store")
		} else {
			setPublicCacheControl(w)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		return template.WikiPage(template.WikiData{
			Common: template.Common{
				Title:       strings.ReplaceAll(page.Title, "_", " "),
				Description: pageDescription(content),
				Version:     config.BuildVersion,
				RepoURL:     config.Global.Instance.RepoURL,
			},
			Page:       page.Title,
			OtherNames: page.OtherNames,
			Content:    content,
			SiteURL:    site.WikiURL(page.Title),
			UpdatedAt:  page.UpdatedAt,
		}).Render(r.Context(), w)
	}
}
