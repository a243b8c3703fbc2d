// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/server/middleware"
	"codeberg.org/dtextview/dtextview/server/middleware/limiter"
	"codeberg.org/dtextview/dtextview/server/middleware/set_request_context"
)

// RegisterMiddleware installs the middleware chain. The limiter's cleanup is
// started here; stop it with limiter.Fini on shutdown.
func (router *Router) RegisterMiddleware() {
	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)
	router.Use(middleware.NormalizeURL)                // trailing slashes and booru wiki paths
	router.Use(set_request_context.WithRequestContext) // needed for everything else
	router.Use(middleware.SetResponseHeaders)          // all pages need this

	if config.Global.Limiter.Enabled {
		limiter.Init()

		router.Use(limiter.Evaluate)
	}
}
